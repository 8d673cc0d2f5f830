package errs

import (
	"github.com/pkg/errors"
)

// New returns an error with a captured stack.
func New(msg string) error { return errors.New(msg) }

// Wrap annotates err with msg, keeping the original cause reachable
// through errors.Cause / stdlib Unwrap.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Guard-violation sentinels shared across the sync core. Callers compare
// with errors.Is; components treat them as no-op conditions, not failures.
var (
	ErrNoSession        = errors.New("no active session")
	ErrSelfConversation = errors.New("self conversation is not allowed")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrNoPeerSelected   = errors.New("no peer selected")
	ErrClosed           = errors.New("component closed")
)
