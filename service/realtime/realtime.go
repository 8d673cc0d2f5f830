package realtime

// The change-feed boundary. The backend pushes row-level change events;
// delivery is at-least-once with no ordering guarantee across channels.
// Reconnect policy lives in the transport, never in the components
// consuming it.

const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// Predicate scopes a subscription: one table, one event kind, rows
// addressed to one recipient.
type Predicate struct {
	Table     string
	Event     string
	Recipient string
}

// Event is one delivered change. Row is the raw row payload as the
// transport decoded it; consumers use DecodeMessage/DecodeNotification.
type Event struct {
	Op    string
	Table string
	Row   map[string]any
}

// Handler runs on the transport's delivery goroutine. Implementations
// must hand off to their own loop instead of mutating state in place.
type Handler func(Event)

// Subscription is an owned resource. Close must be idempotent and safe
// to call from teardown paths that cannot know whether it already ran.
type Subscription interface {
	Close() error
}

type Feed interface {
	Subscribe(p Predicate, h Handler) (Subscription, error)
}

// Matches reports whether ev satisfies p, given the recipient identity
// carried in the row. Used by transports whose channels are coarser than
// one predicate.
func Matches(p Predicate, ev Event, rowRecipient string) bool {
	if p.Table != "" && p.Table != ev.Table {
		return false
	}
	if p.Event != "" && p.Event != ev.Op {
		return false
	}
	if p.Recipient != "" && p.Recipient != rowRecipient {
		return false
	}
	return true
}
