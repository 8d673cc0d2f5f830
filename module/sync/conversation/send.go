package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"CollectBox/logger"
	"CollectBox/module/collect/model"
	"CollectBox/tools/errs"
)

// SendText inserts a plain message and, on confirmation, places the
// stored row into the local list. Not purely optimistic: the append
// waits for the round trip, so the happy path needs no rollback. On
// failure nothing local changes and the caller keeps the draft.
func (s *Synchronizer) SendText(ctx context.Context, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.ErrEmptyContent
	}
	return s.send(ctx, content)
}

// SendAttachment inserts a message whose content is the sentinel-encoded
// collectible reference.
func (s *Synchronizer) SendAttachment(ctx context.Context, ref model.CollectibleRef) (*model.Message, error) {
	if ref.ItemID == "" {
		return nil, errs.New("attachment needs an item identity")
	}
	content, err := model.EncodeAttachment(ref)
	if err != nil {
		return nil, errs.Wrap(err, "encode attachment")
	}
	return s.send(ctx, content)
}

func (s *Synchronizer) send(ctx context.Context, content string) (*model.Message, error) {
	if s.sess == nil {
		return nil, errs.ErrNoSession
	}
	var (
		peer    string
		myEpoch uint64
		ready   bool
	)
	if !s.loop.Do(func() {
		peer = s.peer
		myEpoch = s.epoch
		ready = s.status == StatusReady
	}) {
		return nil, errs.ErrClosed
	}
	if peer == "" || !ready {
		return nil, errs.ErrNoPeerSelected
	}
	if peer == s.sess.UserID {
		return nil, errs.ErrSelfConversation
	}

	m, err := s.store.InsertMessage(ctx, s.sess.UserID, peer, content)
	if err != nil {
		logger.Error("send failed", zap.String("peer", peer), zap.Error(err))
		return nil, errs.Wrap(err, "send message")
	}

	s.loop.Do(func() {
		if s.epoch != myEpoch || s.status != StatusReady {
			return // peer switched while the insert was in flight
		}
		s.msgs = model.InsertSorted(s.msgs, m)
	})
	return m, nil
}

// DeleteConversation bulk-deletes both directions of the open pair.
// The caller owns the confirmation prompt; this call is the irreversible
// part. Success moves the synchronizer to StatusGone so the view layer
// unmounts it; failure leaves everything as it was.
func (s *Synchronizer) DeleteConversation(ctx context.Context) error {
	if s.sess == nil {
		return errs.ErrNoSession
	}
	var (
		peer    string
		myEpoch uint64
	)
	if !s.loop.Do(func() {
		peer = s.peer
		myEpoch = s.epoch
	}) {
		return errs.ErrClosed
	}
	if peer == "" {
		return errs.ErrNoPeerSelected
	}

	if err := s.store.DeleteMessages(ctx, s.sess.UserID, peer); err != nil {
		logger.Error("delete conversation failed", zap.String("peer", peer), zap.Error(err))
		return errs.Wrap(err, "delete conversation")
	}

	s.loop.Do(func() {
		if s.epoch != myEpoch {
			return
		}
		s.teardownLocked()
		s.msgs = nil
		s.status = StatusGone
	})
	return nil
}
