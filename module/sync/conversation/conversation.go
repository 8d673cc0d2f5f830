package conversation

import (
	"context"

	"go.uber.org/zap"

	"CollectBox/global"
	"CollectBox/logger"
	"CollectBox/module/collect/model"
	"CollectBox/module/sync/runloop"
	"CollectBox/service/realtime"
	"CollectBox/service/store"
	"CollectBox/tools/errs"
)

// Status is the synchronizer's lifecycle for the currently open peer.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
	StatusGone // conversation deleted; caller should unmount
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusGone:
		return "gone"
	}
	return "unknown"
}

// Synchronizer keeps the ordered history for exactly one open peer.
// Each peer switch is a clean slate: tear down the old subscription,
// bulk fetch, wholesale replace, resubscribe. The subscription channel
// is "everything addressed to me"; narrowing to the open peer happens
// in the handler.
type Synchronizer struct {
	sess  *global.UserSession
	store store.Store
	feed  realtime.Feed
	loop  *runloop.Loop

	// loop-owned state
	peer   string
	status Status
	msgs   []*model.Message
	sub    realtime.Subscription
	epoch  uint64 // bumped on every teardown; stale completions check it and bail
}

func New(sess *global.UserSession, st store.Store, feed realtime.Feed) *Synchronizer {
	return &Synchronizer{
		sess:  sess,
		store: st,
		feed:  feed,
		loop:  runloop.New(),
	}
}

// SelectPeer opens the conversation with peer: none→loading→ready, or
// ready(A)→loading→ready(B). The previous subscription is closed before
// anything else happens; a fetch still in flight for the old peer is
// discarded by the epoch check when it lands.
func (s *Synchronizer) SelectPeer(ctx context.Context, peer string) error {
	if s.sess == nil {
		return errs.ErrNoSession
	}
	if peer == s.sess.UserID {
		return errs.ErrSelfConversation
	}

	var myEpoch uint64
	if !s.loop.Do(func() {
		s.teardownLocked()
		s.peer = peer
		s.status = StatusLoading
		s.msgs = nil
		myEpoch = s.epoch
	}) {
		return errs.ErrClosed
	}

	msgs, err := s.store.QueryMessages(ctx, s.sess.UserID, peer)
	if err != nil {
		logger.Error("conversation bulk fetch failed", zap.String("peer", peer), zap.Error(err))
		s.loop.Do(func() {
			if s.epoch != myEpoch {
				return
			}
			s.status = StatusError
		})
		return errs.Wrap(err, "load conversation")
	}
	model.SortMessages(msgs) // never trust incidental store order

	sub, err := s.feed.Subscribe(realtime.Predicate{
		Table:     model.MessageTable,
		Event:     realtime.EventInsert,
		Recipient: s.sess.UserID,
	}, s.eventHandler(peer, myEpoch))
	if err != nil {
		// history still renders; it just will not move
		logger.Error("conversation subscription failed", zap.String("peer", peer), zap.Error(err))
	}

	applied := false
	s.loop.Do(func() {
		if s.epoch != myEpoch {
			return // superseded by a newer SelectPeer or Close
		}
		s.msgs = msgs
		s.sub = sub
		s.status = StatusReady
		applied = true
	})
	if !applied && sub != nil {
		_ = sub.Close()
	}
	return nil
}

// eventHandler narrows the me-scoped channel to the open peer. Runs on
// the transport goroutine; mutation is posted to the loop with the
// epoch pinned.
func (s *Synchronizer) eventHandler(peer string, epoch uint64) realtime.Handler {
	return func(ev realtime.Event) {
		m, err := realtime.DecodeMessage(ev)
		if err != nil {
			logger.Error("dropping undecodable message event", zap.Error(err))
			return
		}
		// Echo guard (own sends are appended on insert success) and
		// peer filter (subscription is coarser than the conversation).
		if m.SenderID == s.sess.UserID || m.SenderID != peer {
			return
		}
		s.loop.Post(func() {
			if s.epoch != epoch || s.status != StatusReady {
				return
			}
			// placed by (created_at, id), not appended: the transport
			// does not promise delivery order matches creation order
			s.msgs = model.InsertSorted(s.msgs, m)
		})
	}
}

// Peer returns the currently open peer identity, if any.
func (s *Synchronizer) Peer() string {
	var p string
	s.loop.Do(func() { p = s.peer })
	return p
}

func (s *Synchronizer) Status() Status {
	st := StatusIdle
	s.loop.Do(func() { st = s.status })
	return st
}

// Messages returns a copy of the ordered history.
func (s *Synchronizer) Messages() []*model.Message {
	var out []*model.Message
	s.loop.Do(func() {
		out = make([]*model.Message, len(s.msgs))
		for i, m := range s.msgs {
			cp := *m
			out[i] = &cp
		}
	})
	return out
}

// teardownLocked runs on the loop. Closing before bumping the epoch
// means no handler registered under the old epoch can land after this.
func (s *Synchronizer) teardownLocked() {
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	s.epoch++
}

// Close releases the subscription and stops the loop. Idempotent.
func (s *Synchronizer) Close() {
	s.loop.Do(func() {
		s.teardownLocked()
		s.status = StatusIdle
		s.peer = ""
		s.msgs = nil
	})
	s.loop.Close()
}
