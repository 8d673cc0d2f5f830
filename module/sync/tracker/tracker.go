package tracker

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

const notificationFetchLimit = 50

// AckStore persists acknowledged notification ids across sessions.
// Optional: a nil AckStore degrades acks to session-scoped.
type AckStore interface {
	Ack(ctx context.Context, user string, ids []string) error
	Acked(ctx context.Context, user string) (map[string]struct{}, error)
}

// Tracker keeps the session-long projections: unread message count per
// peer and the wantlist-match notification log. One bulk fetch plus one
// subscription per table, alive for the whole session; counts move by
// O(1) increments, never re-fetches.
type Tracker struct {
	sess  *global.UserSession
	store store.Store
	feed  realtime.Feed
	acks  AckStore
	loop  *runloop.Loop

	// loop-owned state; only closures running on loop touch these
	unread   map[string]int
	notifs   []*model.NotificationRecord // newest first
	msgSub   realtime.Subscription
	notifSub realtime.Subscription
}

func New(sess *global.UserSession, st store.Store, feed realtime.Feed, acks AckStore) *Tracker {
	return &Tracker{
		sess:   sess,
		store:  st,
		feed:   feed,
		acks:   acks,
		loop:   runloop.New(),
		unread: make(map[string]int),
	}
}

// Start initializes both projections and opens the two session-long
// subscriptions. Fetch failures degrade to empty projections (logged,
// not fatal); subscription failures leave the projection static.
func (t *Tracker) Start(ctx context.Context) {
	me := t.sess.UserID

	counts, err := t.store.CountUnreadBySender(ctx, me)
	if err != nil {
		logger.Error("unread bulk fetch failed, starting empty", zap.Error(err))
		counts = map[string]int{}
	}

	notifs, err := t.store.QueryNotifications(ctx, me, notificationFetchLimit)
	if err != nil {
		logger.Error("notification bulk fetch failed, starting empty", zap.Error(err))
		notifs = nil
	}
	if t.acks != nil {
		if acked, err := t.acks.Acked(ctx, me); err != nil {
			logger.Warn("acked-set fetch failed, acks are session-scoped", zap.Error(err))
		} else {
			for _, n := range notifs {
				if _, ok := acked[n.ID]; ok {
					n.Acked = true
				}
			}
		}
	}

	t.loop.Do(func() {
		for k, v := range counts {
			t.unread[k] = v
		}
		t.notifs = notifs
	})

	msgSub, err := t.feed.Subscribe(realtime.Predicate{
		Table:     model.MessageTable,
		Event:     realtime.EventInsert,
		Recipient: me,
	}, t.onMessageEvent)
	if err != nil {
		logger.Error("message subscription failed, unread counts will not update", zap.Error(err))
	}

	notifSub, err := t.feed.Subscribe(realtime.Predicate{
		Table:     model.NotificationTable,
		Event:     realtime.EventInsert,
		Recipient: me,
	}, t.onNotificationEvent)
	if err != nil {
		logger.Error("notification subscription failed, notifications will not update", zap.Error(err))
	}

	if !t.loop.Do(func() {
		t.msgSub = msgSub
		t.notifSub = notifSub
	}) {
		// closed while starting; release what was just opened
		if msgSub != nil {
			_ = msgSub.Close()
		}
		if notifSub != nil {
			_ = notifSub.Close()
		}
	}
}

// onMessageEvent runs on the transport goroutine; the mutation is handed
// to the loop.
func (t *Tracker) onMessageEvent(ev realtime.Event) {
	m, err := realtime.DecodeMessage(ev)
	if err != nil {
		logger.Error("dropping undecodable message event", zap.Error(err))
		return
	}
	// Echo guard: our own outgoing insert comes back on this channel
	// too, but it is already accounted for by the synchronizer's
	// confirmed append. Counting it here would double-book.
	if m.SenderID == t.sess.UserID {
		return
	}
	t.loop.Post(func() {
		t.unread[m.SenderID]++
	})
}

func (t *Tracker) onNotificationEvent(ev realtime.Event) {
	n, err := realtime.DecodeNotification(ev)
	if err != nil {
		logger.Error("dropping undecodable notification event", zap.Error(err))
		return
	}
	t.loop.Post(func() {
		t.notifs = append([]*model.NotificationRecord{n}, t.notifs...)
	})
}

// UnreadByPeer returns a copy of the per-peer unread counts.
func (t *Tracker) UnreadByPeer() map[string]int {
	out := make(map[string]int)
	t.loop.Do(func() {
		for k, v := range t.unread {
			out[k] = v
		}
	})
	return out
}

// TotalUnread is derived from the map on every read; it is never stored
// separately, so it cannot drift.
func (t *Tracker) TotalUnread() int {
	var sum int
	t.loop.Do(func() {
		for _, v := range t.unread {
			sum += v
		}
	})
	return sum
}

// MarkRead bulk-flags every unread peer→me row, then resets the local
// count to exactly zero. The reset is unconditional: anything that
// slipped in between the update's snapshot and its completion is
// accepted as read. The affected-row count is returned for callers that
// want tighter accounting. On failure the local count is untouched and
// no retry happens.
func (t *Tracker) MarkRead(ctx context.Context, peer string) (int64, error) {
	if t.sess == nil {
		return 0, nil // guard violation is a no-op, not an error
	}
	n, err := t.store.UpdateMessagesReadStatus(ctx, peer, t.sess.UserID)
	if err != nil {
		logger.Error("mark read failed", zap.String("peer", peer), zap.Error(err))
		return 0, errs.Wrap(err, "mark read")
	}
	t.loop.Do(func() {
		t.unread[peer] = 0
	})
	return n, nil
}

// Close tears the session projections down: both subscriptions released
// before the loop stops, so no stale handler can mutate a dead session.
func (t *Tracker) Close() {
	t.loop.Do(func() {
		if t.msgSub != nil {
			_ = t.msgSub.Close()
			t.msgSub = nil
		}
		if t.notifSub != nil {
			_ = t.notifSub.Close()
			t.notifSub = nil
		}
	})
	t.loop.Close()
}
