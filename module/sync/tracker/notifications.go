package tracker

import (
	"context"

	"go.uber.org/zap"

	"CollectBox/logger"
	"CollectBox/module/collect/model"
)

// Notifications returns a copy of the log, newest first. Records are
// never removed once delivered, only flagged.
func (t *Tracker) Notifications() []*model.NotificationRecord {
	var out []*model.NotificationRecord
	t.loop.Do(func() {
		out = make([]*model.NotificationRecord, len(t.notifs))
		for i, n := range t.notifs {
			cp := *n
			out[i] = &cp
		}
	})
	return out
}

// UnreadNotificationTotal is the bell badge: count of unacknowledged
// records, derived on read.
func (t *Tracker) UnreadNotificationTotal() int {
	var n int
	t.loop.Do(func() {
		for _, r := range t.notifs {
			if !r.Acked {
				n++
			}
		}
	})
	return n
}

// Acknowledge flips every record acknowledged (opening the panel reads
// them all) and best-effort persists the acked ids. Persistence failure
// only costs cross-session memory of the acks; the local flip stands.
func (t *Tracker) Acknowledge(ctx context.Context) {
	var ids []string
	t.loop.Do(func() {
		for _, r := range t.notifs {
			if !r.Acked {
				r.Acked = true
				ids = append(ids, r.ID)
			}
		}
	})
	if t.acks == nil || len(ids) == 0 {
		return
	}
	if err := t.acks.Ack(ctx, t.sess.UserID, ids); err != nil {
		logger.Warn("persisting notification acks failed", zap.Error(err))
	}
}
