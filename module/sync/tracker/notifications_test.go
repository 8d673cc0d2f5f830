package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollectBox/global"
	"CollectBox/module/collect/model"
	"CollectBox/service/realtime"
	"CollectBox/service/store"
)

type memAcks struct {
	mu    sync.Mutex
	acked map[string]struct{}
	fail  error
}

func newMemAcks() *memAcks { return &memAcks{acked: make(map[string]struct{})} }

func (a *memAcks) Ack(_ context.Context, _ string, ids []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return a.fail
	}
	for _, id := range ids {
		a.acked[id] = struct{}{}
	}
	return nil
}

func (a *memAcks) Acked(_ context.Context, _ string) (map[string]struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return nil, a.fail
	}
	out := make(map[string]struct{}, len(a.acked))
	for k := range a.acked {
		out[k] = struct{}{}
	}
	return out, nil
}

func notif(id string, at time.Time) *model.NotificationRecord {
	return &model.NotificationRecord{
		ID: id, RecipientID: "me", SenderID: "seller",
		ItemID: "item-" + id, ItemName: "Penny Black", MatchedWant: "Penny Black",
		CreatedAt: at,
	}
}

func notifEvent(id string) realtime.Event {
	return realtime.Event{
		Op:    realtime.EventInsert,
		Table: model.NotificationTable,
		Row: map[string]any{
			"id": id, "recipient_id": "me", "sender_id": "seller",
			"item_id": "item-" + id, "item_name": "Penny Black", "matched_want": "Penny Black",
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

func TestNotificationsNewestFirstAndBadge(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()
	base := time.Now().UTC()
	st.SeedNotifications(notif("n1", base), notif("n2", base.Add(time.Minute)))

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())

	got := tr.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, "n2", got[0].ID) // newest first
	assert.Equal(t, 2, tr.UnreadNotificationTotal())

	feed.Publish(notifEvent("n3"))
	got = tr.Notifications()
	require.Len(t, got, 3)
	assert.Equal(t, "n3", got[0].ID) // live arrivals prepend
	assert.Equal(t, 3, tr.UnreadNotificationTotal())
}

func TestAcknowledgeFlipsAllAndKeepsRecords(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()
	st.SeedNotifications(notif("n1", time.Now().UTC()))

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())
	feed.Publish(notifEvent("n2"))
	require.Equal(t, 2, tr.UnreadNotificationTotal())

	tr.Acknowledge(context.Background())
	assert.Equal(t, 0, tr.UnreadNotificationTotal())
	assert.Len(t, tr.Notifications(), 2) // flagged, never removed
}

func TestAcksPersistAcrossSessions(t *testing.T) {
	st := store.NewMemStore()
	st.SeedNotifications(notif("n1", time.Now().UTC()))
	acks := newMemAcks()

	tr := New(global.NewSessionForUser("me"), st, realtime.NewMemFeed(), acks)
	tr.Start(context.Background())
	tr.Acknowledge(context.Background())
	tr.Close()

	// fresh session: the ack set is read back during Start
	tr2 := New(global.NewSessionForUser("me"), st, realtime.NewMemFeed(), acks)
	defer tr2.Close()
	tr2.Start(context.Background())
	assert.Equal(t, 0, tr2.UnreadNotificationTotal())
	require.Len(t, tr2.Notifications(), 1)
	assert.True(t, tr2.Notifications()[0].Acked)
}

func TestAckPersistenceFailureDegradesToSessionScope(t *testing.T) {
	st := store.NewMemStore()
	st.SeedNotifications(notif("n1", time.Now().UTC()))
	acks := newMemAcks()
	acks.fail = assert.AnError

	tr := New(global.NewSessionForUser("me"), st, realtime.NewMemFeed(), acks)
	defer tr.Close()
	tr.Start(context.Background())

	assert.NotPanics(t, func() { tr.Acknowledge(context.Background()) })
	// the local flip stands even though persistence failed
	assert.Equal(t, 0, tr.UnreadNotificationTotal())
}
