package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollectBox/global"
	"CollectBox/module/collect/model"
	"CollectBox/service/realtime"
	"CollectBox/service/store"
)

func insertEvent(sender, recipient string) realtime.Event {
	return realtime.Event{
		Op:    realtime.EventInsert,
		Table: model.MessageTable,
		Row: map[string]any{
			"id":           "m-" + sender + "-" + time.Now().Format("150405.000000000"),
			"sender_id":    sender,
			"recipient_id": recipient,
			"content":      "hi",
			"created_at":   time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

func newTracker(t *testing.T, st *store.MemStore, feed realtime.Feed) *Tracker {
	t.Helper()
	tr := New(global.NewSessionForUser("me"), st, feed, nil)
	t.Cleanup(tr.Close)
	return tr
}

func seedUnread(st *store.MemStore, sender string, n int) {
	for i := 0; i < n; i++ {
		st.Seed(&model.Message{
			ID: sender + "-seed-" + string(rune('a'+i)), SenderID: sender,
			RecipientID: "me", Content: "x", CreatedAt: time.Now().UTC(),
		})
	}
}

func TestBulkCountPlusLiveEvents(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()
	seedUnread(st, "alice", 2)
	seedUnread(st, "bob", 1)

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())

	require.Equal(t, map[string]int{"alice": 2, "bob": 1}, tr.UnreadByPeer())
	require.Equal(t, 3, tr.TotalUnread())

	feed.Publish(insertEvent("alice", "me"))

	assert.Equal(t, map[string]int{"alice": 3, "bob": 1}, tr.UnreadByPeer())
	assert.Equal(t, 4, tr.TotalUnread())
}

func TestMarkReadResetsToZeroAndIsIdempotent(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()
	seedUnread(st, "alice", 3)
	seedUnread(st, "bob", 1)

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())
	feed.Publish(insertEvent("alice", "me"))
	require.Equal(t, 5, tr.TotalUnread())

	n, err := tr.MarkRead(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n) // affected count covers the stored rows only
	assert.Equal(t, map[string]int{"alice": 0, "bob": 1}, tr.UnreadByPeer())
	assert.Equal(t, 1, tr.TotalUnread())

	// second call with nothing new arrived: still zero, no error
	n, err = tr.MarkRead(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 0, tr.UnreadByPeer()["alice"])
}

func TestMarkReadFailureLeavesCountUntouched(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()
	seedUnread(st, "alice", 2)

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())

	st.FailNext = errors.New("store down")
	_, err := tr.MarkRead(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, 2, tr.UnreadByPeer()["alice"])
}

func TestOwnEchoIsSuppressed(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())

	// the transport echoes our own outgoing insert back at us
	feed.Publish(insertEvent("me", "me"))
	assert.Equal(t, 0, tr.TotalUnread())
}

func TestTotalUnreadIsDerived(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()

	tr := newTracker(t, st, feed)
	tr.Start(context.Background())

	senders := []string{"a", "b", "a", "c", "a", "b"}
	for _, s := range senders {
		feed.Publish(insertEvent(s, "me"))
	}
	byPeer := tr.UnreadByPeer()
	sum := 0
	for _, v := range byPeer {
		sum += v
	}
	assert.Equal(t, sum, tr.TotalUnread())
	assert.Equal(t, map[string]int{"a": 3, "b": 2, "c": 1}, byPeer)
}

func TestBulkFetchFailureDegradesToEmpty(t *testing.T) {
	st := store.NewMemStore()
	st.FailNext = errors.New("store down")
	feed := realtime.NewMemFeed()

	tr := newTracker(t, st, feed)
	assert.NotPanics(t, func() { tr.Start(context.Background()) })
	assert.Equal(t, 0, tr.TotalUnread())

	// live events still land
	feed.Publish(insertEvent("alice", "me"))
	assert.Equal(t, 1, tr.TotalUnread())
}

func TestSubscribeFailureLeavesTrackerStatic(t *testing.T) {
	st := store.NewMemStore()
	seedUnread(st, "alice", 1)

	tr := newTracker(t, st, realtime.ErrFeed{Err: errors.New("no transport")})
	assert.NotPanics(t, func() { tr.Start(context.Background()) })

	// the bulk counts still render; nothing updates after that
	assert.Equal(t, 1, tr.TotalUnread())
}

func TestCloseReleasesSubscriptions(t *testing.T) {
	st := store.NewMemStore()
	feed := realtime.NewMemFeed()

	tr := New(global.NewSessionForUser("me"), st, feed, nil)
	tr.Start(context.Background())
	require.Equal(t, 2, feed.SubCount()) // messages + notifications

	tr.Close()
	assert.Equal(t, 0, feed.SubCount())
}
