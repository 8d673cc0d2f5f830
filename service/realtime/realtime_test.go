package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollectBox/module/collect/model"
)

func TestMatches(t *testing.T) {
	p := Predicate{Table: model.MessageTable, Event: EventInsert, Recipient: "me"}
	ev := Event{Op: EventInsert, Table: model.MessageTable}

	assert.True(t, Matches(p, ev, "me"))
	assert.False(t, Matches(p, ev, "someone-else"))
	assert.False(t, Matches(p, Event{Op: EventUpdate, Table: model.MessageTable}, "me"))
	assert.False(t, Matches(p, Event{Op: EventInsert, Table: model.NotificationTable}, "me"))
}

func TestMemFeedDeliversToMatchingSubs(t *testing.T) {
	f := NewMemFeed()
	var got []Event
	sub, err := f.Subscribe(Predicate{Table: "messages", Event: EventInsert, Recipient: "me"},
		func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	f.Publish(Event{Op: EventInsert, Table: "messages", Row: map[string]any{"recipient_id": "me"}})
	f.Publish(Event{Op: EventInsert, Table: "messages", Row: map[string]any{"recipient_id": "other"}})
	require.Len(t, got, 1)

	// Close is idempotent and safe to call repeatedly
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	f.Publish(Event{Op: EventInsert, Table: "messages", Row: map[string]any{"recipient_id": "me"}})
	assert.Len(t, got, 1)
	assert.Equal(t, 0, f.SubCount())
}

func TestDecodeMessageRow(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	ev := Event{
		Op:    EventInsert,
		Table: model.MessageTable,
		Row: map[string]any{
			"id":           "m1",
			"sender_id":    "alice",
			"recipient_id": "me",
			"content":      "hello",
			"created_at":   at.Format(time.RFC3339Nano),
			"is_read":      false,
		},
	}
	m, err := DecodeMessage(ev)
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "alice", m.SenderID)
	assert.True(t, m.CreatedAt.Equal(at))

	_, err = DecodeMessage(Event{Row: map[string]any{"content": "no identity"}})
	assert.Error(t, err)
}

func TestDecodeNotificationRow(t *testing.T) {
	ev := Event{
		Op:    EventInsert,
		Table: model.NotificationTable,
		Row: map[string]any{
			"id": "n1", "recipient_id": "me", "sender_id": "seller",
			"item_id": "item-1", "item_name": "Inverted Jenny", "matched_want": "Jenny",
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	n, err := DecodeNotification(ev)
	require.NoError(t, err)
	assert.Equal(t, "Inverted Jenny", n.ItemName)
	assert.False(t, n.Acked)
}
