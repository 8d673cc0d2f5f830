package model

import (
	"sort"
	"time"
)

const (
	MessageTable      = "messages"
	NotificationTable = "notifications"
)

// Message is one row of the direct-message table. A conversation is the
// unordered pair {SenderID, RecipientID}; a message belongs to exactly one.
type Message struct {
	ID          string    `bson:"_id" json:"id" mapstructure:"id"`
	SenderID    string    `bson:"sender_id" json:"sender_id" mapstructure:"sender_id"`
	RecipientID string    `bson:"recipient_id" json:"recipient_id" mapstructure:"recipient_id"`
	Content     string    `bson:"content" json:"content" mapstructure:"content"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at" mapstructure:"created_at"`
	IsRead      bool      `bson:"is_read" json:"is_read" mapstructure:"is_read"`
}

// InConversation reports whether m belongs to the {a, b} pair.
func (m *Message) InConversation(a, b string) bool {
	return (m.SenderID == a && m.RecipientID == b) ||
		(m.SenderID == b && m.RecipientID == a)
}

// NotificationRecord is one wantlist-match event. Records are never
// removed once delivered, only flagged acknowledged; the bell badge is
// the count of unacknowledged ones.
type NotificationRecord struct {
	ID          string    `bson:"_id" json:"id" mapstructure:"id"`
	RecipientID string    `bson:"recipient_id" json:"recipient_id" mapstructure:"recipient_id"`
	SenderID    string    `bson:"sender_id" json:"sender_id" mapstructure:"sender_id"`
	ItemID      string    `bson:"item_id" json:"item_id" mapstructure:"item_id"`
	ItemName    string    `bson:"item_name" json:"item_name" mapstructure:"item_name"`
	MatchedWant string    `bson:"matched_want" json:"matched_want" mapstructure:"matched_want"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at" mapstructure:"created_at"`
	Acked       bool      `bson:"acked" json:"acked" mapstructure:"acked"`
}

// MessageLess is the conversation ordering: created_at ascending, ties
// broken by id so repeated fetches of the same rows always render the
// same way. The store's incidental order is never trusted.
func MessageLess(a, b *Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortMessages sorts in place by MessageLess.
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return MessageLess(msgs[i], msgs[j]) })
}

// InsertSorted places m into an already-ordered slice at its comparator
// position. Live events are merged through this instead of a blind
// append: the transports guarantee nothing about delivery order, so
// arrival order is not a proxy for creation order.
func InsertSorted(msgs []*Message, m *Message) []*Message {
	i := sort.Search(len(msgs), func(i int) bool { return MessageLess(m, msgs[i]) })
	msgs = append(msgs, nil)
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m
	return msgs
}
