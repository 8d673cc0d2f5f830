package store

import (
	"context"

	"CollectBox/module/collect/model"
)

// Store is the remote-store boundary the sync core talks to. The store
// is the single source of truth; everything the tracker and synchronizer
// hold locally is a projection of it.
type Store interface {
	// CountUnreadBySender groups unread rows addressed to recipient by
	// sender identity.
	CountUnreadBySender(ctx context.Context, recipient string) (map[string]int, error)

	// InsertMessage writes one message and returns the stored row,
	// including its assigned identity and timestamp.
	InsertMessage(ctx context.Context, sender, recipient, content string) (*model.Message, error)

	// UpdateMessagesReadStatus flags every unread sender→recipient row
	// read and reports how many rows were touched.
	UpdateMessagesReadStatus(ctx context.Context, sender, recipient string) (int64, error)

	// DeleteMessages removes every row of the {peerA, peerB} pair.
	DeleteMessages(ctx context.Context, peerA, peerB string) error

	// QueryMessages returns the full {peerA, peerB} history ordered by
	// created_at ascending, id ascending.
	QueryMessages(ctx context.Context, peerA, peerB string) ([]*model.Message, error)

	// QueryNotifications returns at most limit records addressed to
	// recipient, newest first.
	QueryNotifications(ctx context.Context, recipient string, limit int64) ([]*model.NotificationRecord, error)
}
