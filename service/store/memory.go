package store

import (
	"context"
	"sync"
	"time"

	"CollectBox/module/collect/model"
	"CollectBox/tools/ids"
)

// MemStore is the in-process twin of the Mongo store, used by tests and
// local runs. Same contract, map-backed.
type MemStore struct {
	mu     sync.Mutex
	msgs   []*model.Message
	notifs []*model.NotificationRecord

	// FailNext, when set, makes the next mutating call return it. Lets
	// tests exercise the no-retry/leave-state-alone error paths.
	FailNext error

	// Clock lets tests pin timestamps; defaults to time.Now.
	Clock func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{Clock: func() time.Time { return time.Now().UTC() }}
}

func (s *MemStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

// Seed loads rows directly, bypassing the insert path.
func (s *MemStore) Seed(msgs ...*model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
}

func (s *MemStore) SeedNotifications(ns ...*model.NotificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifs = append(s.notifs, ns...)
}

func (s *MemStore) CountUnreadBySender(ctx context.Context, recipient string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, m := range s.msgs {
		if m.RecipientID == recipient && !m.IsRead {
			out[m.SenderID]++
		}
	}
	return out, nil
}

func (s *MemStore) InsertMessage(ctx context.Context, sender, recipient, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	m := &model.Message{
		ID:          ids.Next(),
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		CreatedAt:   s.Clock(),
	}
	s.msgs = append(s.msgs, m)
	return m, nil
}

func (s *MemStore) UpdateMessagesReadStatus(ctx context.Context, sender, recipient string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range s.msgs {
		if m.SenderID == sender && m.RecipientID == recipient && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *MemStore) DeleteMessages(ctx context.Context, peerA, peerB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	kept := s.msgs[:0]
	for _, m := range s.msgs {
		if !m.InConversation(peerA, peerB) {
			kept = append(kept, m)
		}
	}
	s.msgs = kept
	return nil
}

func (s *MemStore) QueryMessages(ctx context.Context, peerA, peerB string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	var out []*model.Message
	for _, m := range s.msgs {
		if m.InConversation(peerA, peerB) {
			cp := *m
			out = append(out, &cp)
		}
	}
	model.SortMessages(out)
	return out, nil
}

func (s *MemStore) QueryNotifications(ctx context.Context, recipient string, limit int64) ([]*model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	var out []*model.NotificationRecord
	for i := len(s.notifs) - 1; i >= 0; i-- { // newest seeded last
		n := s.notifs[i]
		if n.RecipientID != recipient {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}
