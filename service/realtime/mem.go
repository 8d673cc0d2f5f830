package realtime

import "sync"

// MemFeed is an in-process change feed for tests and local runs.
// Publish delivers synchronously on the caller's goroutine, which makes
// test ordering deterministic.
type MemFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*memSub
}

type memSub struct {
	feed *MemFeed
	id   int
	p    Predicate
	h    Handler
	once sync.Once
}

func NewMemFeed() *MemFeed {
	return &MemFeed{subs: make(map[int]*memSub)}
}

func (f *MemFeed) Subscribe(p Predicate, h Handler) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &memSub{feed: f, id: f.nextID, p: p, h: h}
	f.subs[s.id] = s
	return s, nil
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
	})
	return nil
}

// Publish fans ev out to every matching subscription.
func (f *MemFeed) Publish(ev Event) {
	f.mu.Lock()
	var targets []*memSub
	for _, s := range f.subs {
		if Matches(s.p, ev, RowRecipient(ev.Row)) {
			targets = append(targets, s)
		}
	}
	f.mu.Unlock()
	for _, s := range targets {
		s.h(ev)
	}
}

// SubCount reports live subscriptions; tests assert teardown-before-create.
func (f *MemFeed) SubCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// ErrFeed always fails to subscribe; components must degrade, not crash.
type ErrFeed struct{ Err error }

func (f ErrFeed) Subscribe(Predicate, Handler) (Subscription, error) { return nil, f.Err }
