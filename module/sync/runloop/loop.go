package runloop

import "sync"

const queueDepth = 1024

// Loop is a single-goroutine serial executor. Every closure posted to it
// runs to completion before the next one starts, which is the whole
// concurrency model of the sync core: component state is only touched
// from closures running on the component's loop, so handlers never
// interleave within one state update.
type Loop struct {
	ch   chan func()
	done chan struct{}
	once sync.Once
}

func New() *Loop {
	l := &Loop{
		ch:   make(chan func(), queueDepth),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case f := <-l.ch:
			f()
		case <-l.done:
			return
		}
	}
}

// Post enqueues f for execution on the loop. Returns false after Close;
// callers treat that as "scope is gone", not an error.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.ch <- f:
		return true
	case <-l.done:
		return false
	}
}

// Do runs f on the loop and waits for it to finish. Used for reads, so
// every observation is serialized against in-flight mutations.
func (l *Loop) Do(f func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		f()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		// the loop stopped before draining the queue; f may never run
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Close stops the loop. Idempotent. A short tail of already-queued
// closures may still run; scope epochs make that harmless.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}
