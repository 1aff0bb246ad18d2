package realtime

import (
	"context"
	"sync"
)

type subscriber struct {
	ch    chan Event
	done  chan struct{}
	match Predicate
	once  sync.Once
}

// stop closes the subscriber; callers hold the feed lock.
func (s *subscriber) stop() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

// LocalFeed is an in-process fan-out feed. A subscriber whose buffer is full
// misses the event; consumers reconcile by refetching.
type LocalFeed struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	bufSize     int
	closed      bool
}

// NewLocalFeed creates a LocalFeed with the given per-subscriber buffer size
func NewLocalFeed(bufSize int) *LocalFeed {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalFeed{
		subscribers: make(map[string]map[*subscriber]struct{}),
		bufSize:     bufSize,
	}
}

// Publish sends ev to every matching subscriber of its table
func (f *LocalFeed) Publish(_ context.Context, ev Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for s := range f.subscribers[ev.Table] {
		if s.match != nil && !s.match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			// Drop if buffer is full
		}
	}
	return nil
}

// Subscribe registers a subscriber for table
func (f *LocalFeed) Subscribe(ctx context.Context, table string, match Predicate) (<-chan Event, func(), error) {
	s := &subscriber{ch: make(chan Event, f.bufSize), done: make(chan struct{}), match: match}

	f.mu.Lock()
	if f.closed {
		s.stop()
		f.mu.Unlock()
		return s.ch, func() {}, nil
	}
	if f.subscribers[table] == nil {
		f.subscribers[table] = make(map[*subscriber]struct{})
	}
	f.subscribers[table][s] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers[table], s)
		s.stop()
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()

	return s.ch, cancel, nil
}

// Close drops every subscriber and closes their channels
func (f *LocalFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for table, subs := range f.subscribers {
		for s := range subs {
			s.stop()
		}
		delete(f.subscribers, table)
	}
	return nil
}

// SubscriberCount returns the number of live subscribers of table
func (f *LocalFeed) SubscriberCount(table string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[table])
}
