// Package memory provides an in-memory storage.HistoryStore for tests and
// single-process deployments. Entries are lost when the process restarts.
// Optional eviction of the oldest entry bounds memory usage.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/rhuss/webconsole/pkg/storage"
)

// Store is an in-memory HistoryStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List // front = newest, back = oldest
	maxSize int        // 0 = unlimited
}

// Ensure Store implements storage.HistoryStore at compile time.
var _ storage.HistoryStore = (*Store)(nil)

// New creates an in-memory store. If maxSize is 0 the store grows without
// limit; otherwise the oldest entry is evicted once the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Append stores a copy of e.
func (s *Store) Append(_ context.Context, e *storage.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && s.order.Len() >= s.maxSize {
		s.evictOldest()
	}

	cp := *e
	s.entries[e.ID] = s.order.PushFront(&cp)
	return nil
}

// Get returns a copy of the entry with the given ID.
func (s *Store) Get(_ context.Context, id string) (*storage.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elem, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *elem.Value.(*storage.Entry)
	return &cp, nil
}

// List returns matching entries, newest first.
func (s *Store) List(_ context.Context, opts storage.ListOptions) ([]*storage.Entry, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Entry, 0, min(opts.Limit, s.order.Len()))
	for elem := s.order.Front(); elem != nil && len(out) < opts.Limit; elem = elem.Next() {
		e := elem.Value.(*storage.Entry)
		if !opts.Matches(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// Clear removes every entry.
func (s *Store) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.order.Len()
	s.entries = make(map[string]*list.Element)
	s.order.Init()
	return n, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the oldest entry. Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.order.Back()
	if back == nil {
		return
	}
	s.order.Remove(back)
	delete(s.entries, back.Value.(*storage.Entry).ID)
}
