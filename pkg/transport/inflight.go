package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InFlightRegistry tracks in-flight evaluations for explicit cancellation.
// It maps request IDs to their cancel functions so a second request can
// interrupt an evaluation that is still running.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
}

type inflightEntry struct {
	cancel context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[string]*inflightEntry),
	}
}

// Register adds an in-flight evaluation to the registry. Request IDs come
// from clients, so an ID that is already registered gets a numeric suffix.
// It returns the ID the evaluation was registered under and a function that
// removes exactly this registration; the owner calls it when done.
func (r *InFlightRegistry) Register(id string, cancel context.CancelFunc) (string, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id
	for n := 2; ; n++ {
		if _, taken := r.entries[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s-%d", id, n)
	}

	e := &inflightEntry{cancel: cancel}
	r.entries[key] = e

	return key, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// The key may have been cancelled and reused by a later evaluation.
		if r.entries[key] == e {
			delete(r.entries, key)
		}
	}
}

// Cancel cancels an in-flight evaluation by calling its cancel function.
// Returns false if the ID was not registered (either already completed or
// never existed).
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.cancel()
	delete(r.entries, id)
	return true
}

// CancelAll cancels every registered evaluation and returns how many there were.
func (r *InFlightRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	for id, e := range r.entries {
		e.cancel()
		delete(r.entries, id)
	}
	return n
}

// Remove removes an evaluation from the registry without cancelling it.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// IDs returns the registered IDs in sorted order.
func (r *InFlightRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
