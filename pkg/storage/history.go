package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// MaxListLimit is the largest limit List honors.
const MaxListLimit = 1000

// Entry records one console evaluation.
type Entry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Line       int       `json:"line"`
	Query      string    `json:"query"`
	Result     string    `json:"result"`
	Failed     bool      `json:"failed"`
	Subject    string    `json:"subject"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEntry returns an entry with a fresh ID and the current time.
func NewEntry() *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// ListOptions filters and bounds List.
type ListOptions struct {
	// Limit is the maximum number of entries returned. Zero means
	// DefaultListLimit; values above MaxListLimit are clamped.
	Limit int

	// SessionID restricts the result to one session when set.
	SessionID string

	// Subject restricts the result to one authenticated caller when set.
	Subject string
}

// Normalize returns opts with the limit clamped into range.
func (o ListOptions) Normalize() ListOptions {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultListLimit
	case o.Limit > MaxListLimit:
		o.Limit = MaxListLimit
	}
	return o
}

// Matches reports whether e passes the filters in opts.
func (o ListOptions) Matches(e *Entry) bool {
	if o.SessionID != "" && e.SessionID != o.SessionID {
		return false
	}
	if o.Subject != "" && e.Subject != o.Subject {
		return false
	}
	return true
}

// HistoryStore persists console evaluations. Implementations must be safe
// for concurrent use.
type HistoryStore interface {
	// Append stores a new entry. Returns ErrConflict if the ID exists.
	Append(ctx context.Context, e *Entry) error

	// Get returns the entry with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns matching entries, newest first.
	List(ctx context.Context, opts ListOptions) ([]*Entry, error)

	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
