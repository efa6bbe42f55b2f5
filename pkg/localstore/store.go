// Package localstore provides the local persistence surface used when the
// remote service is unreachable. Records are namespaced by collection and
// keyed by ID; any embedded store can substitute for the in-memory default.
package localstore

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrStoreClosed = errors.New("local store is closed")
)

// Record is a locally persisted copy of a remote row.
type Record struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// LastConfirmedAt is the last time the remote service acknowledged
	// this record; zero means never confirmed
	LastConfirmedAt time.Time `json:"last_confirmed_at,omitempty"`
}

// Stale reports whether the record lacks remote confirmation within the
// given freshness window.
func (r *Record) Stale(window time.Duration, now time.Time) bool {
	if r.LastConfirmedAt.IsZero() {
		return true
	}
	return now.Sub(r.LastConfirmedAt) > window
}

// Store is the local persistence contract consumed by the fallback router.
type Store interface {
	// Get returns the record for collection+id, or ErrNotFound
	Get(collection, id string) (*Record, error)
	// Put stores or overwrites a record
	Put(record *Record) error
	// Delete removes a record; deleting an absent record is not an error
	Delete(collection, id string) error
	// List returns all records in a collection, ordered by UpdatedAt ascending
	List(collection string) ([]*Record, error)
	// Collections returns the names of non-empty collections
	Collections() ([]string, error)
	// Close releases resources; subsequent calls fail with ErrStoreClosed
	Close() error
}
