// Package fallback routes each logical operation to the remote provider
// when it is reachable and to local persistence otherwise, queuing offline
// mutations for replay once the connection returns.
package fallback

import (
	"time"
)

// Kind names the logical operation performed against a collection.
type Kind string

const (
	KindRead   Kind = "read"
	KindList   Kind = "list"
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Provenance tags where a result came from.
type Provenance string

const (
	ProvenanceRemote Provenance = "remote"
	ProvenanceCache  Provenance = "cache"
	ProvenanceLocal  Provenance = "local"
	ProvenanceQueued Provenance = "queued"
)

// Result is the outcome of a routed operation.
type Result struct {
	Provenance Provenance `json:"provenance"`
	Data       any        `json:"data,omitempty"`

	// Stale marks local reads with no remote confirmation inside the
	// freshness window
	Stale bool `json:"stale,omitempty"`
}

// PendingOperation is a mutation waiting for replay against the remote
// provider. Owned exclusively by the router's queue.
type PendingOperation struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Kind       Kind           `json:"kind"`
	Payload    map[string]any `json:"payload"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	Attempts   int            `json:"attempts"`

	// LastError records why the most recent replay attempt failed
	LastError string `json:"last_error,omitempty"`
}
