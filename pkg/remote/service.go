// Package remote defines the contract for the hosted database/auth provider.
// The core treats it as an opaque capability: any backend exposing
// collection-style CRUD plus token auth can substitute for the HTTP client.
package remote

import (
	"context"
	"time"
)

// Filter holds equality predicates applied to a Select.
type Filter map[string]string

// Row is a single collection row as returned by the provider.
type Row map[string]any

// Session is an authenticated provider session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the session needs a refresh within d.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return true
	}
	return time.Until(s.ExpiresAt) < d
}

// Service is the remote provider surface consumed by the fallback router
// and the orchestrator.
type Service interface {
	// Select returns rows matching the equality filter (nil = all rows)
	Select(ctx context.Context, collection string, filter Filter) ([]Row, error)
	// Insert creates a row and returns it with server-assigned fields
	Insert(ctx context.Context, collection string, row Row) (Row, error)
	// Update patches the row with the given id
	Update(ctx context.Context, collection, id string, row Row) (Row, error)
	// Delete removes the row with the given id
	Delete(ctx context.Context, collection, id string) error
	// Authenticate exchanges credentials for a session
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	// Ping probes reachability and returns the round-trip latency
	Ping(ctx context.Context) (time.Duration, error)
}
