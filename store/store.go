// Package store provides durable persistence for the client's session
// record. The whole session is serialized as a single record under one key,
// so a crash mid-write can never leave a partially updated credential set.
package store

import (
	"context"

	"go.pilab.hu/eduflow/domain"
)

// CredentialStore persists the session record between client runs.
type CredentialStore interface {
	// Save overwrites the stored session record.
	Save(ctx context.Context, session *domain.Session) error
	// Load returns the stored session, or (nil, nil) when no record exists.
	// An unreadable record yields a corrupted_state error.
	Load(ctx context.Context) (*domain.Session, error)
	// Clear removes the stored record. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
	// Close releases underlying resources.
	Close() error
}
