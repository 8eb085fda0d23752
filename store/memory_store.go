package store

import (
	"context"
	"encoding/json"
	"sync"

	"go.pilab.hu/eduflow/domain"
	autherr "go.pilab.hu/eduflow/errors"
)

// MemoryStore is an in-process CredentialStore. Sessions do not survive a
// restart; it exists for tests and for embedding hosts that manage their own
// persistence.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements CredentialStore.Save.
func (s *MemoryStore) Save(_ context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()

	return nil
}

// Load implements CredentialStore.Load.
func (s *MemoryStore) Load(_ context.Context) (*domain.Session, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		return nil, nil
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, autherr.NewCorruptedState("stored session record is not valid JSON")
	}

	return &session, nil
}

// Clear implements CredentialStore.Clear.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()

	return nil
}

// Close implements CredentialStore.Close.
func (s *MemoryStore) Close() error { return nil }

// Corrupt overwrites the stored record with bytes that cannot be decoded.
// Test helper for exercising corrupted-state recovery.
func (s *MemoryStore) Corrupt(raw []byte) {
	s.mu.Lock()
	s.data = raw
	s.mu.Unlock()
}

var (
	_ CredentialStore = (*MemoryStore)(nil)
	_ CredentialStore = (*BBoltStore)(nil)
	_ CredentialStore = (*RedisStore)(nil)
)
