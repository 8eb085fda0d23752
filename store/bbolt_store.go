package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"go.pilab.hu/eduflow/domain"
	autherr "go.pilab.hu/eduflow/errors"
)

const (
	credentialsBucket = "credentials"
	sessionKey        = "session"
)

// BBoltStore is a file-backed CredentialStore built on BBoltDB. It is the
// default backend for desktop and CLI installs.
type BBoltStore struct {
	db *bbolt.DB
}

// NewBBoltStore opens (and if necessary creates) the credential database at
// dbPath, creating parent directories as needed.
func NewBBoltStore(dbPath string) (*BBoltStore, error) {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create credential directory %s: %w", dir, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check credential directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential db at %s: %w", dbPath, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credentials bucket: %w", err)
	}

	return &BBoltStore{db: db}, nil
}

// Save implements CredentialStore.Save.
func (s *BBoltStore) Save(_ context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(credentialsBucket)).Put([]byte(sessionKey), data)
	})
}

// Load implements CredentialStore.Load.
func (s *BBoltStore) Load(_ context.Context) (*domain.Session, error) {
	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(credentialsBucket)).Get([]byte(sessionKey)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

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
func (s *BBoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(credentialsBucket)).Delete([]byte(sessionKey))
	})
}

// Close closes the underlying database file.
func (s *BBoltStore) Close() error {
	return s.db.Close()
}
