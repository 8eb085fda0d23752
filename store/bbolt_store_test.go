package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/eduflow/domain"
	autherr "go.pilab.hu/eduflow/errors"
)

func newBBoltStore(t *testing.T) *BBoltStore {
	t.Helper()
	s, err := NewBBoltStore(filepath.Join(t.TempDir(), "nested", "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		User:         &domain.User{ID: 7, Email: "a@b.com", Username: "tester"},
	}
}

func TestBBoltStoreRoundTrip(t *testing.T) {
	s := newBBoltStore(t)
	ctx := context.Background()

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "an empty store loads no session")

	want := testSession()
	require.NoError(t, s.Save(ctx, want))

	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, want.AccessToken, loaded.AccessToken)
	assert.Equal(t, want.RefreshToken, loaded.RefreshToken)
	assert.True(t, want.ExpiresAt.Equal(loaded.ExpiresAt))
	require.NotNil(t, loaded.User)
	assert.Equal(t, want.User.Email, loaded.User.Email)
}

func TestBBoltStoreSaveOverwrites(t *testing.T) {
	s := newBBoltStore(t)
	ctx := context.Background()

	first := testSession()
	require.NoError(t, s.Save(ctx, first))

	second := testSession()
	second.AccessToken = "rotated-access"
	second.RefreshToken = "rotated-refresh"
	require.NoError(t, s.Save(ctx, second))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", loaded.AccessToken)
	assert.Equal(t, "rotated-refresh", loaded.RefreshToken)
}

func TestBBoltStoreClearIsIdempotent(t *testing.T) {
	s := newBBoltStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSession()))
	require.NoError(t, s.Clear(ctx))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing an already empty store is a no-op.
	require.NoError(t, s.Clear(ctx))
}

func TestMemoryStoreCorruptedRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Corrupt([]byte(`{"access_token": "a", "expires_at": 12`))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, autherr.ErrCorruptedState)
}
