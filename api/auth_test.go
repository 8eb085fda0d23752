package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/eduflow/config"
	autherr "go.pilab.hu/eduflow/errors"
)

func testClientConfig(baseURL string) *config.ClientConfig {
	return &config.ClientConfig{
		BaseURL:             baseURL,
		TokenValidityHours:  24,
		RefreshThresholdMin: 5,
		AuthMaxAttempts:     5,
		AuthWindowMin:       15,
		RequestTimeoutSec:   5,
		RequestsPerSec:      100,
		ContentCacheTTLSec:  60,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(testClientConfig(server.URL), nil)
	t.Cleanup(func() { client.Close() })

	return client, server
}

func writeAuthResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{
		"jwt":          "access-token",
		"refreshToken": "refresh-token",
		"user": map[string]any{
			"id":       7,
			"email":    "a@b.com",
			"username": "tester",
		},
	})
}

func TestLoginSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/local", r.URL.Path)

		var body LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body.Identifier)

		writeAuthResponse(w)
	}))

	resp, err := client.Login(context.Background(), "a@b.com", "Pw1!aaaa")
	require.NoError(t, err)
	assert.Equal(t, "access-token", resp.JWT)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, 7, resp.User.ID)
}

func TestLoginRejectionReadsAsInvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"status":400,"name":"ValidationError","message":"Invalid identifier or password"}}`)
	}))

	_, err := client.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)
}

func TestLoginBackendRateLimit(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Login(context.Background(), "a@b.com", "Pw1!aaaa")
	assert.ErrorIs(t, err, autherr.ErrRateLimited)
}

func TestLoginClientSideAttemptLimit(t *testing.T) {
	var requests int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid identifier or password"}}`)
	}))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.Login(ctx, "a@b.com", "wrong")
		assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)
	}

	// The 6th consecutive attempt within the window is rejected locally.
	_, err := client.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, autherr.ErrRateLimited)
	assert.EqualValues(t, 5, atomic.LoadInt32(&requests), "the rejected attempt must not reach the network")

	// Other identifiers are unaffected.
	_, err = client.Login(ctx, "c@d.com", "wrong")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)
}

func TestRegisterValidatesLocally(t *testing.T) {
	var requests int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeAuthResponse(w)
	}))

	ctx := context.Background()

	_, err := client.Register(ctx, "tester", "not-an-email", "Pw1!aaaa", "")
	assert.ErrorIs(t, err, autherr.ErrValidationFailed)

	_, err = client.Register(ctx, "tester", "a@b.com", "weak", "")
	assert.ErrorIs(t, err, autherr.ErrValidationFailed)

	assert.Zero(t, atomic.LoadInt32(&requests), "local validation failures must not reach the network")

	_, err = client.Register(ctx, "tester", "a@b.com", "Pw1!aaaa", "Tester")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))
}

func TestRegisterSurfacesServerMessageVerbatim(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"status":400,"name":"ApplicationError","message":"Email is already taken"}}`)
	}))

	_, err := client.Register(context.Background(), "tester", "a@b.com", "Pw1!aaaa", "")
	require.ErrorIs(t, err, autherr.ErrValidationFailed)

	var authErr *autherr.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Email is already taken", authErr.Description)
}

func TestRefreshTokenUsesOldBearer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh-token", r.URL.Path)
		require.Equal(t, "Bearer old-access", r.Header.Get("Authorization"))

		var body RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body.RefreshToken)

		fmt.Fprint(w, `{"jwt":"new-access","refreshToken":"new-refresh"}`)
	}))

	resp, err := client.RefreshToken(context.Background(), "old-access", "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.JWT)
	assert.Equal(t, "new-refresh", resp.RefreshToken)
}

func TestChangePasswordSendsBearerAndBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/change-password", r.URL.Path)
		require.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))

		var body ChangePasswordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old", body.CurrentPassword)
		assert.Equal(t, "new", body.NewPassword)
		assert.Equal(t, 7, body.UserID)

		w.WriteHeader(http.StatusOK)
	}))

	err := client.ChangePassword(context.Background(), "session-token", "old", "new", 7)
	require.NoError(t, err)
}

func TestEmailFlowsRejectEmptyInputLocally(t *testing.T) {
	var requests int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()

	assert.ErrorIs(t, client.ForgotPassword(ctx, ""), autherr.ErrRequestFailed)
	assert.ErrorIs(t, client.VerifyEmail(ctx, ""), autherr.ErrRequestFailed)
	assert.ErrorIs(t, client.SendEmailConfirmation(ctx, ""), autherr.ErrRequestFailed)

	assert.Zero(t, atomic.LoadInt32(&requests), "empty inputs are rejected before any network call")
}

func TestVerifyEmailEscapesConfirmationToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/email-confirmation", r.URL.Path)
		assert.Equal(t, "tok en+1", r.URL.Query().Get("confirmation"))
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.VerifyEmail(context.Background(), "tok en+1"))
}
