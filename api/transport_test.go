package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherr "go.pilab.hu/eduflow/errors"
)

func TestAuthTransportStampsBearerAtSendTime(t *testing.T) {
	var seen atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	token := "first"
	client := &http.Client{Transport: &AuthTransport{
		Source: func() string { return token },
	}}

	_, err := client.Get(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", seen.Load())

	// A rotated pair is picked up on the next request without rebuilding
	// the client.
	token = "second"
	_, err = client.Get(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", seen.Load())
}

func TestAuthTransportRetriesOnceAfterRefresh(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Header.Get("Authorization") == "Bearer fresh" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var refreshes int32
	client := &http.Client{Transport: &AuthTransport{
		Source: func() string { return "expired" },
		Refresh: func(context.Context) (string, error) {
			atomic.AddInt32(&refreshes, 1)
			return "fresh", nil
		},
	}}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshes))
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestAuthTransportNeverRefreshesTwice(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var refreshes int32
	client := &http.Client{Transport: &AuthTransport{
		Source: func() string { return "expired" },
		Refresh: func(context.Context) (string, error) {
			atomic.AddInt32(&refreshes, 1)
			return "still-rejected", nil
		},
	}}

	// Two consecutive 401s: exactly one refresh, the request fails, no loop.
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshes))
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestAuthTransportSurfacesOriginal401OnRefreshFailure(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := &http.Client{Transport: &AuthTransport{
		Source: func() string { return "expired" },
		Refresh: func(context.Context) (string, error) {
			return "", autherr.NewRequestFailed("refresh rejected")
		},
	}}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests), "a failed refresh must not resubmit the request")
}
