// Package api implements the REST client for the eduflow content backend:
// the auth endpoint set, the read-only content endpoints, and the
// authenticated transport that transparently recovers from token expiry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"go.pilab.hu/eduflow/config"
	autherr "go.pilab.hu/eduflow/errors"
	"go.pilab.hu/eduflow/log"
)

// Client talks to the content backend's REST API. All methods are safe for
// concurrent use.
type Client struct {
	baseURL     string
	publicToken string

	public *http.Client // plain transport, used for auth endpoints and public content

	authMu sync.RWMutex
	authed *http.Client // bearer-stamping transport, set via SetAuthTransport

	limiter  *rate.Limiter // outbound throttle towards the backend
	attempts *attemptLimiter
	content  *ttlcache.Cache[string, []byte]
	cacheTTL time.Duration

	logger log.Logger
}

// NewClient creates a Client from configuration. The returned client serves
// public content immediately; authenticated requests require
// SetAuthTransport to be called first (the session manager does this).
func NewClient(cfg *config.ClientConfig, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, []byte](cfg.ContentCacheTTL()),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go cache.Start()

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		publicToken: cfg.PublicAPIToken,
		public:      &http.Client{Timeout: cfg.RequestTimeout()},
		limiter:     rate.NewLimiter(rate.Limit(rps), rps),
		attempts:    newAttemptLimiter(cfg.AuthMaxAttempts, cfg.AuthWindow()),
		content:     cache,
		cacheTTL:    cfg.ContentCacheTTL(),
		logger:      logger,
	}
}

// SetAuthTransport wires the authenticated request pipeline. The token
// source and refresh function are injected explicitly so the transport never
// closes over session state that rotates underneath it.
func (c *Client) SetAuthTransport(source TokenSource, refresh RefreshFunc) {
	authed := &http.Client{
		Timeout: c.public.Timeout,
		Transport: &AuthTransport{
			Source:  source,
			Refresh: refresh,
			Logger:  c.logger,
		},
	}

	c.authMu.Lock()
	c.authed = authed
	c.authMu.Unlock()
}

// ClearAuthTransport drops the authenticated pipeline, e.g. after logout.
func (c *Client) ClearAuthTransport() {
	c.authMu.Lock()
	c.authed = nil
	c.authMu.Unlock()
}

// authedClient returns the authenticated pipeline, or nil when no session is
// wired. Reads race with logout, so the field is read under the lock.
func (c *Client) authedClient() *http.Client {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.authed
}

// Close stops the cache cleanup goroutines.
func (c *Client) Close() error {
	c.content.Stop()
	c.attempts.Stop()
	return nil
}

// requestOptions control how a single request is issued.
type requestOptions struct {
	bearer        string // explicit bearer token, overrides everything
	authenticated bool   // route through the authenticated pipeline
}

func (c *Client) httpClientFor(opts requestOptions) (*http.Client, error) {
	if opts.authenticated && opts.bearer == "" {
		authed := c.authedClient()
		if authed == nil {
			return nil, autherr.NewNotAuthenticated("no active session")
		}
		return authed, nil
	}
	return c.public, nil
}

// doJSON issues one JSON request and decodes the response into out (which
// may be nil for endpoints that only signal success). Non-2xx responses are
// returned as *errors.AuthError via mapError.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, opts requestOptions) error {
	data, err := c.do(ctx, method, path, body, opts)
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return autherr.NewRequestFailed("malformed response body")
		}
	}

	return nil
}

// do issues one JSON request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, body any, opts requestOptions) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	return c.send(ctx, method, path, "application/json", reader, opts)
}

// send issues one request with a prepared body and returns the raw response
// body. Non-2xx responses are returned as *errors.AuthError via mapError.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, opts requestOptions) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, autherr.NewRequestFailed(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, autherr.NewRequestFailed(err.Error())
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.NewString())
	switch {
	case opts.bearer != "":
		req.Header.Set("Authorization", "Bearer "+opts.bearer)
	case !opts.authenticated && c.publicToken != "":
		req.Header.Set("Authorization", "Bearer "+c.publicToken)
	}

	httpClient, err := c.httpClientFor(opts)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "request failed", err, map[string]interface{}{
			"method": method,
			"path":   path,
		})
		return nil, autherr.NewRequestFailed(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, autherr.NewRequestFailed(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.mapError(resp.StatusCode, data)
	}

	return data, nil
}

// serverMessage extracts the backend's error message, if any.
func serverMessage(data []byte) string {
	var envelope errorResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	if envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return envelope.Message
}

// mapError converts a non-2xx response into the client error taxonomy.
func (c *Client) mapError(status int, data []byte) error {
	if status == http.StatusTooManyRequests {
		return autherr.NewRateLimited("too many requests, please try again later")
	}

	msg := serverMessage(data)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}

	return autherr.NewRequestFailed(msg)
}
