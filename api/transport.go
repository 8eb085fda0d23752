package api

import (
	"context"
	"net/http"

	"go.pilab.hu/eduflow/log"
)

// TokenSource returns the access token to stamp on an outgoing request. It
// is consulted at send time, so a rotated token pair is always picked up.
type TokenSource func() string

// RefreshFunc exchanges the current token pair for a new one and returns the
// new access token. Invoked by the transport when a request comes back 401.
type RefreshFunc func(ctx context.Context) (string, error)

// retriedHeader marks a request that already went through one 401-triggered
// retry, guaranteeing at most one refresh per logical request.
const retriedHeader = "X-Eduflow-Retried"

// AuthTransport is an http.RoundTripper that stamps the current bearer token
// on every request and transparently recovers from token expiry: on a 401 it
// refreshes once, re-stamps the request and resubmits it exactly once.
type AuthTransport struct {
	Base    http.RoundTripper
	Source  TokenSource
	Refresh RefreshFunc
	Logger  log.Logger
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *AuthTransport) logger() log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.NewNop()
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if t.Source != nil {
		out.Header.Set("Authorization", "Bearer "+t.Source())
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A request that already used its one retry fails outright; no second
	// refresh is ever triggered for the same logical request.
	if req.Header.Get(retriedHeader) != "" || t.Refresh == nil {
		return resp, nil
	}

	// Requests with a non-replayable body cannot be resubmitted.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	newToken, refreshErr := t.Refresh(req.Context())
	if refreshErr != nil {
		// Refresh failure has already forced logout as a side effect;
		// surface the original authorization failure to the caller.
		t.logger().Warn(req.Context(), "token refresh after 401 failed", map[string]interface{}{
			"url": req.URL.Path,
		})
		return resp, nil
	}

	resp.Body.Close()

	retry := req.Clone(req.Context())
	retry.Header.Set(retriedHeader, "1")
	retry.Header.Set("Authorization", "Bearer "+newToken)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	return t.base().RoundTrip(retry)
}

var _ http.RoundTripper = (*AuthTransport)(nil)
