package domain

import "time"

// User is the profile snapshot bound to a session. It mirrors what the
// backend returns from its auth endpoints.
type User struct {
	ID              int    `json:"id"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Name            string `json:"name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// Session represents the authenticated identity bound to the running client.
// A session is either fully authenticated (both tokens present) or fully
// anonymous (zero value); there is no partially-authenticated state.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// IsZero reports whether the session is anonymous.
func (s *Session) IsZero() bool {
	return s == nil || s.AccessToken == "" || s.RefreshToken == ""
}

// IsExpired reports whether the access token has passed its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NeedsRefresh reports whether the session is inside the refresh threshold,
// i.e. it will expire within the threshold or already has.
func (s *Session) NeedsRefresh(now time.Time, threshold time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-threshold))
}
