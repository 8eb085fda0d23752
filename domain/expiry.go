package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenValidity is the fixed validity window assumed for access
// tokens whose lifetime cannot be read from the token itself.
const DefaultTokenValidity = 24 * time.Hour

// TokenExpiry derives the expiry of an access token. The backend's own
// lifetime is authoritative when the token is a JWT with an exp claim;
// otherwise the fixed fallback window applies. The token signature is NOT
// verified here, only the exp claim is read, so a lifetime claimed by a
// forged token only affects the client's refresh schedule.
func TokenExpiry(token string, now time.Time, fallback time.Duration) time.Time {
	if fallback <= 0 {
		fallback = DefaultTokenValidity
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Time.After(now) {
			return exp.Time
		}
	}

	return now.Add(fallback)
}
