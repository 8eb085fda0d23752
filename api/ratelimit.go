package api

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
)

// attemptLimiter enforces the client-side cap on credential attempts: at
// most max attempts per identifier within a fixed window. The cap is applied
// before any network call is made.
type attemptLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	cache  *ttlcache.Cache[string, int]
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max <= 0 {
		max = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, int](window),
		ttlcache.WithDisableTouchOnHit[string, int](),
	)
	go cache.Start()

	return &attemptLimiter{
		max:    max,
		window: window,
		cache:  cache,
	}
}

// hashKey derives the cache key from the raw identifier.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Allow records one attempt for key and reports whether it is within the
// window's budget. The window is fixed, not sliding: it starts at the first
// attempt and attempts inside it never extend it.
func (l *attemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := hashKey(key)
	item := l.cache.Get(h)
	if item == nil {
		l.cache.Set(h, 1, l.window)
		return true
	}

	count := item.Value()
	if count >= l.max {
		return false
	}

	remaining := time.Until(item.ExpiresAt())
	if remaining <= 0 {
		remaining = l.window
	}
	l.cache.Set(h, count+1, remaining)

	return true
}

// Reset clears the attempt record for key, e.g. after a successful login.
func (l *attemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Delete(hashKey(key))
}

func (l *attemptLimiter) Stop() {
	l.cache.Stop()
}
