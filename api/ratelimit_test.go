package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptLimiterFixedWindow(t *testing.T) {
	limiter := newAttemptLimiter(3, time.Minute)

	assert.True(t, limiter.Allow("login:a@b.com"))
	assert.True(t, limiter.Allow("login:a@b.com"))
	assert.True(t, limiter.Allow("login:a@b.com"))
	assert.False(t, limiter.Allow("login:a@b.com"), "the budget is exhausted after max attempts")
	assert.False(t, limiter.Allow("login:a@b.com"), "further attempts stay rejected inside the window")
}

func TestAttemptLimiterKeysAreIndependent(t *testing.T) {
	limiter := newAttemptLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("login:a@b.com"))
	assert.False(t, limiter.Allow("login:a@b.com"))
	assert.True(t, limiter.Allow("login:c@d.com"))
	assert.True(t, limiter.Allow("register:a@b.com"), "login and register budgets are separate")
}

func TestAttemptLimiterWindowExpires(t *testing.T) {
	limiter := newAttemptLimiter(1, 30*time.Millisecond)

	assert.True(t, limiter.Allow("login:a@b.com"))
	assert.False(t, limiter.Allow("login:a@b.com"))

	time.Sleep(60 * time.Millisecond)

	assert.True(t, limiter.Allow("login:a@b.com"), "a fresh window opens after expiry")
}

func TestAttemptLimiterReset(t *testing.T) {
	limiter := newAttemptLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("login:a@b.com"))
	assert.False(t, limiter.Allow("login:a@b.com"))

	limiter.Reset("login:a@b.com")

	assert.True(t, limiter.Allow("login:a@b.com"))
}
