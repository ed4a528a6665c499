package tenantauth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLockoutScenario(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice123", "Acme Valuers")
	ctx := ipCtx("203.0.113.7")

	for want := 4; want >= 1; want-- {
		_, err := h.engine.Login(ctx, "alice123", "wrong-password")
		var credErr *CredentialsError
		require.ErrorAs(t, err, &credErr)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, want, credErr.RemainingAttempts)
	}

	_, err := h.engine.Login(ctx, "alice123", "wrong-password")
	var lockErr *LockoutError
	require.ErrorAs(t, err, &lockErr, "fifth failure must report the lock")
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, 15, lockErr.Minutes())

	_, err = h.engine.Login(ctx, "alice123", testPassword)
	require.ErrorIs(t, err, ErrAccountLocked, "correct password while locked")

	h.clock.Advance(15 * time.Minute)

	res, err := h.engine.Login(ctx, "ALICE123", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice123", res.Auth.Username)

	n, err := h.engine.lockout.GetFailureCount(context.Background(), lockoutKey("alice123"))
	require.NoError(t, err)
	assert.Zero(t, n)

	snap := h.engine.MetricsSnapshot()
	assert.Equal(t, uint64(5), snap.Counters[MetricLoginFailure])
	assert.Equal(t, uint64(1), snap.Counters[MetricLockoutTriggered])
	assert.Equal(t, uint64(1), snap.Counters[MetricLoginLocked])
}

func TestLoginCorrectPasswordAfterFourFailuresSucceeds(t *testing.T) {
	h := newHarness(t)
	h.register(t, "carol", "Carol Co")
	ctx := ipCtx("203.0.113.9")

	for i := 0; i < 4; i++ {
		_, err := h.engine.Login(ctx, "carol", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Only a failure can reach the threshold, so the fifth attempt is judged
	// on its password.
	_, err := h.engine.Login(ctx, "carol", testPassword)
	require.NoError(t, err)

	n, err := h.engine.lockout.GetFailureCount(context.Background(), lockoutKey("carol"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoginSuccessResetsFailureCount(t *testing.T) {
	h := newHarness(t)
	h.register(t, "bob", "Bob Co")
	ctx := ipCtx("203.0.113.8")

	for i := 0; i < 3; i++ {
		_, err := h.engine.Login(ctx, "bob", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := h.engine.Login(ctx, "bob", testPassword)
	require.NoError(t, err)

	_, err = h.engine.Login(ctx, "bob", "wrong-password")
	var credErr *CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 4, credErr.RemainingAttempts)
}

func TestLoginUnknownUserCountsAsFailure(t *testing.T) {
	h := newHarness(t)
	ctx := ipCtx("203.0.113.9")

	_, err := h.engine.Login(ctx, "ghost", "whatever-pass")
	var credErr *CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 4, credErr.RemainingAttempts)

	for i := 0; i < 4; i++ {
		_, err = h.engine.Login(ctx, "ghost", "whatever-pass")
	}
	assert.ErrorIs(t, err, ErrAccountLocked, "unknown users lock exactly like known ones")
}

func TestLoginRateLimitPerIP(t *testing.T) {
	h := newHarness(t)
	ctx := ipCtx("198.51.100.20")

	for i := 0; i < 10; i++ {
		_, err := h.engine.Login(ctx, fmt.Sprintf("user%02d", i), "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}

	h.clock.Advance(10 * time.Second)
	_, err := h.engine.Login(ctx, "user99", "wrong-password")
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.ErrorIs(t, err, ErrLoginRateLimited)
	assert.Equal(t, 50*time.Second, rlErr.RetryAfter)
	assert.Equal(t, 50, rlErr.Seconds())

	_, err = h.engine.Login(ipCtx("198.51.100.21"), "user99", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "other IPs have their own window")

	h.clock.Advance(50*time.Second + time.Millisecond)
	_, err = h.engine.Login(ctx, "user99", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "window has slid")
}

func TestLoginWithoutClientIPUsesSharedBucket(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Login(context.Background(), "nobody", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, h.mr.Exists("rl:login:unknown"))
}

func TestLoginRejectsMalformedInput(t *testing.T) {
	h := newHarness(t)
	ctx := ipCtx("198.51.100.30")

	cases := map[string][2]string{
		"empty username":   {"", "password-123"},
		"bad characters":   {"bob smith!", "password-123"},
		"too short":        {"ab", "password-123"},
		"missing password": {"bob", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.engine.Login(ctx, c[0], c[1])
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.False(t, h.mr.Exists("rl:login:198.51.100.30"), "malformed input does not consume the window")
}

func TestLoginFailsClosedWhenRedisDown(t *testing.T) {
	h := newHarness(t)
	h.register(t, "carol", "Carol Ltd")
	h.mr.Close()

	_, err := h.engine.Login(ipCtx("198.51.100.40"), "carol", testPassword)
	require.ErrorIs(t, err, ErrAuthUnavailable)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	assert.Equal(t, uint64(1), h.engine.MetricsSnapshot().Counters[MetricStorageFailure])
}

func TestLoginFailsClosedWhenUserStoreDown(t *testing.T) {
	h := newHarness(t)
	h.users.setFailure(errBackendDown)

	_, err := h.engine.Login(ipCtx("198.51.100.41"), "dave", testPassword)
	require.ErrorIs(t, err, ErrAuthUnavailable)

	n, err := h.engine.lockout.GetFailureCount(context.Background(), lockoutKey("dave"))
	require.NoError(t, err)
	assert.Zero(t, n, "backend errors are not counted as failures")
}
