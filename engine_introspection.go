package tenantauth

import (
	"context"
	"time"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
	// UsersAvailable is false only when the UserProvider implements
	// Ping and it failed.
	UsersAvailable bool
}

// Healthy reports whether every backend answered.
func (h HealthStatus) Healthy() bool {
	return h.RedisAvailable && h.UsersAvailable
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health pings Redis and, when supported, the user store.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e.ready() != nil {
		return HealthStatus{}
	}

	latency, err := e.sessions.Ping(ctx)
	status := HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
		UsersAvailable: true,
	}
	if p, ok := e.users.(pinger); ok {
		status.UsersAvailable = p.Ping(ctx) == nil
	}
	return status
}

// GetActiveSessionCount returns the number of sessions indexed for the
// acting user. Expired sessions may be counted until they are next touched.
func (e *Engine) GetActiveSessionCount(ctx context.Context, auth AuthContext) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if !auth.Valid() {
		return 0, ErrNoSession
	}
	n, err := e.sessions.CountForUser(ctx, auth.UserID)
	if err != nil {
		return 0, e.storageFailure(ctx, "session.count", err)
	}
	return n, nil
}

// GetLoginAttempts returns the active failure count for username. Admins only.
func (e *Engine) GetLoginAttempts(ctx context.Context, auth AuthContext, username string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.requireManageUsers(auth, "login_attempts"); err != nil {
		return 0, err
	}
	name := NormalizeUsername(username)
	if name == "" {
		return 0, nil
	}
	n, err := e.lockout.GetFailureCount(ctx, lockoutKey(name))
	if err != nil {
		return 0, e.storageFailure(ctx, "lockout.count", err)
	}
	return n, nil
}
