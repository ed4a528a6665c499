package tenantauth

import (
	"context"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/tenantauth/internal/audit"
	"github.com/MrEthical07/tenantauth/internal/limiters"
	"github.com/MrEthical07/tenantauth/internal/rate"
	"github.com/MrEthical07/tenantauth/password"
	"github.com/MrEthical07/tenantauth/session"
	"github.com/MrEthical07/tenantauth/token"
	"github.com/rs/zerolog"
)

// Engine is the session and access-control core. Build one with [New]; all
// methods are safe for concurrent use.
type Engine struct {
	config   Config
	now      func() time.Time
	logger   zerolog.Logger
	signer   *token.Signer
	hasher   *password.Hasher
	users    UserProvider
	sessions *session.Store
	limiter  *rate.Limiter
	lockout  *limiters.LockoutLimiter
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
}

// Close drains pending audit events, waiting at most until ctx ends.
func (e *Engine) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.audit.Close(ctx)
}

// AuditStats reports audit delivery counters.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}

// AuditDropped reports how many audit events were discarded.
func (e *Engine) AuditDropped() uint64 {
	return e.AuditStats().Dropped
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Signer exposes the cookie signer for the edge guard, which must verify
// signatures without touching storage.
func (e *Engine) Signer() *token.Signer {
	if e == nil {
		return nil
	}
	return e.signer
}

// CookieName is the configured session cookie name.
func (e *Engine) CookieName() string {
	if e == nil {
		return DefaultConfig().Session.CookieName
	}
	return e.config.Session.CookieName
}

// SessionCookie renders issued as an HttpOnly cookie.
func (e *Engine) SessionCookie(issued IssuedSession) *http.Cookie {
	return &http.Cookie{
		Name:     e.CookieName(),
		Value:    issued.Value,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   e.config.Session.SecureCookie,
		SameSite: e.config.Session.SameSite,
	}
}

// ClearSessionCookie returns a cookie that removes the session cookie.
func (e *Engine) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.CookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.config.Session.SecureCookie,
		SameSite: e.config.Session.SameSite,
	}
}

func (e *Engine) ready() error {
	if e == nil || e.sessions == nil || e.users == nil || e.signer == nil {
		return ErrEngineNotReady
	}
	return nil
}

// storageFailure logs and counts a backend error on a security path and
// returns it wrapped in ErrAuthUnavailable.
func (e *Engine) storageFailure(ctx context.Context, op string, err error) error {
	e.metricInc(MetricStorageFailure)
	e.logger.Error().Err(err).Str("op", op).Str("ip", clientIPFromContext(ctx)).Msg("storage failure")
	return unavailable(err)
}
