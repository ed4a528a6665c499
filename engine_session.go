package tenantauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tenantauth/session"
	"github.com/MrEthical07/tenantauth/token"
)

// CreateSession issues a token for userID, stores its hash and returns the
// signed cookie value with its expiry.
func (e *Engine) CreateSession(ctx context.Context, userID string) (IssuedSession, error) {
	if err := e.ready(); err != nil {
		return IssuedSession{}, err
	}
	if userID == "" {
		return IssuedSession{}, &ValidationError{Field: "userId", Message: "is required"}
	}

	tok, value, err := e.signer.Issue()
	if err != nil {
		return IssuedSession{}, e.storageFailure(ctx, "session.issue", err)
	}

	now := e.now()
	expiresAt := now.Add(e.config.Session.TTL)
	err = e.sessions.Save(ctx, &session.Session{
		TokenHash: token.Hash(tok),
		UserID:    userID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
	})
	if err != nil {
		return IssuedSession{}, e.storageFailure(ctx, "session.save", err)
	}

	e.metricInc(MetricSessionCreated)
	return IssuedSession{Value: value, ExpiresAt: expiresAt}, nil
}

// VerifySession resolves a cookie value to the identity it was issued for.
// Every failure, including backend errors, satisfies errors.Is(err,
// ErrNoSession); the underlying reason is logged, not returned.
func (e *Engine) VerifySession(ctx context.Context, cookieValue string) (AuthContext, error) {
	if err := e.ready(); err != nil {
		return AuthContext{}, ErrNoSession
	}

	start := time.Now()
	auth, reason, err := e.verifySession(ctx, cookieValue)
	if e.metrics != nil {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	if reason == "" {
		return auth, nil
	}

	e.metricInc(MetricSessionRejected)
	if err != nil {
		_ = e.storageFailure(ctx, "session.verify."+reason, err)
	} else {
		e.logger.Debug().Str("reason", reason).Msg("session rejected")
	}
	return AuthContext{}, ErrNoSession
}

// verifySession returns a non-empty reason on rejection and the backend error
// when the rejection was caused by one.
func (e *Engine) verifySession(ctx context.Context, cookieValue string) (AuthContext, string, error) {
	tok, err := e.signer.Open(cookieValue)
	if err != nil {
		if errors.Is(err, token.ErrBadSignature) {
			return AuthContext{}, "bad_signature", nil
		}
		return AuthContext{}, "malformed", nil
	}

	hash := token.Hash(tok)
	sess, err := e.sessions.Get(ctx, hash)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return AuthContext{}, "not_found", nil
	case errors.Is(err, session.ErrSessionCorrupt):
		_, _ = e.sessions.Delete(ctx, hash)
		return AuthContext{}, "corrupt", nil
	case err != nil:
		return AuthContext{}, "store", err
	}

	user, err := e.users.GetUserByID(ctx, sess.UserID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if _, err := e.sessions.Delete(ctx, hash); err != nil {
			return AuthContext{}, "orphan", err
		}
		return AuthContext{}, "orphan", nil
	case err != nil:
		return AuthContext{}, "user_lookup", err
	}

	auth := AuthContext{
		UserID:   user.UserID,
		Username: user.Username,
		Role:     user.Role,
		TenantID: user.TenantID,
	}
	if !auth.Valid() {
		return AuthContext{}, "invalid_identity", nil
	}
	return auth, "", nil
}

// DestroySession deletes the session behind cookieValue. Missing, malformed
// and forged values are a no-op, so calling it twice is safe.
func (e *Engine) DestroySession(ctx context.Context, cookieValue string) error {
	if err := e.ready(); err != nil {
		return err
	}

	tok, err := e.signer.Open(cookieValue)
	if err != nil {
		return nil
	}
	hash := token.Hash(tok)

	var userID string
	sess, err := e.sessions.Get(ctx, hash)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return nil
	case errors.Is(err, session.ErrSessionCorrupt):
	case err != nil:
		return e.storageFailure(ctx, "session.destroy", err)
	default:
		userID = sess.UserID
	}

	deleted, err := e.sessions.Delete(ctx, hash)
	if err != nil {
		return e.storageFailure(ctx, "session.destroy", err)
	}
	if deleted {
		e.metricInc(MetricSessionDestroyed)
		e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
	}
	return nil
}

// RevokeUserSessions deletes every session belonging to userID and returns
// how many were removed.
func (e *Engine) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	n, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, e.storageFailure(ctx, "session.revoke_all", err)
	}
	if e.metrics != nil && n > 0 {
		e.metrics.Add(MetricSessionsRevoked, uint64(n))
	}
	return n, nil
}
