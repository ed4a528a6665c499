package tenantauth

import (
	"context"
	"errors"
	"strconv"
)

const unknownClientIP = "unknown"

func loginRateKey(ip string) string    { return "login:" + ip }
func registerRateKey(ip string) string { return "register:" + ip }
func lockoutKey(username string) string {
	return "user:" + username
}

func clientKey(ctx context.Context) string {
	if ip := clientIPFromContext(ctx); ip != "" {
		return ip
	}
	return unknownClientIP
}

// Login authenticates username and password and starts a session.
//
// Order of checks: input shape, the per-IP sliding window, the per-username
// lockout, then credentials. An unknown username costs a full password hash
// and is counted against the lockout exactly like a wrong password.
//
// Failures carry detail through the error chain: *RateLimitError,
// *LockoutError and *CredentialsError.
func (e *Engine) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if err := e.ready(); err != nil {
		return LoginResult{}, err
	}

	name := NormalizeUsername(username)
	if err := validateUsername(name); err != nil {
		return LoginResult{}, err
	}
	if err := e.validateLoginPassword(password); err != nil {
		return LoginResult{}, err
	}

	decision, err := e.limiter.Check(ctx, loginRateKey(clientKey(ctx)), e.config.RateLimit.LoginMax, e.config.RateLimit.LoginWindow)
	if err != nil {
		return LoginResult{}, e.storageFailure(ctx, "login.rate", err)
	}
	if !decision.Allowed {
		rlErr := &RateLimitError{Cause: ErrLoginRateLimited, RetryAfter: decision.RetryAfter}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", rlErr, map[string]string{
			"username": name,
		})
		return LoginResult{}, rlErr
	}

	key := lockoutKey(name)
	state, err := e.lockout.Check(ctx, key)
	if err != nil {
		return LoginResult{}, e.storageFailure(ctx, "login.lockout", err)
	}
	if state.Locked {
		lockErr := &LockoutError{Remaining: state.Remaining}
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", "", lockErr, map[string]string{
			"username": name,
		})
		return LoginResult{}, lockErr
	}

	user, err := e.users.GetUserByUsername(ctx, name)
	if errors.Is(err, ErrUserNotFound) {
		e.hasher.VerifyDummy(password)
		return LoginResult{}, e.loginFailed(ctx, key, name, UserRecord{})
	}
	if err != nil {
		return LoginResult{}, e.storageFailure(ctx, "login.user_lookup", err)
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", user.UserID).Msg("stored password hash unreadable")
	}
	if !ok {
		return LoginResult{}, e.loginFailed(ctx, key, name, user)
	}

	if err := e.lockout.Reset(ctx, key); err != nil {
		return LoginResult{}, e.storageFailure(ctx, "login.lockout_reset", err)
	}

	issued, err := e.CreateSession(ctx, user.UserID)
	if err != nil {
		return LoginResult{}, err
	}

	e.rehashIfNeeded(ctx, user, password)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, user.TenantID, nil, nil)

	return LoginResult{
		Auth: AuthContext{
			UserID:   user.UserID,
			Username: user.Username,
			Role:     user.Role,
			TenantID: user.TenantID,
		},
		Session: issued,
	}, nil
}

// loginFailed records one failed attempt and returns the error for it. The
// failure that reaches the threshold already reports the lock.
func (e *Engine) loginFailed(ctx context.Context, key, username string, user UserRecord) error {
	state, err := e.lockout.RecordFailure(ctx, key)
	if err != nil {
		return e.storageFailure(ctx, "login.record_failure", err)
	}
	e.metricInc(MetricLoginFailure)

	meta := map[string]string{
		"username": username,
		"failures": strconv.Itoa(state.Failures),
	}

	if state.Locked {
		lockErr := &LockoutError{Remaining: state.Remaining}
		if state.Triggered {
			e.metricInc(MetricLockoutTriggered)
			e.emitAudit(ctx, auditEventLockoutTriggered, false, user.UserID, user.TenantID, lockErr, meta)
		}
		return lockErr
	}

	credErr := &CredentialsError{RemainingAttempts: state.AttemptsLeft}
	e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, user.TenantID, credErr, meta)
	return credErr
}

// rehashIfNeeded upgrades a hash made with weaker parameters. Failures are
// logged and do not affect the login.
func (e *Engine) rehashIfNeeded(ctx context.Context, user UserRecord, password string) {
	needs, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(password)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.UserID).Msg("password rehash failed")
	}
}
