package tenantauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrEthical07/tenantauth/password"
)

// Register creates a new tenant with the caller as its first admin and logs
// the new user in. Registration is throttled per client IP. Joining an
// existing tenant is not possible here; an admin of that tenant has to call
// CreateUser.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	if err := e.ready(); err != nil {
		return LoginResult{}, err
	}

	name := NormalizeUsername(req.Username)
	tenantName := strings.TrimSpace(req.TenantName)
	if err := validateUsername(name); err != nil {
		return LoginResult{}, err
	}
	if err := validateTenantName(tenantName); err != nil {
		return LoginResult{}, err
	}
	if err := e.validateNewPassword("password", req.Password); err != nil {
		return LoginResult{}, err
	}

	decision, err := e.limiter.Check(ctx, registerRateKey(clientKey(ctx)), e.config.RateLimit.RegisterMax, e.config.RateLimit.RegisterWindow)
	if err != nil {
		return LoginResult{}, e.storageFailure(ctx, "register.rate", err)
	}
	if !decision.Allowed {
		e.metricInc(MetricRegistrationRateLimited)
		return LoginResult{}, &RateLimitError{Cause: ErrRegisterRateLimited, RetryAfter: decision.RetryAfter}
	}

	hash, err := e.hashNewPassword("password", req.Password)
	if err != nil {
		return LoginResult{}, err
	}

	user, tenant, err := e.users.RegisterTenantOwner(ctx, RegisterOwnerInput{
		TenantName:   tenantName,
		Username:     name,
		PasswordHash: hash,
	})
	if errors.Is(err, ErrAccountExists) || errors.Is(err, ErrTenantExists) {
		e.emitAudit(ctx, auditEventRegistration, false, "", "", err, map[string]string{
			"username":    name,
			"tenant_name": tenantName,
		})
		return LoginResult{}, err
	}
	if err != nil {
		return LoginResult{}, e.storageFailure(ctx, "register.create", err)
	}

	issued, err := e.CreateSession(ctx, user.UserID)
	if err != nil {
		return LoginResult{}, err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistration, true, user.UserID, tenant.ID, nil, map[string]string{
		"tenant_name": tenant.Name,
	})

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

// CreateUser adds a user to the acting admin's tenant. The tenant always
// comes from auth.
func (e *Engine) CreateUser(ctx context.Context, auth AuthContext, req CreateUserRequest) (UserInfo, error) {
	if err := e.ready(); err != nil {
		return UserInfo{}, err
	}
	if err := e.requireManageUsers(auth, "create_user"); err != nil {
		return UserInfo{}, err
	}

	name := NormalizeUsername(req.Username)
	if err := validateUsername(name); err != nil {
		return UserInfo{}, err
	}
	if !req.Role.Valid() {
		return UserInfo{}, ErrInvalidRole
	}
	if err := e.validateNewPassword("password", req.Password); err != nil {
		return UserInfo{}, err
	}

	hash, err := e.hashNewPassword("password", req.Password)
	if err != nil {
		return UserInfo{}, err
	}

	rec, err := e.users.CreateUser(ctx, CreateUserInput{
		Username:     name,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     auth.TenantID,
	})
	if errors.Is(err, ErrAccountExists) {
		return UserInfo{}, err
	}
	if err != nil {
		return UserInfo{}, e.storageFailure(ctx, "user.create", err)
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreated, true, auth.UserID, auth.TenantID, nil, map[string]string{
		"target_user_id": rec.UserID,
		"role":           rec.Role.String(),
	})
	return rec.Public(), nil
}

// ChangePassword replaces the acting user's password after checking the
// current one. All of the user's sessions are revoked and a fresh session is
// returned for the caller.
func (e *Engine) ChangePassword(ctx context.Context, auth AuthContext, current, next string) (IssuedSession, error) {
	if err := e.ready(); err != nil {
		return IssuedSession{}, err
	}
	if !auth.Valid() {
		return IssuedSession{}, ErrNoSession
	}
	if current == "" {
		return IssuedSession{}, &ValidationError{Field: "currentPassword", Message: "is required"}
	}
	if err := e.validateNewPassword("newPassword", next); err != nil {
		return IssuedSession{}, err
	}

	user, err := e.users.GetUserByID(ctx, auth.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return IssuedSession{}, ErrNoSession
	}
	if err != nil {
		return IssuedSession{}, e.storageFailure(ctx, "password.lookup", err)
	}
	if err := auth.RequireTenant(user.TenantID); err != nil {
		return IssuedSession{}, e.forbidden(auth, "change_password", err)
	}

	ok, err := e.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventPasswordChange, false, auth.UserID, auth.TenantID, ErrInvalidCredentials, nil)
		return IssuedSession{}, ErrInvalidCredentials
	}

	hash, err := e.hashNewPassword("newPassword", next)
	if err != nil {
		return IssuedSession{}, err
	}
	if err := e.users.UpdatePasswordHash(ctx, auth.UserID, hash); err != nil {
		return IssuedSession{}, e.storageFailure(ctx, "password.update", err)
	}

	revoked, err := e.RevokeUserSessions(ctx, auth.UserID)
	if err != nil {
		return IssuedSession{}, err
	}
	issued, err := e.CreateSession(ctx, auth.UserID)
	if err != nil {
		return IssuedSession{}, err
	}

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChange, true, auth.UserID, auth.TenantID, nil, map[string]string{
		"sessions_revoked": strconv.Itoa(revoked),
	})
	return issued, nil
}

func (e *Engine) hashNewPassword(field, plaintext string) (string, error) {
	hash, err := e.hasher.Hash(plaintext)
	switch {
	case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
		return "", fmt.Errorf("%w: %w", ErrPasswordPolicy, &ValidationError{Field: field, Message: err.Error()})
	case err != nil:
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
