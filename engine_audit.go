package tenantauth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventLockoutTriggered = "lockout_triggered"
	auditEventLoginLocked      = "login_locked"
	auditEventLogout           = "logout"
	auditEventRegistration     = "registration"
	auditEventUserCreated      = "user_created"
	auditEventRoleChange       = "role_change"
	auditEventUserDeleted      = "user_deleted"
	auditEventPasswordChange   = "password_change"
)

// AuditErrorCode is the stable reason string recorded on failed events.
type AuditErrorCode string

const (
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrNoSession          AuditErrorCode = "no_session"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit queues an event. actorUserID is the user performing the action;
// target users go in metadata under "target_user_id".
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	actorUserID string,
	tenantID string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    actorUserID,
		TenantID:  tenantID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAuthUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRole):
		return auditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrRegisterRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrTenantExists):
		return auditErrDuplicate
	default:
		return auditErrInternal
	}
}
