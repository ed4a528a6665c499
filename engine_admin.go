package tenantauth

import (
	"context"
	"errors"
	"strconv"
)

// UpdateRole changes the role of a user in the acting admin's tenant. Admins
// may not change their own role. The new role applies to the target's
// existing sessions on their next request.
func (e *Engine) UpdateRole(ctx context.Context, auth AuthContext, targetUserID string, role Role) (UserInfo, error) {
	if err := e.ready(); err != nil {
		return UserInfo{}, err
	}
	if err := e.requireManageUsers(auth, "update_role"); err != nil {
		return UserInfo{}, err
	}
	if err := auth.ForbidSelf(targetUserID); err != nil {
		return UserInfo{}, e.forbidden(auth, "update_role", err)
	}
	if !role.Valid() {
		return UserInfo{}, ErrInvalidRole
	}

	target, err := e.tenantUser(ctx, auth, "update_role", targetUserID)
	if err != nil {
		return UserInfo{}, err
	}

	rec, err := e.users.UpdateRole(ctx, auth.TenantID, targetUserID, role)
	if errors.Is(err, ErrUserNotFound) {
		return UserInfo{}, err
	}
	if err != nil {
		return UserInfo{}, e.storageFailure(ctx, "user.update_role", err)
	}

	e.metricInc(MetricRoleChanged)
	e.emitAudit(ctx, auditEventRoleChange, true, auth.UserID, auth.TenantID, nil, map[string]string{
		"target_user_id": targetUserID,
		"old_role":       target.Role.String(),
		"new_role":       rec.Role.String(),
	})
	return rec.Public(), nil
}

// DeleteUser removes a user from the acting admin's tenant and revokes all of
// their sessions. Admins may not delete themselves.
func (e *Engine) DeleteUser(ctx context.Context, auth AuthContext, targetUserID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireManageUsers(auth, "delete_user"); err != nil {
		return err
	}
	if err := auth.ForbidSelf(targetUserID); err != nil {
		return e.forbidden(auth, "delete_user", err)
	}
	if _, err := e.tenantUser(ctx, auth, "delete_user", targetUserID); err != nil {
		return err
	}

	err := e.users.DeleteUser(ctx, auth.TenantID, targetUserID)
	if errors.Is(err, ErrUserNotFound) {
		return err
	}
	if err != nil {
		return e.storageFailure(ctx, "user.delete", err)
	}

	revoked, err := e.RevokeUserSessions(ctx, targetUserID)
	if err != nil {
		// The user row is gone, so any surviving session is rejected as an
		// orphan on its next verification.
		e.logger.Warn().Err(err).Str("user_id", targetUserID).Msg("session revocation after delete failed")
	}

	e.metricInc(MetricUserDeleted)
	e.emitAudit(ctx, auditEventUserDeleted, true, auth.UserID, auth.TenantID, nil, map[string]string{
		"target_user_id":   targetUserID,
		"sessions_revoked": strconv.Itoa(revoked),
	})
	return nil
}

// ListUsers returns the users of the acting user's tenant.
func (e *Engine) ListUsers(ctx context.Context, auth AuthContext) ([]UserInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireViewUsers(auth, "list_users"); err != nil {
		return nil, err
	}

	recs, err := e.users.ListUsers(ctx, auth.TenantID)
	if err != nil {
		return nil, e.storageFailure(ctx, "user.list", err)
	}

	recs = FilterScoped(auth, recs)
	out := make([]UserInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Public())
	}
	return out, nil
}

// GetUser returns one user of the acting user's tenant.
func (e *Engine) GetUser(ctx context.Context, auth AuthContext, userID string) (UserInfo, error) {
	if err := e.ready(); err != nil {
		return UserInfo{}, err
	}
	if err := e.requireViewUsers(auth, "get_user"); err != nil {
		return UserInfo{}, err
	}
	rec, err := e.tenantUser(ctx, auth, "get_user", userID)
	if err != nil {
		return UserInfo{}, err
	}
	return rec.Public(), nil
}

// tenantUser loads userID and verifies it belongs to the session tenant.
func (e *Engine) tenantUser(ctx context.Context, auth AuthContext, op, userID string) (UserRecord, error) {
	if userID == "" {
		return UserRecord{}, &ValidationError{Field: "id", Message: "is required"}
	}
	rec, err := e.users.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, err
	}
	if err != nil {
		return UserRecord{}, e.storageFailure(ctx, "user.get", err)
	}
	rec, err = Scoped(auth, rec)
	if err != nil {
		return UserRecord{}, e.forbidden(auth, op, err)
	}
	return rec, nil
}

func (e *Engine) requireManageUsers(auth AuthContext, op string) error {
	if !auth.Valid() {
		return ErrNoSession
	}
	if !auth.Role.CanManageUsers() {
		return e.forbidden(auth, op, ErrForbidden)
	}
	return nil
}

func (e *Engine) requireViewUsers(auth AuthContext, op string) error {
	if !auth.Valid() {
		return ErrNoSession
	}
	if !auth.Role.CanViewUsers() {
		return e.forbidden(auth, op, ErrForbidden)
	}
	return nil
}

func (e *Engine) forbidden(auth AuthContext, op string, err error) error {
	e.metricInc(MetricForbidden)
	e.logger.Debug().
		Str("op", op).
		Str("user_id", auth.UserID).
		Str("tenant_id", auth.TenantID).
		Str("role", auth.Role.String()).
		Err(err).
		Msg("forbidden")
	return err
}
