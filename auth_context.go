package tenantauth

// AuthContext is the verified identity of a request. It is produced only by
// Engine.VerifySession and passed explicitly to every protected handler and
// engine operation. TenantID is the only tenant identifier business logic may
// use; tenant IDs supplied by clients are ignored.
type AuthContext struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenantId"`
}

// TenantOwned is implemented by entities that belong to exactly one tenant.
type TenantOwned interface {
	OwnerTenantID() string
}

// Valid reports whether the context carries a complete identity.
func (a AuthContext) Valid() bool {
	return a.UserID != "" && a.TenantID != "" && a.Role.Valid()
}

// HasRole reports whether the session role is one of allowed. An empty list
// allows every role.
func (a AuthContext) HasRole(allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	return a.Role.In(allowed...)
}

// RequireRole returns ErrForbidden when the session role is not allowed.
func (a AuthContext) RequireRole(allowed ...Role) error {
	if !a.HasRole(allowed...) {
		return ErrForbidden
	}
	return nil
}

// RequireTenant verifies that an entity fetched by ID belongs to the session
// tenant. A matching ID alone does not prove ownership.
func (a AuthContext) RequireTenant(entityTenantID string) error {
	if a.TenantID == "" || entityTenantID != a.TenantID {
		return ErrTenantMismatch
	}
	return nil
}

// Owns reports whether entity belongs to the session tenant.
func (a AuthContext) Owns(entity TenantOwned) bool {
	return entity != nil && a.RequireTenant(entity.OwnerTenantID()) == nil
}

// ForbidSelf rejects operations whose target is the acting user.
func (a AuthContext) ForbidSelf(targetUserID string) error {
	if targetUserID == a.UserID {
		return ErrSelfTarget
	}
	return nil
}

// Scoped returns entity when it belongs to the session tenant.
func Scoped[T TenantOwned](auth AuthContext, entity T) (T, error) {
	var zero T
	if err := auth.RequireTenant(entity.OwnerTenantID()); err != nil {
		return zero, err
	}
	return entity, nil
}

// FilterScoped drops entities that do not belong to the session tenant.
func FilterScoped[T TenantOwned](auth AuthContext, entities []T) []T {
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if auth.RequireTenant(e.OwnerTenantID()) == nil {
			out = append(out, e)
		}
	}
	return out
}
