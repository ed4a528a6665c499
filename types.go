package tenantauth

import (
	"context"
	"time"
)

// UserRecord is the full account record returned by [UserProvider].
type UserRecord struct {
	UserID       string
	Username     string
	PasswordHash string
	Role         Role
	TenantID     string
	CreatedAt    time.Time
}

// OwnerTenantID implements TenantOwned.
func (u UserRecord) OwnerTenantID() string { return u.TenantID }

// Public strips credential material for API responses.
func (u UserRecord) Public() UserInfo {
	return UserInfo{
		UserID:    u.UserID,
		Username:  u.Username,
		Role:      u.Role,
		TenantID:  u.TenantID,
		CreatedAt: u.CreatedAt,
	}
}

// UserInfo is the client-visible view of a user.
type UserInfo struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	TenantID  string    `json:"tenantId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerTenantID implements TenantOwned.
func (u UserInfo) OwnerTenantID() string { return u.TenantID }

// Tenant is an isolated customer organisation.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Role         Role
	TenantID     string
}

// RegisterOwnerInput is the input for [UserProvider.RegisterTenantOwner].
type RegisterOwnerInput struct {
	TenantName   string
	Username     string
	PasswordHash string
}

// UserProvider is the identity store the engine authenticates against.
// Usernames are unique case-insensitively. Tenant-scoped methods must only
// touch rows whose tenant matches tenantID and report ErrUserNotFound
// otherwise.
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	// RegisterTenantOwner creates a tenant and its first admin atomically.
	RegisterTenantOwner(ctx context.Context, input RegisterOwnerInput) (UserRecord, Tenant, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	UpdateRole(ctx context.Context, tenantID, userID string, role Role) (UserRecord, error)
	DeleteUser(ctx context.Context, tenantID, userID string) error
	ListUsers(ctx context.Context, tenantID string) ([]UserRecord, error)
}

// IssuedSession is the client half of a new session: the packed cookie value
// and its expiry.
type IssuedSession struct {
	Value     string
	ExpiresAt time.Time
}

// LoginResult is returned by successful Login, Register and ChangePassword calls.
type LoginResult struct {
	Auth    AuthContext
	Session IssuedSession
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Username   string
	Password   string
	TenantName string
}

// CreateUserRequest is the input for [Engine.CreateUser].
type CreateUserRequest struct {
	Username string
	Password string
	Role     Role
}
