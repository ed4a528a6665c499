package tenantauth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memUsers is an in-memory UserProvider.
type memUsers struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	tenants map[string]Tenant
	fail    error
}

func newMemUsers() *memUsers {
	return &memUsers{
		users:   map[string]UserRecord{},
		tenants: map[string]Tenant{},
	}
}

func (m *memUsers) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *memUsers) byName(username string) (UserRecord, bool) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return UserRecord{}, false
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return UserRecord{}, m.fail
	}
	u, ok := m.byName(username)
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return UserRecord{}, m.fail
	}
	u, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) RegisterTenantOwner(_ context.Context, in RegisterOwnerInput) (UserRecord, Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return UserRecord{}, Tenant{}, m.fail
	}
	if _, ok := m.tenants[strings.ToLower(in.TenantName)]; ok {
		return UserRecord{}, Tenant{}, ErrTenantExists
	}
	if _, ok := m.byName(in.Username); ok {
		return UserRecord{}, Tenant{}, ErrAccountExists
	}
	tenant := Tenant{ID: uuid.NewString(), Name: in.TenantName, CreatedAt: time.Now()}
	m.tenants[strings.ToLower(in.TenantName)] = tenant
	u := UserRecord{
		UserID:       uuid.NewString(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Role:         RoleAdmin,
		TenantID:     tenant.ID,
		CreatedAt:    time.Now(),
	}
	m.users[u.UserID] = u
	return u, tenant, nil
}

func (m *memUsers) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return UserRecord{}, m.fail
	}
	if _, ok := m.byName(in.Username); ok {
		return UserRecord{}, ErrAccountExists
	}
	u := UserRecord{
		UserID:       uuid.NewString(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		TenantID:     in.TenantID,
		CreatedAt:    time.Now(),
	}
	m.users[u.UserID] = u
	return u, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	m.users[userID] = u
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, tenantID, userID string, role Role) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return UserRecord{}, ErrUserNotFound
	}
	u.Role = role
	m.users[userID] = u
	return u, nil
}

func (m *memUsers) DeleteUser(_ context.Context, tenantID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return ErrUserNotFound
	}
	delete(m.users, userID)
	return nil
}

func (m *memUsers) ListUsers(_ context.Context, tenantID string) ([]UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []UserRecord
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// remove deletes a user behind the engine's back.
func (m *memUsers) remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

var errBackendDown = errors.New("connection refused")
