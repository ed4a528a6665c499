// Package memory is an in-process tenantauth.UserProvider for development
// servers, load tests and HTTP tests. Data is lost on exit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/tenantauth"
	"github.com/google/uuid"
)

// Store keeps users and tenants in maps guarded by one mutex.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	users   map[string]tenantauth.UserRecord
	byName  map[string]string
	tenants map[string]tenantauth.Tenant
}

var _ tenantauth.UserProvider = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[string]tenantauth.UserRecord),
		byName:  make(map[string]string),
		tenants: make(map[string]tenantauth.Tenant),
	}
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) GetUserByUsername(_ context.Context, username string) (tenantauth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[key(username)]
	if !ok {
		return tenantauth.UserRecord{}, tenantauth.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (tenantauth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return tenantauth.UserRecord{}, tenantauth.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) RegisterTenantOwner(_ context.Context, in tenantauth.RegisterOwnerInput) (tenantauth.UserRecord, tenantauth.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[key(in.TenantName)]; ok {
		return tenantauth.UserRecord{}, tenantauth.Tenant{}, tenantauth.ErrTenantExists
	}
	if _, ok := s.byName[key(in.Username)]; ok {
		return tenantauth.UserRecord{}, tenantauth.Tenant{}, tenantauth.ErrAccountExists
	}

	now := s.now()
	tenant := tenantauth.Tenant{ID: uuid.NewString(), Name: in.TenantName, CreatedAt: now}
	s.tenants[key(in.TenantName)] = tenant
	u := s.insert(in.Username, in.PasswordHash, tenantauth.RoleAdmin, tenant.ID, now)
	return u, tenant, nil
}

func (s *Store) CreateUser(_ context.Context, in tenantauth.CreateUserInput) (tenantauth.UserRecord, error) {
	if !in.Role.Valid() {
		return tenantauth.UserRecord{}, tenantauth.ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[key(in.Username)]; ok {
		return tenantauth.UserRecord{}, tenantauth.ErrAccountExists
	}
	return s.insert(in.Username, in.PasswordHash, in.Role, in.TenantID, s.now()), nil
}

func (s *Store) insert(username, hash string, role tenantauth.Role, tenantID string, now time.Time) tenantauth.UserRecord {
	u := tenantauth.UserRecord{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		TenantID:     tenantID,
		CreatedAt:    now,
	}
	s.users[u.UserID] = u
	s.byName[key(username)] = u.UserID
	return u
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return tenantauth.ErrUserNotFound
	}
	u.PasswordHash = newHash
	s.users[userID] = u
	return nil
}

func (s *Store) UpdateRole(_ context.Context, tenantID, userID string, role tenantauth.Role) (tenantauth.UserRecord, error) {
	if !role.Valid() {
		return tenantauth.UserRecord{}, tenantauth.ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.TenantID != tenantID {
		return tenantauth.UserRecord{}, tenantauth.ErrUserNotFound
	}
	u.Role = role
	s.users[userID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.TenantID != tenantID {
		return tenantauth.ErrUserNotFound
	}
	delete(s.users, userID)
	delete(s.byName, key(u.Username))
	return nil
}

func (s *Store) ListUsers(_ context.Context, tenantID string) ([]tenantauth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tenantauth.UserRecord
	for _, u := range s.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Username) < key(out[j].Username) })
	return out, nil
}
