package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/MrEthical07/tenantauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the tenants and users tables.
//
//go:embed schema.sql
var Schema string

const (
	uniqueViolation = "23505"

	usernameIndex   = "users_username_key"
	tenantNameIndex = "tenants_name_key"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store is a pgx-backed user and tenant store.
type Store struct {
	db DB
}

var _ tenantauth.UserProvider = (*Store)(nil)

// New returns a Store using db.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate applies Schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const userColumns = `user_id, tenant_id, username, password_hash, role, created_at`

func (s *Store) GetUserByUsername(ctx context.Context, username string) (tenantauth.UserRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(username) = lower($1)
	`, username)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (tenantauth.UserRecord, error) {
	if !isUUID(userID) {
		return tenantauth.UserRecord{}, tenantauth.ErrUserNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_id = $1
	`, userID)
	return scanUser(row)
}

// RegisterTenantOwner creates the tenant and its admin in one transaction.
func (s *Store) RegisterTenantOwner(ctx context.Context, in tenantauth.RegisterOwnerInput) (user tenantauth.UserRecord, tenant tenantauth.Tenant, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return tenantauth.UserRecord{}, tenantauth.Tenant{}, fmt.Errorf("begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tenant = tenantauth.Tenant{ID: uuid.NewString(), Name: in.TenantName}
	err = tx.QueryRow(ctx, `
		INSERT INTO tenants (tenant_id, name)
		VALUES ($1, $2)
		RETURNING created_at
	`, tenant.ID, tenant.Name).Scan(&tenant.CreatedAt)
	if err != nil {
		err = mapWriteError("insert tenant", err)
		return tenantauth.UserRecord{}, tenantauth.Tenant{}, err
	}

	user = tenantauth.UserRecord{
		UserID:       uuid.NewString(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Role:         tenantauth.RoleAdmin,
		TenantID:     tenant.ID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (user_id, tenant_id, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, user.UserID, user.TenantID, user.Username, user.PasswordHash, user.Role.String()).Scan(&user.CreatedAt)
	if err != nil {
		err = mapWriteError("insert owner", err)
		return tenantauth.UserRecord{}, tenantauth.Tenant{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		err = fmt.Errorf("commit registration: %w", err)
		return tenantauth.UserRecord{}, tenantauth.Tenant{}, err
	}
	return user, tenant, nil
}

func (s *Store) CreateUser(ctx context.Context, in tenantauth.CreateUserInput) (tenantauth.UserRecord, error) {
	if !in.Role.Valid() {
		return tenantauth.UserRecord{}, tenantauth.ErrInvalidRole
	}
	user := tenantauth.UserRecord{
		UserID:       uuid.NewString(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		TenantID:     in.TenantID,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (user_id, tenant_id, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, user.UserID, user.TenantID, user.Username, user.PasswordHash, user.Role.String()).Scan(&user.CreatedAt)
	if err != nil {
		return tenantauth.UserRecord{}, mapWriteError("insert user", err)
	}
	return user, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	if !isUUID(userID) {
		return tenantauth.ErrUserNotFound
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET password_hash = $2
		WHERE user_id = $1
	`, userID, newHash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenantauth.ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdateRole(ctx context.Context, tenantID, userID string, role tenantauth.Role) (tenantauth.UserRecord, error) {
	if !role.Valid() {
		return tenantauth.UserRecord{}, tenantauth.ErrInvalidRole
	}
	if !isUUID(tenantID) || !isUUID(userID) {
		return tenantauth.UserRecord{}, tenantauth.ErrUserNotFound
	}
	row := s.db.QueryRow(ctx, `
		UPDATE users SET role = $3
		WHERE tenant_id = $1 AND user_id = $2
		RETURNING `+userColumns, tenantID, userID, role.String())
	return scanUser(row)
}

func (s *Store) DeleteUser(ctx context.Context, tenantID, userID string) error {
	if !isUUID(tenantID) || !isUUID(userID) {
		return tenantauth.ErrUserNotFound
	}
	tag, err := s.db.Exec(ctx, `
		DELETE FROM users
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenantauth.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, tenantID string) ([]tenantauth.UserRecord, error) {
	if !isUUID(tenantID) {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE tenant_id = $1
		ORDER BY lower(username)
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []tenantauth.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (tenantauth.UserRecord, error) {
	var (
		u    tenantauth.UserRecord
		role string
	)
	if err := row.Scan(&u.UserID, &u.TenantID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenantauth.UserRecord{}, tenantauth.ErrUserNotFound
		}
		return tenantauth.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := tenantauth.ParseRole(role)
	if err != nil {
		return tenantauth.UserRecord{}, fmt.Errorf("user %s: %w", u.UserID, err)
	}
	u.Role = parsed
	return u, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameIndex:
			return tenantauth.ErrAccountExists
		case tenantNameIndex:
			return tenantauth.ErrTenantExists
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
