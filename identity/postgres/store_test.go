package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/tenantauth"
	"github.com/MrEthical07/tenantauth/identity/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenantID = "6f1c8a52-9a0e-4a3f-8d36-2f7f7d1b1a10"
	userID   = "0b6f3c1e-2f5d-4a7b-9c1e-8f2d6a4b3c21"
)

var userCols = []string{"user_id", "tenant_id", "username", "password_hash", "role", "created_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *postgres.Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, postgres.New(mock)
}

func TestGetUserByUsername(t *testing.T) {
	mock, store := newMock(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, tenant_id").
			WithArgs("alice123").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(userID, tenantID, "Alice123", "$argon2id$hash", "manager", created))

		u, err := store.GetUserByUsername(ctx, "alice123")
		require.NoError(t, err)
		assert.Equal(t, userID, u.UserID)
		assert.Equal(t, tenantID, u.TenantID)
		assert.Equal(t, tenantauth.RoleManager, u.Role)
		assert.Equal(t, created, u.CreatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, tenant_id").
			WithArgs("nobody00").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.GetUserByUsername(ctx, "nobody00")
		assert.ErrorIs(t, err, tenantauth.ErrUserNotFound)
	})

	t.Run("unknown role is an error", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, tenant_id").
			WithArgs("alice123").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(userID, tenantID, "alice123", "h", "owner", created))

		_, err := store.GetUserByUsername(ctx, "alice123")
		assert.ErrorIs(t, err, tenantauth.ErrInvalidRole)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, tenant_id").
			WithArgs("alice123").
			WillReturnError(errors.New("conn reset"))

		_, err := store.GetUserByUsername(ctx, "alice123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, tenantauth.ErrUserNotFound)
	})
}

func TestGetUserByIDRejectsNonUUID(t *testing.T) {
	_, store := newMock(t)

	_, err := store.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, tenantauth.ErrUserNotFound)
}

func TestRegisterTenantOwner(t *testing.T) {
	mock, store := newMock(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("commits tenant and admin", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO tenants").
			WithArgs(pgxmock.AnyArg(), "Acme Valuations").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "alice123", "hash", "admin").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
		mock.ExpectCommit()

		user, tenant, err := store.RegisterTenantOwner(ctx, tenantauth.RegisterOwnerInput{
			TenantName:   "Acme Valuations",
			Username:     "alice123",
			PasswordHash: "hash",
		})
		require.NoError(t, err)
		assert.Equal(t, tenantauth.RoleAdmin, user.Role)
		assert.Equal(t, tenant.ID, user.TenantID)
		assert.NotEmpty(t, user.UserID)
		assert.Equal(t, created, tenant.CreatedAt)
	})

	t.Run("existing tenant rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO tenants").
			WithArgs(pgxmock.AnyArg(), "Acme Valuations").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tenants_name_key"})
		mock.ExpectRollback()

		_, _, err := store.RegisterTenantOwner(ctx, tenantauth.RegisterOwnerInput{
			TenantName:   "Acme Valuations",
			Username:     "bob12345",
			PasswordHash: "hash",
		})
		assert.ErrorIs(t, err, tenantauth.ErrTenantExists)
	})

	t.Run("taken username rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO tenants").
			WithArgs(pgxmock.AnyArg(), "Globex").
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "alice123", "hash", "admin").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
		mock.ExpectRollback()

		_, _, err := store.RegisterTenantOwner(ctx, tenantauth.RegisterOwnerInput{
			TenantName:   "Globex",
			Username:     "alice123",
			PasswordHash: "hash",
		})
		assert.ErrorIs(t, err, tenantauth.ErrAccountExists)
	})
}

func TestCreateUser(t *testing.T) {
	mock, store := newMock(t)
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), tenantID, "carol123", "hash", "valuer").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	u, err := store.CreateUser(context.Background(), tenantauth.CreateUserInput{
		Username:     "carol123",
		PasswordHash: "hash",
		Role:         tenantauth.RoleValuer,
		TenantID:     tenantID,
	})
	require.NoError(t, err)
	assert.Equal(t, tenantID, u.TenantID)
	assert.Equal(t, created, u.CreatedAt)

	_, err = store.CreateUser(context.Background(), tenantauth.CreateUserInput{Username: "x", TenantID: tenantID})
	assert.ErrorIs(t, err, tenantauth.ErrInvalidRole)
}

func TestUpdateRoleScopedToTenant(t *testing.T) {
	mock, store := newMock(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE users SET role").
		WithArgs(tenantID, userID, "reviewer").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, tenantID, "bob12345", "h", "reviewer", created))

	u, err := store.UpdateRole(ctx, tenantID, userID, tenantauth.RoleReviewer)
	require.NoError(t, err)
	assert.Equal(t, tenantauth.RoleReviewer, u.Role)

	mock.ExpectQuery("UPDATE users SET role").
		WithArgs(tenantID, userID, "admin").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.UpdateRole(ctx, tenantID, userID, tenantauth.RoleAdmin)
	assert.ErrorIs(t, err, tenantauth.ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	mock, store := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM users").
		WithArgs(tenantID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, store.DeleteUser(ctx, tenantID, userID))

	mock.ExpectExec("DELETE FROM users").
		WithArgs(tenantID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, store.DeleteUser(ctx, tenantID, userID), tenantauth.ErrUserNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs(userID, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdatePasswordHash(context.Background(), userID, "new-hash"))
}

func TestListUsers(t *testing.T) {
	mock, store := newMock(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT user_id, tenant_id").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, tenantID, "alice123", "h1", "admin", created).
			AddRow("9d2e5f1a-3b4c-4d5e-8f6a-7b8c9d0e1f2a", tenantID, "bob12345", "h2", "valuer", created))

	users, err := store.ListUsers(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, tenantauth.RoleAdmin, users[0].Role)
	assert.Equal(t, tenantauth.RoleValuer, users[1].Role)
}

func TestMigrate(t *testing.T) {
	mock, store := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tenants").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
}
