// Package postgres implements tenantauth.UserProvider on PostgreSQL through
// pgx. Usernames and tenant names are unique case-insensitively, enforced by
// expression indexes in Schema. Every tenant-scoped statement filters on
// tenant_id in SQL.
package postgres
