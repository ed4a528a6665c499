// Package httpapi exposes the tenantauth engine over HTTP with a chi router.
//
// Public routes cover login, session introspection, logout and tenant
// registration. Account and user administration routes are wrapped in
// [middleware.WithAuth] so each handler receives the verified AuthContext
// explicitly. All engine errors pass through one mapping in errors.go; no
// internal error text reaches clients.
package httpapi
