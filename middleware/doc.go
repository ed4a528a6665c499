// Package middleware holds the two HTTP verification tiers built on top of
// the tenantauth session cookie.
//
// # Edge guard
//
// [EdgeGuard] runs in front of every route. It checks only that the session
// cookie is well formed and carries a valid HMAC, and redirects to the login
// page otherwise. It never touches Redis or the identity store, so it is safe
// to run on every request including static assets.
//
// # Authorization gate
//
// [WithAuth] wraps a single handler. It performs the full store-backed
// verification through a [SessionVerifier], applies the route's role list and
// hands the resulting [tenantauth.AuthContext] to the handler as an explicit
// argument. Tenant scoping of the entities a handler touches stays with the
// engine and AuthContext helpers.
package middleware
