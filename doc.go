// Package tenantauth is the session and access-control core of a
// multi-tenant web application.
//
// A browser holds one cookie, `<token>.<hmac>`, where token is 32 random
// bytes in hex and hmac is HMAC-SHA256 of the token under a server secret.
// Redis stores only the SHA-256 of the token. [Engine.VerifySession] turns a
// cookie back into an [AuthContext] carrying the user, role and tenant; that
// value is the only source of tenant identity for the rest of the request.
//
// [Engine.Login] layers a per-IP sliding window and a per-username failure
// lockout in front of Argon2id password checks. Tenant rules are enforced on
// [AuthContext]: role membership, [AuthContext.RequireTenant] for entities
// fetched by id and [AuthContext.ForbidSelf] for self-targeting admin actions.
//
// Engine methods are safe for concurrent use after [Builder.Build]. Every
// rate, lockout and session mutation is a single Redis script, so the engine
// can run as many processes against one Redis. Storage failures on security
// paths fail closed with [ErrAuthUnavailable] or, for verification,
// [ErrNoSession].
package tenantauth
