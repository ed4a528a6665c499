// Package session provides Redis-backed session persistence and compact binary session
// encoding for the authentication hot path.
//
// # Keys
//
//   - <prefix>:<tokenHash>  encoded [Session], TTL = remaining lifetime
//   - <prefix>:u:<userID>   set of token hashes owned by the user
//
// The raw token never reaches this package; callers pass its SHA-256 hash.
//
// # Expiry
//
// Expiry is checked at lookup time. An expired record found by [Store.Get] is
// deleted and reported as [ErrSessionNotFound], so expired and destroyed
// sessions look identical to callers.
//
// # What this package must NOT do
//
//   - Import tenantauth, token or the identity store (no upward imports).
//   - Perform application-level authorization decisions.
//   - Store plaintext secrets in [Session] fields.
package session
