// Package limiters provides the per-account failure lockout tracker.
//
// # Lockout
//
// [LockoutLimiter] keeps one Redis hash per key (count, last_failure,
// locked_until). Failures are recorded by a single Lua script so concurrent
// failures on one key never lose increments. Reaching the threshold sets
// locked_until; every check before that instant reports locked regardless of
// password correctness. Expired locks are reset lazily on the next failure.
//
// # What this package must NOT do
//
//   - Decide HTTP status codes or user-facing messages.
//   - Keep failure state in process memory.
package limiters
