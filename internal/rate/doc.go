// Package rate provides the Redis-backed sliding-window request limiter.
//
// # Window semantics
//
// Each key is a sorted set of request timestamps (unix ms). A single Lua
// script prunes entries older than now-window, counts the rest, and either
// denies with the time until the oldest entry leaves the window or records the
// new request. Concurrent callers on one key are linearised by Redis.
//
// Keys are namespaced by the configured prefix (default "rl"):
//   - rl:login:<ip>    login attempts per client IP
//   - rl:register:<ip> registration attempts per client IP
//
// # What this package must NOT do
//
//   - Implement lockout policy (that lives in internal/limiters).
//   - Keep counters in process memory.
package rate
