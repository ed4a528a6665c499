package rate

import "errors"

var (
	// ErrInvalidLimit is returned for non-positive limits or windows.
	ErrInvalidLimit = errors.New("rate limit must have positive max and window")
	// ErrRedisUnavailable wraps storage failures; callers fail closed on it.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
