package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCount       = "count"
	fieldLastFailure = "last_failure"
	fieldLockedUntil = "locked_until"
)

// recordFailureScript returns {locked, count, remaining_ms, triggered}.
// An expired lock is dropped before counting so the next window starts at 1.
const recordFailureScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local duration = tonumber(ARGV[3])
local retention = tonumber(ARGV[4])

local locked_until = tonumber(redis.call("HGET", key, "locked_until") or "0")
if locked_until > 0 then
  if locked_until > now then
    local current = tonumber(redis.call("HGET", key, "count") or "0")
    return {1, current, locked_until - now, 0}
  end
  redis.call("DEL", key)
end

local count = redis.call("HINCRBY", key, "count", 1)
redis.call("HSET", key, "last_failure", now)
if count >= threshold then
  redis.call("HSET", key, "locked_until", now + duration)
  redis.call("PEXPIRE", key, duration)
  return {1, count, duration, 1}
end

redis.call("PEXPIRE", key, retention)
return {0, count, 0, 0}
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// LockoutConfig holds configuration for the failure lockout tracker.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
	// Retention bounds how long an unlocked failure record survives without new failures.
	Retention time.Duration
	Prefix    string
	Now       func() time.Time
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// LockoutState is a point-in-time view of one failure record.
type LockoutState struct {
	Locked    bool
	Failures  int
	Remaining time.Duration
	// Triggered is set only on the RecordFailure call that created the lock.
	Triggered bool
	// AttemptsLeft is the number of further failures tolerated before locking.
	AttemptsLeft int
}

// LockoutLimiter tracks failed logins per key and locks the key for a fixed
// duration once the threshold is reached.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter. Zero config values fall
// back to 5 failures, 15 minutes and 24 hours of retention.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 15 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "lo"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) key(key string) string {
	return l.config.Prefix + ":" + key
}

// Threshold reports the configured failure threshold.
func (l *LockoutLimiter) Threshold() int {
	return l.config.Threshold
}

// Check reports whether key is currently locked. An expired lock is inert.
func (l *LockoutLimiter) Check(ctx context.Context, key string) (LockoutState, error) {
	vals, err := l.redis.HMGet(ctx, l.key(key), fieldCount, fieldLockedUntil).Result()
	if err != nil {
		return LockoutState{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	count := parseField(vals, 0)
	lockedUntil := parseField(vals, 1)
	now := l.config.Now().UnixMilli()

	if lockedUntil > 0 {
		if lockedUntil > now {
			return LockoutState{
				Locked:    true,
				Failures:  int(count),
				Remaining: time.Duration(lockedUntil-now) * time.Millisecond,
			}, nil
		}
		count = 0
	}

	return l.unlocked(int(count)), nil
}

// RecordFailure increments the failure counter for key and locks it when the
// threshold is reached. Failures while locked do not extend the lock.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, key string) (LockoutState, error) {
	res, err := recordFailureLua.Run(
		ctx,
		l.redis,
		[]string{l.key(key)},
		l.config.Now().UnixMilli(),
		l.config.Threshold,
		l.config.Duration.Milliseconds(),
		l.config.Retention.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return LockoutState{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if len(res) != 4 {
		return LockoutState{}, fmt.Errorf("%w: unexpected script reply", ErrLockoutUnavailable)
	}

	if res[0] == 1 {
		return LockoutState{
			Locked:    true,
			Failures:  int(res[1]),
			Remaining: time.Duration(res[2]) * time.Millisecond,
			Triggered: res[3] == 1,
		}, nil
	}
	return l.unlocked(int(res[1])), nil
}

// Reset clears the failure record for key after a successful authentication.
func (l *LockoutLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// GetFailureCount returns the active failure count for key.
func (l *LockoutLimiter) GetFailureCount(ctx context.Context, key string) (int, error) {
	state, err := l.Check(ctx, key)
	if err != nil {
		return 0, err
	}
	return state.Failures, nil
}

func (l *LockoutLimiter) unlocked(count int) LockoutState {
	left := l.config.Threshold - count
	if left < 0 {
		left = 0
	}
	return LockoutState{Failures: count, AttemptsLeft: left}
}

func parseField(vals []interface{}, i int) int64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	s, ok := vals[i].(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
