package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", "(" .. (now - window))
local count = redis.call("ZCARD", key)
if count >= limit then
  local retry = window
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  if oldest[2] then
    retry = window - (now - tonumber(oldest[2]))
  end
  if retry < 1 then
    retry = 1
  end
  return {0, count, retry}
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window + 1)
return {1, count + 1, 0}
`

var slidingWindowLua = redis.NewScript(slidingWindowScript)

// Config holds limiter wiring.
type Config struct {
	Prefix string
	Now    func() time.Time
}

// Decision is the outcome of a single Check call.
type Decision struct {
	Allowed    bool
	Count      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces sliding-window request budgets per key.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a sliding-window [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "rl"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

// Check records one request against key when fewer than limit requests were
// seen in the trailing window. Denied requests are not recorded.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || window < time.Millisecond {
		return Decision{}, ErrInvalidLimit
	}

	now := l.now().UnixMilli()
	res, err := slidingWindowLua.Run(
		ctx,
		l.redis,
		[]string{l.key(key)},
		now,
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}

	d := Decision{
		Allowed: res[0] == 1,
		Count:   int(res[1]),
	}
	if d.Allowed {
		d.Remaining = limit - d.Count
	} else {
		d.RetryAfter = time.Duration(res[2]) * time.Millisecond
	}
	return d, nil
}

// Reset drops all recorded requests for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(key string) string {
	return l.prefix + ":" + key
}
