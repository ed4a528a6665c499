package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return New(rdb, Config{Now: clock.Now}), clock, mr
}

func TestCheckAllowsUpToLimitThenDenies(t *testing.T) {
	l, clock, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := l.Check(ctx, "login:203.0.113.5", 10, time.Minute)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 10-i, d.Remaining)
		clock.Advance(time.Second)
	}

	d, err := l.Check(ctx, "login:203.0.113.5", 10, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	// Oldest entry is 10s old, so it leaves the window in 50s.
	assert.Equal(t, 50*time.Second, d.RetryAfter)
}

func TestCheckAllowsAgainAfterWindow(t *testing.T) {
	l, clock, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := l.Check(ctx, "k", 10, time.Minute)
		require.NoError(t, err)
	}
	d, err := l.Check(ctx, "k", 10, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	clock.Advance(time.Minute + time.Millisecond)

	d, err = l.Check(ctx, "k", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestCheckSlidesRatherThanResets(t *testing.T) {
	l, clock, _ := newTestLimiter(t)
	ctx := context.Background()

	_, err := l.Check(ctx, "k", 2, 10*time.Second)
	require.NoError(t, err)
	clock.Advance(6 * time.Second)
	_, err = l.Check(ctx, "k", 2, 10*time.Second)
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	// First entry has left the window, the second has not.
	d, err := l.Check(ctx, "k", 2, 10*time.Second)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = l.Check(ctx, "k", 2, 10*time.Second)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 5*time.Second, d.RetryAfter)
}

func TestCheckKeepsEntryExactlyOneWindowOld(t *testing.T) {
	l, clock, _ := newTestLimiter(t)
	ctx := context.Background()

	d, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	clock.Advance(time.Minute)
	d, err = l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed, "an entry exactly one window old still counts")
	assert.Equal(t, time.Millisecond, d.RetryAfter)

	clock.Advance(time.Millisecond)
	d, err = l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestDeniedRequestsAreNotRecorded(t *testing.T) {
	l, clock, mr := newTestLimiter(t)
	ctx := context.Background()

	_, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		d, err := l.Check(ctx, "k", 1, time.Minute)
		require.NoError(t, err)
		require.False(t, d.Allowed)
	}

	members, err := mr.ZMembers("rl:k")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	clock.Advance(time.Minute + time.Millisecond)
	d, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestKeysAreIndependent(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	_, err := l.Check(ctx, "login:a", 1, time.Minute)
	require.NoError(t, err)
	d, err := l.Check(ctx, "login:b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestConcurrentChecksNeverExceedLimit(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	const (
		workers = 32
		limit   = 5
	)
	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Check(ctx, "hot", limit, time.Minute)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load())
}

func TestCheckRejectsInvalidLimit(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	_, err := l.Check(context.Background(), "k", 0, time.Minute)
	require.ErrorIs(t, err, ErrInvalidLimit)
	_, err = l.Check(context.Background(), "k", 1, 0)
	require.ErrorIs(t, err, ErrInvalidLimit)
}

func TestCheckFailsClosedWhenRedisDown(t *testing.T) {
	l, _, mr := newTestLimiter(t)
	mr.Close()

	_, err := l.Check(context.Background(), "k", 1, time.Minute)
	require.ErrorIs(t, err, ErrRedisUnavailable)
}

func TestResetClearsWindow(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	_, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "k"))

	d, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
