package tenantauth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine *Engine
	mr     *miniredis.Miniredis
	redis  *redis.Client
	users  *memUsers
	clock  *fakeClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Signing.Secret = []byte(strings.Repeat("s", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newHarness(t testing.TB, configure ...func(*Builder)) *harness {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := &harness{
		mr:    mr,
		redis: rdb,
		users: newMemUsers(),
		clock: newFakeClock(),
	}

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserProvider(h.users).
		WithClock(h.clock.Now)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	require.NoError(t, err)
	h.engine = engine

	t.Cleanup(func() {
		_ = engine.Close(context.Background())
		_ = rdb.Close()
		mr.Close()
	})
	return h
}

func ipCtx(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}

// register creates a tenant owned by an admin called username.
func (h *harness) register(t testing.TB, username, tenant string) LoginResult {
	t.Helper()
	res, err := h.engine.Register(ipCtx("192.0.2."+username[:1]), RegisterRequest{
		Username:   username,
		Password:   testPassword,
		TenantName: tenant,
	})
	require.NoError(t, err)
	return res
}

// member creates a user in admin's tenant and logs it in.
func (h *harness) member(t testing.TB, admin AuthContext, username string, role Role) LoginResult {
	t.Helper()
	_, err := h.engine.CreateUser(context.Background(), admin, CreateUserRequest{
		Username: username,
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	res, err := h.engine.Login(ipCtx("198.51.100."+username[:1]), username, testPassword)
	require.NoError(t, err)
	return res
}
