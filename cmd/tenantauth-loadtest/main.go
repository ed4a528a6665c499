// Command tenantauth-loadtest measures the Redis hot paths: session lookup,
// the sliding-window limiter and the failure lockout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tenantauth/internal/limiters"
	"github.com/MrEthical07/tenantauth/internal/rate"
	"github.com/MrEthical07/tenantauth/session"
	"github.com/MrEthical07/tenantauth/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		clients     = flag.Int("clients", 1000, "distinct client IPs for the limiter phase")
		users       = flag.Int("users", 5000, "distinct usernames for the lockout phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "key prefix for every phase")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *clients <= 0 || *users <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops, clients and users must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, *prefix+":sess", nil)
	limiter := rate.New(client, rate.Config{Prefix: *prefix + ":rl"})
	lockout := limiters.NewLockoutLimiter(client, limiters.LockoutConfig{Prefix: *prefix + ":lo"})

	hashes, err := seedSessions(ctx, store, *sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	verifyStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := store.Get(ctx, hashes[r.Intn(len(hashes))])
		return err
	})
	limitStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		key := fmt.Sprintf("login:10.0.%d.%d", r.Intn(*clients)/256, r.Intn(*clients)%256)
		_, err := limiter.Check(ctx, key, 10, time.Minute)
		return err
	})
	lockoutStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := lockout.RecordFailure(ctx, fmt.Sprintf("user-%d", r.Intn(*users)))
		return err
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("ratelimit", limitStats)
	printStats("lockout", lockoutStats)
}

func seedSessions(ctx context.Context, store *session.Store, n int) ([]string, error) {
	fmt.Printf("seeding %d sessions...\n", n)
	start := time.Now()
	now := time.Now()
	hashes := make([]string, n)
	for i := 0; i < n; i++ {
		tok, err := token.Generate()
		if err != nil {
			return nil, err
		}
		hashes[i] = token.Hash(tok)
		sess := &session.Session{
			TokenHash: hashes[i],
			UserID:    fmt.Sprintf("user-%d", i%1000),
			CreatedAt: now.UnixMilli(),
			ExpiresAt: now.Add(24 * time.Hour).UnixMilli(),
		}
		if err := store.Save(ctx, sess); err != nil {
			return nil, err
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return hashes, nil
}

// runPhase calls op ops times across concurrency workers and records the
// latency of each call. Limiter denials and lockouts are results, not failures.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-9s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
