// Command authclient-loadtest drives many authenticated clients against an in-process fake
// authority and reports request latency and how many refreshes the authority saw.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authclient "github.com/MrEthical07/goAuth-client"
	"github.com/MrEthical07/goAuth-client/internal/authtest"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 64, "number of independent client sessions")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "requests per phase")
		accessTTL   = flag.Duration("access-ttl", 2*time.Second, "access token lifetime issued by the fake authority")
		skew        = flag.Duration("skew", 500*time.Millisecond, "client refresh skew")
		backend     = flag.String("store", "memory", "token store backend: memory or redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "acload", "redis key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if *skew >= *accessTTL {
		fmt.Fprintln(os.Stderr, "skew must be shorter than access-ttl")
		os.Exit(2)
	}

	ctx := context.Background()

	clock := authtest.NewClock(time.Now())
	stopClock := followWallClock(clock)
	defer stopClock()

	srv := authtest.NewServer(clock)
	srv.AccessTTL = *accessTTL
	defer srv.Close()

	var (
		rdb     redis.UniversalClient
		cleanup = func() {}
	)
	if *backend == string(authclient.StoreRedis) {
		addr := *redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
				os.Exit(1)
			}
			addr = mr.Addr()
			rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() {
				_ = rdb.Close()
				mr.Close()
			}
			fmt.Printf("using miniredis at %s\n", addr)
		} else {
			rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			cleanup = func() { _ = rdb.Close() }
			fmt.Printf("using redis at %s\n", addr)
		}
	}
	defer cleanup()

	key, err := randomKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("logging in %d sessions...\n", *sessions)
	startLogin := time.Now()
	clients := make([]*authclient.Client, *sessions)
	for i := range clients {
		cfg := authclient.DefaultConfig()
		cfg.Transport.BaseURL = srv.URL
		cfg.Refresh.Skew = *skew
		cfg.Store.Backend = authclient.StoreBackend(*backend)
		cfg.Store.Key = key
		cfg.Store.RedisPrefix = *prefix
		cfg.Store.Identity = fmt.Sprintf("load-%d", i)

		b := authclient.New().WithConfig(cfg)
		if rdb != nil {
			b = b.WithRedis(rdb)
		}
		c, err := b.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build client: %v\n", err)
			os.Exit(1)
		}
		defer c.Close()

		email := fmt.Sprintf("load-%d@example.com", i)
		srv.AddUser(email, "load-password")
		if _, err := c.Login(ctx, authclient.Credentials{Email: email, Password: "load-password"}); err != nil {
			fmt.Fprintf(os.Stderr, "login %s: %v\n", email, err)
			os.Exit(1)
		}
		clients[i] = c
	}
	fmt.Printf("logged in in %s\n", time.Since(startLogin).Round(time.Millisecond))

	before := srv.Refreshes.Load()
	steady := runRequestPhase(ctx, clients, *ops, *concurrency, nil)
	steadyRefreshes := srv.Refreshes.Load() - before

	// Every session loses its access token at once; concurrent callers of one session
	// must share a single refresh.
	before = srv.Refreshes.Load()
	revoke := func(c *authclient.Client) {
		if tok, err := c.AccessToken(ctx); err == nil {
			srv.RevokeAccess(tok)
		}
	}
	storm := runRequestPhase(ctx, clients, *ops, *concurrency, revoke)
	stormRefreshes := srv.Refreshes.Load() - before

	var refreshFailures, retriesExhausted uint64
	for _, c := range clients {
		snap := c.MetricsSnapshot()
		refreshFailures += snap.Counters[authclient.MetricRefreshFailure]
		retriesExhausted += snap.Counters[authclient.MetricRetryExhausted]
	}

	fmt.Println("---- results ----")
	printStats("steady", steady)
	fmt.Printf("steady: authority refreshes=%d\n", steadyRefreshes)
	printStats("revoked", storm)
	fmt.Printf("revoked: authority refreshes=%d (sessions=%d)\n", stormRefreshes, len(clients))
	fmt.Printf("client refresh failures=%d retries exhausted=%d\n", refreshFailures, retriesExhausted)
}

// runRequestPhase sends ops authenticated requests spread across clients. When prepare
// is set it runs once per client before the phase starts.
func runRequestPhase(ctx context.Context, clients []*authclient.Client, ops, concurrency int, prepare func(*authclient.Client)) phaseStats {
	if prepare != nil {
		for _, c := range clients {
			prepare(c)
		}
	}

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
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := clients[r.Intn(len(clients))]
				t0 := time.Now()
				resp, err := c.Do(ctx, authclient.Request{Method: "GET", Path: "/api/load"})
				d := time.Since(t0)
				if err != nil || !resp.OK() {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// followWallClock keeps the fake authority's clock in step with real time.
func followWallClock(clock *authtest.Clock) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(50 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-t.C:
				clock.Set(now)
			}
		}
	}()
	return func() { close(done) }
}

func randomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
