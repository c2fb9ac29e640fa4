package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arkivault/authcore"
	"github.com/arkivault/authcore/password"
	"github.com/arkivault/authcore/token"
)

const seedPassword = "loadtest-password"

type familyState struct {
	refreshToken string
	mu           sync.Mutex
}

// memoryDirectory is a read-only user set for load generation.
type memoryDirectory struct {
	users map[string]*authcore.UserRecord
}

func (d *memoryDirectory) FindByIdentifier(_ context.Context, identifier string) (*authcore.UserRecord, error) {
	user, ok := d.users[identifier]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (d *memoryDirectory) UpdateMFASecret(context.Context, string, string, time.Time) error {
	return nil
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (login + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "arf", "refresh family key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, identifiers, err := buildEngine(*users, *prefix, client, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d refresh families...\n", *users)
	startSeed := time.Now()
	states := make([]familyState, *users)
	for i := range states {
		result, err := engine.Login(ctx, authcore.LoginRequest{
			Identifier: identifiers[i],
			Password:   seedPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].refreshToken = result.RefreshToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runLoginPhase(ctx, engine, identifiers, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: logins=%d refreshes=%d reuse=%d audit_dropped=%d\n",
		snap.Counters[authcore.MetricLoginSuccess],
		snap.Counters[authcore.MetricRefreshSuccess],
		snap.Counters[authcore.MetricRefreshReuse],
		engine.AuditDropped(),
	)
}

// buildEngine wires the core against the redis family store with a
// synthetic directory. Throughput-grade argon2 parameters keep the load
// on the token path instead of the KDF.
func buildEngine(users int, prefix string, client redis.UniversalClient, logger *zap.Logger) (*authcore.Engine, []string, error) {
	cfg := authcore.Config{
		Token: authcore.TokenConfig{
			Issuer:        "authcore-loadtest",
			Audience:      "authcore-loadtest",
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			SigningMethod: token.MethodHS256,
			PrivateKey:    []byte("loadtest-signing-key-0123456789abc"),
			RedisPrefix:   prefix,
		},
		Password: password.Params{
			Memory:      8 * 1024,
			Time:        1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   16,
		},
		Secrets: authcore.SecretsConfig{
			CurrentKeyVersion: 1,
			Keys: map[int][]byte{
				1: []byte("loadtest-mfa-seed-key-0123456789"),
			},
		},
		Audit: authcore.AuditConfig{Enabled: true, BufferSize: 4096},
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, nil, err
	}

	identifiers := make([]string, users)
	dir := &memoryDirectory{users: make(map[string]*authcore.UserRecord, users)}
	for i := 0; i < users; i++ {
		identifier := fmt.Sprintf("user-%d@loadtest.local", i)
		identifiers[i] = identifier
		dir.users[identifier] = &authcore.UserRecord{
			ID:           fmt.Sprintf("u-%d", i),
			Identifier:   identifier,
			PasswordHash: hash,
			Role:         authcore.RoleUser,
		}
	}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithRedis(client).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, identifiers, nil
}

func runLoginPhase(ctx context.Context, engine *authcore.Engine, identifiers []string, ops, concurrency int) phaseStats {
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
				identifier := identifiers[r.Intn(len(identifiers))]
				t0 := time.Now()
				_, err := engine.Login(ctx, authcore.LoginRequest{
					Identifier: identifier,
					Password:   seedPassword,
				})
				d := time.Since(t0)
				if err != nil {
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

func runRefreshPhase(ctx context.Context, engine *authcore.Engine, states []familyState, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				// The family's current token must be presented exactly once;
				// a racing second presentation is reuse and burns the family.
				state.mu.Lock()
				t0 := time.Now()
				result, err := engine.Refresh(ctx, state.refreshToken)
				d := time.Since(t0)
				if err == nil {
					state.refreshToken = result.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

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
