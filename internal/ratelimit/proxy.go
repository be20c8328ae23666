package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/config"
	"github.com/venuelens/social-indexer/internal/logger"
)

// RequestFunc performs the actual outbound API call once a token is held
type RequestFunc func(ctx context.Context) (interface{}, error)

type requestResult struct {
	value interface{}
	err   error
}

// Proxy funnels all outbound source API calls through per-source rate
// limits shared across worker processes. Every fetch goes through here;
// no source client talks to its platform directly.
//
//go:generate mockgen -source=proxy.go -destination=../mocks/ratelimit_proxy.go -package=mocks -mock_names=Proxy=MockRateLimitProxy
type Proxy interface {
	// Request submits a rate-limited request for execution
	Request(ctx context.Context, sourceName string, fn RequestFunc) (interface{}, error)

	// Close gracefully shuts down the proxy
	Close() error
}

type proxy struct {
	config         config.RateLimiterConfig
	pool           pond.ResultPool[*requestResult]
	gates          map[string]*sourceGate
	redis          adapter.RedisClient
	clock          adapter.Clock
	closed         atomic.Bool
	closeOnce      sync.Once
	redisAvailable atomic.Bool
}

// sourceGate holds the limiting state for one source platform. The
// distributed limiter is authoritative; the local limiter only takes over
// when Redis is down, at a reduced rate so several workers falling back
// together stay under the platform budget.
type sourceGate struct {
	name        string
	config      config.RateLimitConfig
	distributed adapter.RedisRateLimiter
	local       *rate.Limiter
	preFilter   *rate.Limiter
}

// NewProxy creates a new rate-limiting proxy
func NewProxy(cfg config.RateLimiterConfig, rc adapter.RedisClient, clock adapter.Clock) (Proxy, error) {
	if err := applyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx).Err(); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("redis unavailable, using local rate limit fallback", zap.Error(err))
	}

	distributed := rc.NewRateLimiter()

	gates := make(map[string]*sourceGate)
	for name, sourceCfg := range cfg.Providers {
		localRate := max(float64(sourceCfg.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)
		gates[name] = &sourceGate{
			name:        name,
			config:      sourceCfg,
			distributed: distributed,
			local:       rate.NewLimiter(rate.Limit(localRate), sourceCfg.Burst),
			// Pre-filter at the full rate to avoid hammering Redis when
			// the budget is clearly exhausted locally
			preFilter: rate.NewLimiter(rate.Limit(sourceCfg.RequestsPerSecond), sourceCfg.Burst),
		}
	}

	pool := pond.NewResultPool[*requestResult](
		cfg.MaxWorkers,
		pond.WithQueueSize(cfg.MaxQueueSize),
	)

	p := &proxy{
		config: cfg,
		pool:   pool,
		gates:  gates,
		redis:  rc,
		clock:  clock,
	}
	p.redisAvailable.Store(redisAvailable)

	go p.monitorRedisHealth()

	logger.Info("rate limit proxy initialized",
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Int("max_queue_size", cfg.MaxQueueSize),
		zap.Int("sources", len(cfg.Providers)),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return p, nil
}

// Request submits a rate-limited request and returns its typed result.
// A nil proxy executes the function directly, which keeps tests simple.
func Request[T any](ctx context.Context, p Proxy, sourceName string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}

	var zero T
	result, err := p.Request(ctx, sourceName, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

// Request blocks until a token is acquired and the request completes, the
// context is canceled, or the source's maximum queue time elapses
func (p *proxy) Request(ctx context.Context, sourceName string, fn RequestFunc) (interface{}, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("proxy is closed")
	}

	gate, ok := p.gates[sourceName]
	if !ok {
		return nil, fmt.Errorf("source '%s' not configured", sourceName)
	}

	queueCtx, cancel := context.WithTimeout(ctx, gate.config.MaxQueueTime)
	defer cancel()

	task := p.pool.Submit(func() *requestResult {
		if err := p.acquireToken(queueCtx, gate); err != nil {
			return &requestResult{err: err}
		}
		value, err := fn(queueCtx)
		return &requestResult{value: value, err: err}
	})

	result, err := task.Wait()
	if err != nil {
		return nil, err
	}
	if result.err != nil {
		return nil, result.err
	}
	return result.value, nil
}

// acquireToken blocks until a token is available from the distributed
// limiter, or from the local fallback when Redis is down
func (p *proxy) acquireToken(ctx context.Context, gate *sourceGate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.redisAvailable.Load() {
			allowed, retryAfter, err := p.tryDistributed(ctx, gate)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				p.redisAvailable.Store(false)
				if !p.config.EnableLocalFallback {
					return fmt.Errorf("redis rate limiter unavailable: %w", err)
				}

				logger.Warn("redis rate limiter error, falling back to local",
					zap.String("source", gate.name),
					zap.Error(err),
				)
			} else if allowed {
				return nil
			} else if retryAfter > 0 {
				// Jitter the wait (50-150%) so workers don't retry in lockstep
				jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-p.clock.After(jitter):
					continue
				}
			}
		}

		if !p.redisAvailable.Load() && p.config.EnableLocalFallback {
			return gate.local.Wait(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(100 * time.Millisecond):
		}
	}
}

// tryDistributed attempts to take one token from the Redis-backed limiter
func (p *proxy) tryDistributed(ctx context.Context, gate *sourceGate) (bool, time.Duration, error) {
	if gate.distributed == nil {
		return false, 0, fmt.Errorf("distributed limiter not available")
	}

	if err := gate.preFilter.Wait(ctx); err != nil {
		return false, 0, err
	}

	key := p.config.RedisKeyPrefix + gate.name
	res, err := gate.distributed.Allow(ctx, key, redis_rate.PerSecond(gate.config.RequestsPerSecond))
	if err != nil {
		return false, 0, err
	}

	if res.Allowed == 0 {
		logger.Debug("rate limit token unavailable, waiting",
			zap.String("source", gate.name),
			zap.Duration("retry_after", res.RetryAfter),
			zap.Int("remaining", res.Remaining),
		)
		return false, res.RetryAfter, nil
	}

	return true, 0, nil
}

// monitorRedisHealth periodically probes Redis and flips availability so the
// proxy moves back off the local fallback once Redis recovers
func (p *proxy) monitorRedisHealth() {
	ticker := p.clock.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		if p.closed.Load() {
			return
		}

		<-ticker.C

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := p.redis.Ping(ctx).Err()
		cancel()

		available := err == nil
		wasAvailable := p.redisAvailable.Load()
		p.redisAvailable.Store(available)

		if !wasAvailable && available {
			logger.Info("redis connection restored")
		}
	}
}

// Close waits for in-flight requests to complete, then stops the worker
// pool. The redis client is not closed here; the caller that created it
// owns its lifecycle.
func (p *proxy) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		tasks := p.pool.Stop()
		if errTasks := tasks.Wait(); errTasks != nil {
			logger.Warn("error waiting for pool tasks to complete", zap.Error(errTasks))
			err = errTasks
		}
	})
	return err
}

// applyDefaults validates the configuration and fills in defaults
func applyDefaults(cfg *config.RateLimiterConfig) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	for name, source := range cfg.Providers {
		if source.RequestsPerSecond <= 0 {
			return fmt.Errorf("source %s: requests_per_second must be positive", name)
		}
		if source.Burst <= 0 {
			source.Burst = source.RequestsPerSecond
		}
		if source.MaxQueueTime <= 0 {
			source.MaxQueueTime = 5 * time.Minute
		}
		cfg.Providers[name] = source
	}

	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "social:indexer:limiter:"
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU() * 10
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 10000
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}

	return nil
}
