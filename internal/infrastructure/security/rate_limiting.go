package security

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// CacheRateLimiter counts requests per key in fixed windows stored in a
// shared cache, so limits hold across server instances.
type CacheRateLimiter struct {
	cache  outbound.CacheRepository
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewCacheRateLimiter allows limit requests per window.
func NewCacheRateLimiter(cache outbound.CacheRepository, limit int, window time.Duration) *CacheRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &CacheRateLimiter{cache: cache, limit: limit, window: window, now: time.Now}
}

func (l *CacheRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	n, err := l.cache.Increment(ctx, rateLimitKey(key, bucket), l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}

func rateLimitKey(key string, bucket int64) string {
	return "ratelimit:" + key + ":" + strconv.FormatInt(bucket, 10)
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps a token bucket per key in process memory.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLocalRateLimiter refills limit tokens per window with the given burst.
func NewLocalRateLimiter(limit, burst int, window time.Duration) *LocalRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if burst < 1 {
		burst = 1
	}
	return &LocalRateLimiter{
		limiters: make(map[string]*localEntry),
		rate:     rate.Limit(float64(limit) / window.Seconds()),
		burst:    burst,
		idle:     10 * window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// PruneInterval is how often the janitor started by Start runs.
func (l *LocalRateLimiter) PruneInterval() time.Duration {
	return l.idle / 10
}

// Start prunes idle limiters every interval until Stop is called.
func (l *LocalRateLimiter) Start(interval time.Duration) {
	if interval <= 0 {
		interval = l.PruneInterval()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Prune()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop ends the janitor. It is safe to call more than once.
func (l *LocalRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Len reports how many keys are tracked.
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// Prune drops limiters that have been idle for a while.
func (l *LocalRateLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	removed := 0
	for key, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// NewRateLimiter picks the shared cache limiter when Redis is enabled and the
// in-process one otherwise.
func NewRateLimiter(cfg *config.Config, cache outbound.CacheRepository, logger *zap.Logger) RateLimiter {
	rl := cfg.RateLimit
	if cfg.Redis.Enabled && cache != nil {
		logger.Info("Using shared rate limiter",
			zap.Int("requests_per_window", rl.RequestsPerMin),
			zap.Duration("window", rl.Window),
		)
		return NewCacheRateLimiter(cache, rl.RequestsPerMin, rl.Window)
	}
	logger.Info("Using in-process rate limiter",
		zap.Int("requests_per_window", rl.RequestsPerMin),
		zap.Int("burst", rl.BurstSize),
	)
	return NewLocalRateLimiter(rl.RequestsPerMin, rl.BurstSize, rl.Window)
}
