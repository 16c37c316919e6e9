package middleware

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"gatekeeper/config"
	deliverycontext "gatekeeper/internal/delivery/context"
	domainerrors "gatekeeper/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerMin  = 10
	defaultBurst           = 5
	defaultCleanupInterval = 5 * time.Minute
)

// clientLimiter is the token bucket of one client address.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles credential endpoints per client IP. Buckets idle for longer than
// the idle timeout are dropped by a background sweep.
type RateLimiter struct {
	enabled     bool
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration
	interval    time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	stopCh   chan struct{}
	stopOnce sync.Once
}

// RateLimiterParams holds dependencies for RateLimiter, injected by Fx.
type RateLimiterParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewRateLimiter builds the limiter and ties its sweep to the application lifecycle.
func NewRateLimiter(params RateLimiterParams) *RateLimiter {
	rl := newRateLimiter(params.Config.RateLimit, params.Logger)
	if !rl.enabled {
		return rl
	}

	params.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go rl.cleanupLoop()

			return nil
		},
		OnStop: func(context.Context) error {
			rl.Stop()

			return nil
		},
	})

	return rl
}

func newRateLimiter(cfg *config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:    rate.Limit(float64(defaultRequestsPerMin) / 60.0),
		burst:    defaultBurst,
		interval: defaultCleanupInterval,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	if cfg == nil {
		return rl
	}

	rl.enabled = cfg.Enabled
	if cfg.RequestsPerMin > 0 {
		rl.limit = rate.Limit(float64(cfg.RequestsPerMin) / 60.0)
	}
	if cfg.Burst > 0 {
		rl.burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		rl.interval = cfg.CleanupInterval
	}
	rl.idleTimeout = cfg.IdleTimeout
	if rl.idleTimeout <= 0 {
		rl.idleTimeout = 2 * rl.interval
	}

	return rl
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Limit rejects a client that has used up its bucket with 429 and a Retry-After header.
func (rl *RateLimiter) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	if !rl.enabled {
		return next
	}

	return func(c echo.Context) error {
		ip := c.RealIP()
		if rl.limiterFor(ip, time.Now()).Allow() {
			return next(c)
		}

		c.Response().Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), rl.logger).Warn("Rate limit exceeded",
			slog.String("remote_ip", ip),
			slog.String("path", c.Path()),
		)

		return domainerrors.ErrTooManyRequests
	}
}

// limiterFor returns the client's bucket, creating it on first use.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastAccess = now

	return cl.limiter
}

// retryAfterSeconds is the time until one token is refilled.
func (rl *RateLimiter) retryAfterSeconds() int {
	return max(1, int(math.Ceil(1.0/float64(rl.limit))))
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops buckets that have not been used within the idle timeout.
func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > rl.idleTimeout {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return len(rl.limiters)
}
