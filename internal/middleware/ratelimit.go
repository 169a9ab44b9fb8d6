package middleware

// ratelimit.go throttles requests with GCRA (the generic cell rate
// algorithm) kept in Redis.  Each key stores a single "theoretical arrival
// time"; a request is admitted while that time is no more than one burst
// ahead of now.

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/config"
)

// gcraScript returns {allowed, remaining, retry_after_ms}.
//
// ARGV: now_ms, emission_interval_ms, burst, ttl_ms
var gcraScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local emission = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tat = tonumber(redis.call('GET', KEYS[1]) or now)
if tat < now then tat = now end

local allow_at = tat + emission - burst * emission
if now < allow_at then
	return {0, 0, allow_at - now}
end

local new_tat = tat + emission
redis.call('SET', KEYS[1], new_tat, 'PX', math.max(ttl, new_tat - now))
return {1, math.floor((now - (new_tat - burst * emission)) / emission), 0}
`)

type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type limiter struct {
	rdb      *redis.Client
	cfg      config.RateLimitConfig
	emission time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func newLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) *limiter {
	if log == nil {
		log = zap.NewNop()
	}
	emission := cfg.RefillInterval / time.Duration(max(cfg.RefillTokens, 1))
	if emission <= 0 {
		emission = time.Second
	}
	return &limiter{rdb: rdb, cfg: cfg, emission: emission, log: log.Named("ratelimit"), now: time.Now}
}

func (l *limiter) take(ctx context.Context, key string) (decision, error) {
	res, err := gcraScript.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(), l.emission.Milliseconds(), l.cfg.Capacity, l.cfg.TTL.Milliseconds()).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(res) != 3 {
		return decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}
	return decision{allowed: res[0] == 1, remaining: res[1], retry: time.Duration(res[2]) * time.Millisecond}, nil
}

// NewRateLimiter throttles every request with the general limit.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	return limit(cfg, rdb, log)
}

// NewWriteLimiter is the tighter limit for anonymous write endpoints such as
// login, register and guest booking submission.
func NewWriteLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	return limit(cfg.Writes(), rdb, log)
}

func limit(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	l := newLimiter(cfg, rdb, log)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg.KeyStrategy, cfg.Prefix, c)
			d, err := l.take(c.Request().Context(), key)
			if err != nil {
				// Redis trouble must not take the API down.
				l.log.Warn("rate limit check failed, allowing", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.allowed {
				return next(c)
			}

			secs := int((d.retry + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				l.log.Info("rate limited", zap.String("key", key), zap.Duration("retry", d.retry))
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKey joins the prefix with the parts named by strategy, an underscore
// separated combination of "ip", "user" and "route".  Unknown strategies use
// all three.
func rateKey(strategy, prefix string, c echo.Context) string {
	parts := map[string]func() string{
		"ip": func() string {
			if ip := c.RealIP(); ip != "" {
				return ip
			}
			return "unknown"
		},
		"user":  func() string { return rateSubject(c) },
		"route": func() string { return c.Request().Method + " " + c.Path() },
	}
	names := strings.Split(strings.ToLower(strategy), "_")
	for _, n := range names {
		if parts[n] == nil {
			names = []string{"ip", "user", "route"}
			break
		}
	}
	key := []string{prefix}
	for _, n := range names {
		key = append(key, n, parts[n]())
	}
	return strings.Join(key, ":")
}
