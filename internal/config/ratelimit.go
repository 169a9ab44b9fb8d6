package config

import "time"

// RateLimitConfig configures the Redis request limiter.  Capacity is the
// burst allowed across the whole API; WriteCapacity is the tighter burst on
// the public write endpoints (login, register, guest booking submission).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	WriteCapacity  int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_*.  RATE_LIMIT_BURST overrides the
// capacity and RATE_LIMIT_REFILL_EVERY sets a one-token-per-period rate.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_BURST", envInt("RATE_LIMIT_CAPACITY", 60)),
		WriteCapacity:  envInt("RATE_LIMIT_WRITE_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens, c.RefillInterval = 1, every
	}
	return c.normalize()
}

// normalize clamps every knob to a usable value.  The write capacity never
// exceeds the general one and keys outlive a few refill periods.
func (c RateLimitConfig) normalize() RateLimitConfig {
	c.Capacity = max(c.Capacity, 1)
	if c.WriteCapacity < 1 || c.WriteCapacity > c.Capacity {
		c.WriteCapacity = c.Capacity
	}
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}

// Writes returns the stricter variant used on public write endpoints.  It
// keeps its own key prefix so both limits are tracked independently.
func (c RateLimitConfig) Writes() RateLimitConfig {
	c.Capacity = c.WriteCapacity
	c.Prefix = c.Prefix + ":w"
	return c
}
