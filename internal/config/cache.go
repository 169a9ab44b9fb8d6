package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.  Caching
// is skipped when Enabled is false or no Redis client is available.  Only
// public catalogue reads and the admin dashboard are wrapped by the cache;
// writes that change bookings or inventory drop the whole Prefix namespace.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	DashboardTTL time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		DashboardTTL: envDur("CACHE_DASHBOARD_TTL", 15*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.DashboardTTL > cfg.TTL && cfg.TTL > 0 {
		cfg.DashboardTTL = cfg.TTL
	}
	return cfg
}

// WithTTL returns a copy of the config using the given entry lifetime.
func (c CacheConfig) WithTTL(ttl time.Duration) CacheConfig {
	c.TTL = ttl
	return c
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
