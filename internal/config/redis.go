package config

// Redis backs rate limiting, response caching, the POS cashier carts and the
// ZIP lookup cache.  When the server cannot be reached at startup the
// constructor returns nil and callers degrade: caching and rate limiting are
// disabled and carts fall back to process memory.

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	TLS         bool
	PingTimeout time.Duration
	PoolSize    int
}

// LoadRedisConfig reads the REDIS_* variables.  REDIS_HOST and REDIS_PORT
// together win over REDIS_ADDR; with neither set the local default is used.
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	return RedisConfig{
		Addr:        addr,
		Password:    envStr("REDIS_PASSWORD", ""),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
		PoolSize:    envInt("REDIS_POOL_SIZE", 0),
	}
}

func (c RedisConfig) options() *redis.Options {
	opt := &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
	if c.TLS {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true} // managed redis with self-signed certs
	}
	return opt
}

// NewRedisClient connects and pings.  It returns nil when the ping fails.
func NewRedisClient(ctx context.Context, cfg RedisConfig) *redis.Client {
	client := redis.NewClient(cfg.options())
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
