package middleware

// cache.go replays GET responses from Redis.  Entries live under the
// configured prefix so a write can drop the whole namespace.

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/smartfix/internal/config"
)

// replayHeaders are the response headers stored with a cached body.
var replayHeaders = []string{echo.HeaderContentType, echo.HeaderCacheControl, "Content-Language"}

// cachedResponse is the stored form of a response.  Body is base64 in JSON.
type cachedResponse struct {
	Status int               `json:"s"`
	Header map[string]string `json:"h,omitempty"`
	Body   []byte            `json:"b"`
}

// recorder tees the body into buf until it grows past limit.  limit <= 0
// means unbounded.
type recorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	overflown bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.overflown {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflown = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

func (r *recorder) cacheable() bool { return r.status == http.StatusOK && !r.overflown }

// cacheKeyFrom derives the entry key from the parts KeyStrategy names.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	id := c.Path()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
	case "method_route":
		id = r.Method + " " + id
	case "method_route_query":
		id = r.Method + " " + id + "?" + r.URL.RawQuery
	default:
		id = id + "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(id))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	cr := cachedResponse{Status: status, Body: body}
	for _, k := range replayHeaders {
		if v := header.Get(k); v != "" {
			if cr.Header == nil {
				cr.Header = map[string]string{}
			}
			cr.Header[k] = v
		}
	}
	return json.Marshal(cr)
}

func decodePayload(bs []byte) (cachedResponse, bool) {
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return cachedResponse{}, false
	}
	return cr, true
}

// NewRedisCache replays cached 200 responses for the configured methods.
// Responses are marked X-Cache HIT or MISS.  It is a pass-through when
// caching is disabled or Redis is unavailable.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)
			res := c.Response()

			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if cr, ok := decodePayload(bs); ok {
					for k, v := range cr.Header {
						res.Header().Set(k, v)
					}
					res.Header().Set("X-Cache", "HIT")
					res.WriteHeader(cr.Status)
					_, err := res.Write(cr.Body)
					return err
				}
			}

			rec := &recorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			res.Writer = rec
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if !rec.cacheable() {
				return nil
			}
			if payload, err := encodePayload(rec.status, res.Header(), rec.buf.Bytes()); err == nil {
				// the request context may already be cancelled once the body is out
				_ = rdb.Set(context.WithoutCancel(c.Request().Context()), key, payload, ttl).Err()
			}
			return nil
		}
	}
}

// InvalidateCache deletes every cached response under prefix.  A nil client
// is a no-op.
func InvalidateCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	if rdb == nil {
		return nil
	}
	const batch = 200
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", batch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Unlink(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
