// Package zipcode resolves US ZIP codes to city and state for address
// auto-fill.  Results are cached in Redis; concurrent lookups of the same ZIP
// share one upstream request.
package zipcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/iliyamo/smartfix/internal/config"
)

var (
	ErrInvalidZip = errors.New("zip code must be 5 digits")
	ErrNotFound   = errors.New("zip code not found")
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Place is the auto-fill answer for one ZIP code.
type Place struct {
	Zip       string `json:"zip"`
	City      string `json:"city"`
	State     string `json:"state"`
	StateCode string `json:"state_code"`
}

// Client calls the public lookup service at BaseURL/{zip}.
type Client struct {
	base    string
	http    *http.Client
	rdb     *redis.Client
	ttl     time.Duration
	timeout time.Duration
	limiter *rate.Limiter
	group   singleflight.Group
	log     *zap.Logger
}

// New builds a client.  rdb may be nil to disable caching.
func New(cfg config.ZipConfig, rdb *redis.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		rdb:     rdb,
		ttl:     cfg.CacheTTL,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(5), 10), // upstream is a free public API
		log:     log.Named("zipcode"),
	}
}

func cacheKey(zip string) string { return "zip:" + zip }

// Lookup returns the place for zip.
func (c *Client) Lookup(ctx context.Context, zip string) (Place, error) {
	zip = strings.TrimSpace(zip)
	if !zipPattern.MatchString(zip) {
		return Place{}, ErrInvalidZip
	}
	if p, ok := c.cached(ctx, zip); ok {
		return p, nil
	}
	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := c.group.DoChan(zip, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		p, err := c.fetch(fctx, zip)
		if err != nil {
			return Place{}, err
		}
		c.store(fctx, p)
		return p, nil
	})
	select {
	case <-ctx.Done():
		return Place{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Place{}, res.Err
		}
		return res.Val.(Place), nil
	}
}

func (c *Client) cached(ctx context.Context, zip string) (Place, bool) {
	if c.rdb == nil {
		return Place{}, false
	}
	b, err := c.rdb.Get(ctx, cacheKey(zip)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("zip cache read failed", zap.Error(err))
		}
		return Place{}, false
	}
	var p Place
	if err := json.Unmarshal(b, &p); err != nil {
		return Place{}, false
	}
	return p, true
}

func (c *Client) store(ctx context.Context, p Place) {
	if c.rdb == nil || c.ttl <= 0 {
		return
	}
	b, _ := json.Marshal(p)
	if err := c.rdb.Set(ctx, cacheKey(p.Zip), b, c.ttl).Err(); err != nil {
		c.log.Warn("zip cache write failed", zap.Error(err))
	}
}

// upstream response shape.
type lookupResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName string `json:"place name"`
		State     string `json:"state"`
		StateAbbr string `json:"state abbreviation"`
	} `json:"places"`
}

func (c *Client) fetch(ctx context.Context, zip string) (Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Place{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+zip, nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("zip lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Place{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Place{}, fmt.Errorf("zip lookup: unexpected status %d", resp.StatusCode)
	}
	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("zip lookup: decode: %w", err)
	}
	if len(body.Places) == 0 {
		return Place{}, ErrNotFound
	}
	first := body.Places[0]
	return Place{Zip: zip, City: first.PlaceName, State: first.State, StateCode: first.StateAbbr}, nil
}
