package pos

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartStore keeps one cart per cashier between requests.
type CartStore interface {
	Load(ctx context.Context, cashierID string) (Cart, error)
	Save(ctx context.Context, cashierID string, cart Cart) error
	Clear(ctx context.Context, cashierID string) error
}

// RedisStore stores carts as JSON under pos:cart:<cashier id>.  Each save
// refreshes the TTL so an idle cart expires after a shift.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore returns a Redis-backed store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: "pos:cart:"}
}

func (s *RedisStore) key(cashierID string) string { return s.prefix + cashierID }

func (s *RedisStore) Load(ctx context.Context, cashierID string) (Cart, error) {
	b, err := s.rdb.Get(ctx, s.key(cashierID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, cashierID string, cart Cart) error {
	b, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(cashierID), b, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, cashierID string) error {
	return s.rdb.Del(ctx, s.key(cashierID)).Err()
}

// MemoryStore keeps carts in process memory.  It is used when Redis is not
// reachable and in tests; carts are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]Cart
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{carts: map[string]Cart{}} }

func (s *MemoryStore) Load(_ context.Context, cashierID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[cashierID]
	c.Lines = append([]Line(nil), c.Lines...)
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, cashierID string, cart Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart.Lines = append([]Line(nil), cart.Lines...)
	s.carts[cashierID] = cart
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, cashierID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cashierID)
	return nil
}

// NewStore picks Redis when a client is available.
func NewStore(rdb *redis.Client, ttl time.Duration) CartStore {
	if rdb == nil {
		return NewMemoryStore()
	}
	return NewRedisStore(rdb, ttl)
}
