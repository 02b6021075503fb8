package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const minPairTTL = time.Second

// RedisStore keeps one sealed pair per client identity under a single key.
//
// The key TTL follows the refresh-token expiry, so Redis drops a pair once it can no
// longer be refreshed. Access control is delegated to Redis AUTH/ACL on top of sealing.
type RedisStore struct {
	redis    redis.UniversalClient
	prefix   string
	identity string
	sealer   Sealer
	now      func() time.Time
}

// NewRedisStore creates a [RedisStore]. prefix namespaces keys; identity distinguishes
// installations sharing one Redis.
func NewRedisStore(rdb redis.UniversalClient, prefix, identity string, sealer Sealer) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if sealer == nil {
		return nil, ErrSealerRequired
	}
	if prefix == "" {
		prefix = "ac"
	}
	if identity == "" {
		identity = "default"
	}
	return &RedisStore{
		redis:    rdb,
		prefix:   prefix,
		identity: identity,
		sealer:   sealer,
		now:      time.Now,
	}, nil
}

func (s *RedisStore) key() string {
	return s.prefix + ":tok:" + s.identity
}

// Save writes the pair with a single SET, replacing any previous pair atomically.
//
//	Performance: 1 Redis SET.
func (s *RedisStore) Save(ctx context.Context, pair Pair) error {
	data, err := Encode(pair)
	if err != nil {
		return err
	}
	key := s.key()
	sealed, err := s.sealer.Seal(data, []byte(key))
	if err != nil {
		return fmt.Errorf("seal token pair: %w", err)
	}

	ttl := pair.RefreshExpiresAt.Sub(s.now())
	if ttl < minPairTTL {
		ttl = minPairTTL
	}

	if err := s.redis.Set(ctx, key, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Load reads the pair. A missing key reports ok=false.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Load(ctx context.Context) (Pair, bool, error) {
	key := s.key()
	sealed, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := s.sealer.Open(sealed, []byte(key))
	if err != nil {
		return Pair{}, false, err
	}
	pair, err := Decode(data)
	if err != nil {
		return Pair{}, false, err
	}
	return pair, true, nil
}

// Clear deletes the pair. Deleting a missing key is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
