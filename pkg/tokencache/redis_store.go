package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/giantswarm/azauth/pkg/logging"
)

const (
	// DefaultRedisKey is the key holding the serialized cache.
	DefaultRedisKey = "azauth:tokencache"

	// DefaultRedisLockTTL bounds how long a crashed holder can keep the lock.
	DefaultRedisLockTTL = 30 * time.Second
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStore persists a Cache under a single Redis key so that processes on
// different hosts can share it. The key is guarded by a SET NX lock with the
// same retry policy as FileStore.
type RedisStore struct {
	client  redis.UniversalClient
	key     string
	lockKey string
	lockTTL time.Duration
	retry   retryPolicy
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKey sets the key holding the cache. The lock key is derived from it.
func WithRedisKey(key string) RedisStoreOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
			s.lockKey = key + ":lock"
		}
	}
}

// WithRedisLockRetry sets the lock attempts and the delay between them.
func WithRedisLockRetry(attempts int, delay time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if attempts > 0 {
			s.retry.attempts = attempts
		}
		if delay >= 0 {
			s.retry.delay = delay
		}
	}
}

// WithRedisLockTTL sets the lock expiry.
func WithRedisLockTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// NewRedisStore creates a store on client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		lockTTL: DefaultRedisLockTTL,
		retry:   defaultRetryPolicy(),
	}
	WithRedisKey(DefaultRedisKey)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisCache creates a Cache persisted by a RedisStore connected to the redis:// URL.
func NewRedisCache(redisURL string, opts ...RedisStoreOption) (*Cache, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return New(WithHooks(NewRedisStore(redis.NewClient(redisOpts), opts...))), nil
}

// BeforeAccess loads the cache from Redis into c.
func (s *RedisStore) BeforeAccess(ctx context.Context, c *Cache) error {
	var data []byte
	err := s.withLock(ctx, func() error {
		var getErr error
		data, getErr = s.client.Get(ctx, s.key).Bytes()
		if errors.Is(getErr, redis.Nil) {
			data = nil
			return nil
		}
		return getErr
	})
	if err != nil {
		return &IOError{Op: "read", Path: s.key, Err: err}
	}

	if err := c.Deserialize(data); err != nil {
		logging.Warn("TokenCache", "Ignoring unreadable token cache in redis key %s: %v", s.key, err)
		return c.Deserialize(nil)
	}
	return nil
}

// AfterAccess writes c to Redis.
func (s *RedisStore) AfterAccess(ctx context.Context, c *Cache) error {
	data, err := c.Serialize()
	if err != nil {
		return &IOError{Op: "encode", Path: s.key, Err: err}
	}

	err = s.withLock(ctx, func() error {
		return s.client.Set(ctx, s.key, data, 0).Err()
	})
	if err != nil {
		return &IOError{Op: "write", Path: s.key, Err: err}
	}
	return nil
}

func (s *RedisStore) withLock(ctx context.Context, fn func() error) error {
	token := uuid.NewString()

	err := s.retry.do(ctx, func() error {
		ok, err := s.client.SetNX(ctx, s.lockKey, token, s.lockTTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			return errLocked
		}
		return nil
	})
	if err != nil {
		return err
	}

	defer func() {
		// Release with a fresh context so a cancelled caller does not leave the lock behind.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, s.client, []string{s.lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			logging.Warn("TokenCache", "Failed to release redis lock %s: %v", s.lockKey, err)
		}
	}()

	return fn()
}
