package tokencache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisClient connects to AZAUTH_TEST_REDIS_URL or skips the test.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	redisURL := os.Getenv("AZAUTH_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("AZAUTH_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	key := "azauth:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, key, key+":lock") })

	writer := New(WithHooks(NewRedisStore(client, WithRedisKey(key))))
	require.NoError(t, writer.BeforeAccess(ctx))
	writer.Store(testKey("res", "uid", "user"), testItem("a"))
	require.NoError(t, writer.AfterAccess(ctx))

	reader := New(WithHooks(NewRedisStore(client, WithRedisKey(key))))
	require.NoError(t, reader.BeforeAccess(ctx))
	assert.Equal(t, writer.Items(), reader.Items())

	exists, err := client.Exists(ctx, key+":lock").Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "lock is released")
}

func TestRedisStoreLockExhaustion(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	key := "azauth:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, key, key+":lock") })

	require.NoError(t, client.Set(ctx, key+":lock", "someone-else", time.Minute).Err())

	c := New(WithHooks(NewRedisStore(client, WithRedisKey(key), WithRedisLockRetry(2, 10*time.Millisecond))))
	err := c.BeforeAccess(ctx)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, ErrLockTimeout))

	holder, err := client.Get(ctx, key+":lock").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", holder, "a foreign lock is never released")
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not-a-url://")
	assert.Error(t, err)
}

func TestNewRedisStoreDefaults(t *testing.T) {
	s := NewRedisStore(nil)
	assert.Equal(t, DefaultRedisKey, s.key)
	assert.Equal(t, DefaultRedisKey+":lock", s.lockKey)
	assert.Equal(t, DefaultRedisLockTTL, s.lockTTL)
	assert.Equal(t, DefaultLockAttempts, s.retry.attempts)
}
