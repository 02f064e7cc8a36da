package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-events-service/internal/domain/user"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*RedisUserCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRedisUserCache(client, "user", ttl, zaptest.NewLogger(t)), mr
}

func TestRedisUserCache_SetThenGet(t *testing.T) {
	cache, mr := setupTestCache(t, 5*time.Minute)
	ctx := context.Background()
	ada := &domain.User{ID: 1, Name: "Ada", Email: "ada@example.com"}

	require.NoError(t, cache.Set(ctx, ada))

	raw, err := mr.Get("user:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Ada","email":"ada@example.com"}`, raw)

	cached, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ada, cached)
}

func TestRedisUserCache_Set_NilUser(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	err := cache.Set(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilUser)
}

func TestRedisUserCache_Get_Miss(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	cached, err := cache.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_Get_CorruptEntryIsEvicted(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	require.NoError(t, mr.Set("user:3", "not json"))

	_, err := cache.Get(context.Background(), 3)
	require.Error(t, err)
	assert.False(t, mr.Exists("user:3"))
}

func TestRedisUserCache_Get_ServerDown(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	mr.Close()

	_, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
}

func TestRedisUserCache_Delete(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &domain.User{ID: 1, Name: "Ada", Email: "ada@example.com"}))
	require.NoError(t, cache.Delete(ctx, 1))
	require.NoError(t, cache.Delete(ctx, 1))

	cached, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_TTL(t *testing.T) {
	cache, mr := setupTestCache(t, 2*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &domain.User{ID: 1, Name: "Ada", Email: "ada@example.com"}))

	mr.FastForward(3 * time.Second)

	cached, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
