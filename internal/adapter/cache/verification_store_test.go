package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/manziosee/IST-auth-system/internal/adapter/cache"
)

func newStore(t *testing.T) (*cache.RedisVerificationStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisVerificationStore(client), srv
}

func TestSaveAndConsume(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.Save(ctx, "tok-1", 42, time.Hour))

	userID, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	// Consume is one-shot.
	userID, err = store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	require.Zero(t, userID)
}

func TestConsumeUnknownToken(t *testing.T) {
	store, _ := newStore(t)
	userID, err := store.Consume(context.Background(), "never-saved")
	require.NoError(t, err)
	require.Zero(t, userID)
}

func TestTokenExpires(t *testing.T) {
	ctx := context.Background()
	store, srv := newStore(t)

	require.NoError(t, store.Save(ctx, "tok-ttl", 7, time.Minute))
	srv.FastForward(2 * time.Minute)

	userID, err := store.Consume(ctx, "tok-ttl")
	require.NoError(t, err)
	require.Zero(t, userID)
}
