package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestSetIdempotency_FirstClaimWins(t *testing.T) {
	client, _ := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	ok, err := adapter.SetIdempotency(ctx, "purchase:req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adapter.SetIdempotency(ctx, "purchase:req-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetIdempotency_Expires(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	ok, err := adapter.SetIdempotency(ctx, "purchase:req-1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, time.Minute, mr.TTL("idempotency:purchase:req-1"))

	mr.FastForward(2 * time.Minute)

	ok, err = adapter.SetIdempotency(ctx, "purchase:req-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetIdempotency_DefaultTTL(t *testing.T) {
	client, mr := getRedisClient(t)
	adapter := NewRedisAdapter(client, 0)

	_, err := adapter.SetIdempotency(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, mr.TTL("idempotency:k"))
}

func TestReleaseIdempotency(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	_, err := adapter.SetIdempotency(ctx, "purchase:req-1")
	require.NoError(t, err)

	require.NoError(t, adapter.ReleaseIdempotency(ctx, "purchase:req-1"))
	assert.False(t, mr.Exists("idempotency:purchase:req-1"))

	ok, err := adapter.SetIdempotency(ctx, "purchase:req-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetIdempotency_ServerDown(t *testing.T) {
	client, mr := getRedisClient(t)
	adapter := NewRedisAdapter(client, time.Minute)
	mr.Close()

	_, err := adapter.SetIdempotency(context.Background(), "k")
	assert.Error(t, err)
}

func TestSetIdempotency_Concurrent(t *testing.T) {
	client, _ := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.SetIdempotency(ctx, "purchase:same")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
}
