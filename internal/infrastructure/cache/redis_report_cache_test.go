package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container for the test
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisReportCache(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	c := NewRedisReportCacheWithClient(client, "test:report:", time.Minute)

	t.Run("miss", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get with ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", []byte(`{"rows":[]}`)))

		data, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `{"rows":[]}`, string(data))

		ttl, err := client.TTL(ctx, "test:report:k").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("clear removes only prefixed keys", func(t *testing.T) {
		for i := 0; i < 450; i++ {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("bulk-%d", i), []byte("x")))
		}
		require.NoError(t, client.Set(ctx, "other:key", "keep", 0).Err())

		require.NoError(t, c.Clear(ctx))

		n, err := client.Exists(ctx, "test:report:bulk-1", "test:report:k").Result()
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, "keep", client.Get(ctx, "other:key").Val())
	})
}

func TestNewRedisReportCacheWithClient_Defaults(t *testing.T) {
	c := NewRedisReportCacheWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", 0)
	defer c.Close()

	assert.Equal(t, defaultKeyPrefix, c.keyPrefix)
	assert.Equal(t, defaultReportTTL, c.ttl)
}
