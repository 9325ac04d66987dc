package ratecounter_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/ratecounter"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a throwaway Redis instance and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mappedPort.Port())
}

func TestRedisCounter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	addr := setupRedisContainer(t)

	counter, err := ratecounter.NewRedisCounter(ratecounter.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = counter.Close() })

	ctx := context.Background()

	t.Run("counts within a window", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			count, retryAfter, err := counter.Increment(ctx, "window-test", time.Minute)
			require.NoError(t, err)
			require.Equal(t, want, count)
			require.Greater(t, retryAfter, time.Duration(0))
			require.LessOrEqual(t, retryAfter, time.Minute)
		}
	})

	t.Run("window expiry resets the count", func(t *testing.T) {
		count, _, err := counter.Increment(ctx, "expiry-test", time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		time.Sleep(1100 * time.Millisecond)

		count, _, err = counter.Increment(ctx, "expiry-test", time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	})

	t.Run("concurrent increments are atomic", func(t *testing.T) {
		const workers = 20

		var wg sync.WaitGroup
		wg.Add(workers)
		for range workers {
			go func() {
				defer wg.Done()
				_, _, err := counter.Increment(ctx, "concurrent-test", time.Minute)
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		count, _, err := counter.Increment(ctx, "concurrent-test", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(workers+1), count)
	})

	t.Run("rejects empty address", func(t *testing.T) {
		_, err := ratecounter.NewRedisCounter(ratecounter.RedisConfig{})
		require.Error(t, err)
	})
}
