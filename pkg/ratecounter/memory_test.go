package ratecounter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryCounterIncrement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("counts within a window", func(t *testing.T) {
		c := NewMemoryCounter()

		for want := int64(1); want <= 3; want++ {
			count, retryAfter, err := c.Increment(ctx, "ident", time.Minute)
			require.NoError(t, err)
			require.Equal(t, want, count)
			require.Greater(t, retryAfter, time.Duration(0))
			require.LessOrEqual(t, retryAfter, time.Minute)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		c := NewMemoryCounter()

		count, _, err := c.Increment(ctx, "a", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		count, _, err = c.Increment(ctx, "b", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	})

	t.Run("window lapse resets the count", func(t *testing.T) {
		c := NewMemoryCounter()

		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		count, _, err := c.Increment(ctx, "ident", time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		count, _, err = c.Increment(ctx, "ident", time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(2), count)

		now = now.Add(1100 * time.Millisecond)

		count, retryAfter, err := c.Increment(ctx, "ident", time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
		require.Equal(t, time.Second, retryAfter)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		c := NewMemoryCounter()

		const workers = 50
		var wg sync.WaitGroup
		wg.Add(workers)
		for range workers {
			go func() {
				defer wg.Done()
				_, _, err := c.Increment(ctx, "shared", time.Minute)
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		count, _, err := c.Increment(ctx, "shared", time.Minute)
		require.NoError(t, err)
		require.Equal(t, int64(workers+1), count)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		c := NewMemoryCounter()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := c.Increment(cancelled, "ident", time.Minute)
		require.Error(t, err)
	})
}

func TestMemoryCounterSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewMemoryCounter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.lastSweep = now

	_, _, err := c.Increment(ctx, "stale", time.Second)
	require.NoError(t, err)

	// Push past the window and the sweep interval
	now = now.Add(6 * time.Minute)

	_, _, err = c.Increment(ctx, "fresh", time.Minute)
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotContains(t, c.entries, "stale")
	require.Contains(t, c.entries, "fresh")
}
