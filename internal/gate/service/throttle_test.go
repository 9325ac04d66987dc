package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/ratecounter"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	t.Parallel()

	t.Run("accepts each period unit", func(t *testing.T) {
		cases := []struct {
			rate   string
			count  int
			window time.Duration
		}{
			{"10/s", 10, time.Second},
			{"60/m", 60, time.Minute},
			{"100/h", 100, time.Hour},
			{"1000/d", 1000, 24 * time.Hour},
		}
		for _, tc := range cases {
			count, window, err := ParseRate(tc.rate)
			require.NoError(t, err, tc.rate)
			require.Equal(t, tc.count, count, tc.rate)
			require.Equal(t, tc.window, window, tc.rate)
		}
	})

	t.Run("rejects malformed rates", func(t *testing.T) {
		for _, rate := range []string{
			"",
			"100",
			"abc/h",
			"10/min",
			"10/x",
			"0/s",
			"-5/m",
			"10/h/extra",
		} {
			_, _, err := ParseRate(rate)
			require.ErrorIs(t, err, ErrInvalidRateFormat, rate)
		}
	})
}

func TestIdent(t *testing.T) {
	t.Parallel()

	client := &domain.Client{ID: "client-id"}
	require.Equal(t, "user-alice.client-client-id", Ident("alice", client))
	require.Equal(t, "alice", Ident("alice", nil))
}

func TestThrottleServiceCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("default rate applies without an override", func(t *testing.T) {
		svc := &ThrottleService{
			Counter:     ratecounter.NewMemoryCounter(),
			DefaultRate: "2/h",
		}

		for i := 0; i < 2; i++ {
			decision, err := svc.Check(ctx, "user-alice.client-a", nil)
			require.NoError(t, err)
			require.True(t, decision.Allowed)
			require.Equal(t, 2, decision.Limit)
		}

		decision, err := svc.Check(ctx, "user-alice.client-a", nil)
		require.False(t, decision.Allowed)
		require.Positive(t, decision.RetryAfter)

		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)
		require.Positive(t, rle.RetryAfter)
	})

	t.Run("client override shadows the default", func(t *testing.T) {
		svc := &ThrottleService{
			Counter:     ratecounter.NewMemoryCounter(),
			DefaultRate: "100/h",
		}

		rate := "1/h"
		client := &domain.Client{ID: "a", ThrottleRate: &rate}

		decision, err := svc.Check(ctx, "user-alice.client-a", client)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, 1, decision.Limit)

		_, err = svc.Check(ctx, "user-alice.client-a", client)
		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)
	})

	t.Run("idents are counted independently", func(t *testing.T) {
		svc := &ThrottleService{
			Counter:     ratecounter.NewMemoryCounter(),
			DefaultRate: "1/h",
		}

		_, err := svc.Check(ctx, "user-alice.client-a", nil)
		require.NoError(t, err)

		// Same user, different client; different user, same client.
		_, err = svc.Check(ctx, "user-alice.client-b", nil)
		require.NoError(t, err)
		_, err = svc.Check(ctx, "user-bob.client-a", nil)
		require.NoError(t, err)

		_, err = svc.Check(ctx, "user-alice.client-a", nil)
		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)
	})

	t.Run("remaining counts down", func(t *testing.T) {
		svc := &ThrottleService{
			Counter:     ratecounter.NewMemoryCounter(),
			DefaultRate: "3/h",
		}

		decision, err := svc.Check(ctx, "user-alice.client-a", nil)
		require.NoError(t, err)
		require.Equal(t, 2, decision.Remaining)

		decision, err = svc.Check(ctx, "user-alice.client-a", nil)
		require.NoError(t, err)
		require.Equal(t, 1, decision.Remaining)
	})

	t.Run("empty rate disables throttling", func(t *testing.T) {
		svc := &ThrottleService{
			Counter:     ratecounter.NewMemoryCounter(),
			DefaultRate: "",
		}

		for i := 0; i < 50; i++ {
			decision, err := svc.Check(ctx, "user-alice.client-a", nil)
			require.NoError(t, err)
			require.True(t, decision.Allowed)
		}
	})

	t.Run("window reset allows traffic again", func(t *testing.T) {
		svc := &ThrottleService{
			Counter:     ratecounter.NewMemoryCounter(),
			DefaultRate: "1/s",
		}

		_, err := svc.Check(ctx, "user-alice.client-a", nil)
		require.NoError(t, err)

		_, err = svc.Check(ctx, "user-alice.client-a", nil)
		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)

		time.Sleep(1100 * time.Millisecond)

		decision, err := svc.Check(ctx, "user-alice.client-a", nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})
}
