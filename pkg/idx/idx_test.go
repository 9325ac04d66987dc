package idx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("generates valid parseable IDs", func(t *testing.T) {
		id := idx.New()
		require.False(t, id.IsZero())

		parsed, err := idx.Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("IDs are monotonic within the same instant", func(t *testing.T) {
		now := time.Now().UTC()
		a := idx.NewAt(now)
		b := idx.NewAt(now)
		require.Less(t, a.String(), b.String())
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty strings", func(t *testing.T) {
		_, err := idx.Parse("")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := idx.Parse("not-a-ulid")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("round trips time", func(t *testing.T) {
		at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
		id := idx.NewAt(at)
		require.WithinDuration(t, at, id.Time(), time.Millisecond)
	})
}
