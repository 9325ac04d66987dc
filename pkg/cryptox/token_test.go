package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("produces exact length lowercase hex", func(t *testing.T) {
		for _, length := range []int{2, 40, 64, 128} {
			token, err := cryptox.GenerateToken(length)
			require.NoError(t, err)
			require.Len(t, token, length)

			for _, c := range token {
				isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
				require.True(t, isHex, "unexpected character %q in token %q", c, token)
			}
		}
	})

	t.Run("rejects invalid lengths", func(t *testing.T) {
		for _, length := range []int{0, -2, 3, 41} {
			_, err := cryptox.GenerateToken(length)
			require.Error(t, err, "length %d should be rejected", length)
		}
	})

	t.Run("does not repeat", func(t *testing.T) {
		seen := make(map[string]struct{}, 10_000)
		for range 10_000 {
			token, err := cryptox.GenerateToken(cryptox.DefaultTokenLength)
			require.NoError(t, err)

			_, dup := seen[token]
			require.False(t, dup, "duplicate token %q", token)
			seen[token] = struct{}{}
		}
	})
}

func TestMustGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("returns token for valid length", func(t *testing.T) {
		require.Len(t, cryptox.MustGenerateToken(40), 40)
	})

	t.Run("panics on invalid length", func(t *testing.T) {
		require.Panics(t, func() { cryptox.MustGenerateToken(7) })
	})
}
