// Package ratecounter provides a shared fixed-window request counter keyed
// by string. Counters are incremented atomically so concurrent requests for
// the same key can never both observe "under the limit" and over-admit.
package ratecounter

import (
	"context"
	"time"
)

// Counter is the shared counter backend used for request throttling. The
// first Increment for a key opens a window of the given duration; subsequent
// increments within that window bump the same count. Once the window lapses
// the count starts again from one.
type Counter interface {
	// Increment atomically bumps the counter for key and returns the count
	// within the current window along with the time remaining until the
	// window resets.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, retryAfter time.Duration, err error)

	// Close releases any underlying resources.
	Close() error
}
