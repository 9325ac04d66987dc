package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/ratecounter"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// ScopeUserPerClient is the throttle scope under which the system-wide
// default rate is configured. Per-client overrides shadow it.
const ScopeUserPerClient = "user_per_client"

// ErrInvalidRateFormat reports a throttle rate that is not of the form
// "<count>/<period>" with period one of s, m, h, d.
var ErrInvalidRateFormat = errors.New("invalid throttle rate format")

// RateLimitError is returned when a request is denied by the throttle.
// RetryAfter tells the caller how long until the window resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

var periodSeconds = map[string]int{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// ParseRate parses "<count>/<period>" into a request budget and window,
// e.g. "100/h" into (100, time.Hour). Run this at settings-write time so a
// malformed rate never reaches request-time enforcement.
func ParseRate(rate string) (int, time.Duration, error) {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q must be <count>/<period>", ErrInvalidRateFormat, rate)
	}

	numRequests, err := strconv.Atoi(parts[0])
	if err != nil || numRequests <= 0 {
		return 0, 0, fmt.Errorf("%w: %q has no positive request count", ErrInvalidRateFormat, rate)
	}

	seconds, ok := periodSeconds[parts[1]]
	if !ok {
		return 0, 0, fmt.Errorf("%w: period %q must be one of s, m, h, d", ErrInvalidRateFormat, parts[1])
	}

	return numRequests, time.Duration(seconds) * time.Second, nil
}

// Decision is the outcome of a throttle check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// ThrottleService resolves the effective request rate for an authenticated
// principal and enforces it against the shared counter backend.
type ThrottleService struct {
	Counter ratecounter.Counter

	// DefaultRate applies whenever the request's client carries no override.
	// Validated at startup; "" disables default throttling entirely.
	DefaultRate string
}

// Ident buckets rate-limit counters per requester. Requests carrying a
// resolved client context get a user+client bucket so the same principal is
// counted independently per client; anything else falls back to the bare
// principal ID.
func Ident(userID string, client *domain.Client) string {
	if client != nil {
		return fmt.Sprintf("user-%s.client-%s", userID, client.ID)
	}
	return userID
}

// Check resolves the applicable rate (client override first, scope default
// otherwise) and counts this request against the ident's window. A denied
// request returns a *RateLimitError carrying the retry-after hint.
func (s *ThrottleService) Check(ctx context.Context, ident string, client *domain.Client) (Decision, error) {
	l := slogx.FromContext(ctx)

	rate := s.DefaultRate
	if client != nil && client.ThrottleRate != nil {
		rate = *client.ThrottleRate
	}
	if rate == "" {
		return Decision{Allowed: true}, nil
	}

	limit, window, err := ParseRate(rate)
	if err != nil {
		// Write-time validation should make this unreachable.
		return Decision{}, fmt.Errorf("stored throttle rate is malformed: %w", err)
	}

	key := fmt.Sprintf("throttle_%s_%s", ScopeUserPerClient, ident)
	count, retryAfter, err := s.Counter.Increment(ctx, key, window)
	if err != nil {
		return Decision{}, fmt.Errorf("counter backend unavailable: %w", err)
	}

	if count > int64(limit) {
		l.Warn("rate limit exceeded",
			"ident", ident,
			"rate", rate,
			"count", count,
			"retry_after", retryAfter,
		)
		return Decision{
			Allowed:    false,
			Limit:      limit,
			RetryAfter: retryAfter,
		}, &RateLimitError{RetryAfter: retryAfter}
	}

	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
	}, nil
}
