package domain

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// AuthToken is the opaque bearer credential bound 1:1 to a UserClient link.
// The token string is globally unique and indexed for lookup. Expiry is a
// wall-clock predicate, never stored state: an expired token stays in the
// database until revoked or purged.
type AuthToken struct {
	ID     string
	Token  string
	LinkID string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// HasExpired reports whether the token is past its expiry at the given
// instant. Evaluate with time.Now() on every authentication check; the
// result must not be cached.
func (t AuthToken) HasExpired(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// ExpiresIn renders the token's issued lifetime (expiry minus creation) in
// approximate human units, e.g. "3 days". Returns "N/A" when no expiry is
// set.
func (t AuthToken) ExpiresIn() string {
	if t.ExpiresAt.IsZero() {
		return "N/A"
	}
	return strings.TrimSpace(humanize.RelTime(t.CreatedAt, t.ExpiresAt, "", ""))
}

// TokenRenewed is emitted once per successful renewal. Actor identifies who
// triggered the renewal, for auditing.
type TokenRenewed struct {
	Token     AuthToken
	NewExpiry time.Time
	Actor     string
}
