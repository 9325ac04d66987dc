package domain

import "time"

// Client is a registered API-consuming application. Tokens issued under a
// client inherit its TokenTTL unless the issuer overrides it.
type Client struct {
	ID       string
	Name     string // unique across all clients
	TokenTTL time.Duration

	// ThrottleRate is the optional per-client override in "<count>/<period>"
	// form (period one of s, m, h, d), stored in client_settings. nil means
	// the scope-wide default applies.
	ThrottleRate *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
