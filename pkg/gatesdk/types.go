// Package gatesdk holds the request/response types of the gatekeep HTTP API
// so consuming services can decode responses without importing internals.
package gatesdk

// IssueTokenRequest asks for a token binding a principal to a client.
type IssueTokenRequest struct {
	UserID string `json:"user_id"`
	Client string `json:"client"`
	// TTLSeconds optionally overrides the client's default token TTL.
	TTLSeconds *int64 `json:"ttl_seconds,omitempty"`
}

// TokenResponse carries an issued (or reused) token.
type TokenResponse struct {
	Token     string `json:"token"`
	Client    string `json:"client"`
	ExpiresAt string `json:"expires_at"`
	ExpiresIn string `json:"expires_in"`
	// Reused is true when an existing live token was returned instead of a
	// freshly issued one.
	Reused bool `json:"reused,omitempty"`
}

// RenewResponse carries the extended expiry after a refresh.
type RenewResponse struct {
	ExpiresAt string `json:"expires_at"`
	ExpiresIn string `json:"expires_in"`
}

// SessionResponse describes the authenticated caller's token session.
type SessionResponse struct {
	UserID    string `json:"user_id"`
	Client    string `json:"client"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
	ExpiresIn string `json:"expires_in"`
}

// CreateClientRequest registers a new API-consuming application.
type CreateClientRequest struct {
	Name            string `json:"name"`
	TokenTTLSeconds int64  `json:"token_ttl_seconds"`
}

// ClientInfo describes a registered client.
type ClientInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	TokenTTLSeconds int64   `json:"token_ttl_seconds"`
	ThrottleRate    *string `json:"throttle_rate,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// ListClientsResponse wraps the client listing.
type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// SetThrottleRateRequest sets or clears a client's throttle-rate override.
// A null rate clears the override so the scope default applies.
type SetThrottleRateRequest struct {
	ThrottleRate *string `json:"throttle_rate"`
}

// UpdateTokenTTLRequest changes a client's default token TTL.
type UpdateTokenTTLRequest struct {
	TokenTTLSeconds int64 `json:"token_ttl_seconds"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Counter  string `json:"counter"`
}

// HealthResponse is returned by the livez/readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
