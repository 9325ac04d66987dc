package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrDuplicateToken reports a token-string collision on insert, as
	// opposed to ErrAlreadyExists which covers every other uniqueness
	// violation (client name, link pair, one-token-per-link). Callers treat
	// a duplicate token as a cue to regenerate and retry.
	ErrDuplicateToken = errors.New("store: duplicate token string")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and let the service
// layer depend on narrow interfaces in tests.
type Store interface {
	Clients() Clients
	Links() Links
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn returns an
	// error and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// CreateClient inserts a new client (id is provided by the app via ULID).
	// Returns ErrAlreadyExists if the name is taken.
	CreateClient(ctx context.Context, c domain.Client) error

	// GetClientByID returns a client with its throttle-rate override joined
	// in from client_settings.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// GetClientByName looks a client up by its unique name.
	GetClientByName(ctx context.Context, name string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// UpdateClientTTL sets the default token TTL and bumps updated_at.
	UpdateClientTTL(ctx context.Context, clientID string, ttl time.Duration) error

	// SetThrottleRate upserts the client_settings row. A nil rate clears the
	// override so the scope default applies again.
	SetThrottleRate(ctx context.Context, clientID string, rate *string) error

	// DeleteClient cascades to client_settings, user_clients and auth_tokens.
	DeleteClient(ctx context.Context, clientID string) error
}

type Links interface {
	// CreateLink inserts a user<->client link. Returns ErrAlreadyExists if
	// the (user, client) pair already has one.
	CreateLink(ctx context.Context, l domain.UserClient) error

	GetLinkByID(ctx context.Context, id string) (domain.UserClient, error)

	// GetLinkByUserClient fetches the unique link for a (user, client) pair.
	GetLinkByUserClient(ctx context.Context, userID, clientID string) (domain.UserClient, error)

	// ListLinksByUser returns every link a principal holds.
	ListLinksByUser(ctx context.Context, userID string) ([]domain.UserClient, error)

	// DeleteLink cascades to the link's auth token.
	DeleteLink(ctx context.Context, id string) error

	// DeleteLinksByUser removes every link for a principal (cascades tokens).
	DeleteLinksByUser(ctx context.Context, userID string) error
}

type Tokens interface {
	// CreateToken inserts a token row. Returns ErrDuplicateToken on a token
	// string collision and ErrAlreadyExists when the link already owns a
	// token.
	CreateToken(ctx context.Context, t domain.AuthToken) error

	// GetTokenByString looks up by exact token string (unique index).
	GetTokenByString(ctx context.Context, token string) (domain.AuthToken, error)

	// GetTokenByLink returns the single token owned by a link, if any.
	GetTokenByLink(ctx context.Context, linkID string) (domain.AuthToken, error)

	// UpdateTokenExpiry sets expires_at; the only mutation a token sees.
	UpdateTokenExpiry(ctx context.Context, tokenID string, expiresAt time.Time) error

	// DeleteToken removes a token row. Returns ErrNotFound if absent.
	DeleteToken(ctx context.Context, tokenID string) error

	// PurgeExpiredTokens deletes tokens whose expiry is before the given
	// cutoff and reports how many were removed. Housekeeping only; normal
	// expiry never deletes rows.
	PurgeExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}
