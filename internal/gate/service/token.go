package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// maxTokenAttempts bounds regeneration retries when a freshly generated
// token string collides with a stored one. With 64 hex characters a single
// collision is already implausible; hitting the bound means the entropy
// source is broken.
const maxTokenAttempts = 5

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrLinkNotFound  = errors.New("link not found")

	// ErrLinkHasToken reports an issue attempt against a link that already
	// owns a token. The relation is 1:1; callers must revoke first.
	ErrLinkHasToken = errors.New("link already has a token")
)

// RenewListener receives a notification after each successful renewal.
// Listener failures are the listener's problem; the renewal has already
// been committed by the time it runs.
type RenewListener func(ctx context.Context, ev domain.TokenRenewed)

// TokenService owns the AuthToken lifecycle: issuance, lookup, renewal and
// revocation. Expiry is always computed from wall-clock time at the point of
// use, never stored as state.
type TokenService struct {
	Store store.Store

	// TokenLength is the hex character length of issued token strings.
	// Zero means cryptox.DefaultTokenLength.
	TokenLength int

	mu        sync.RWMutex
	listeners []RenewListener
}

// Session is a fully resolved authentication context: the token plus the
// link and client it belongs to.
type Session struct {
	Token  domain.AuthToken
	Link   domain.UserClient
	Client domain.Client
}

// OnRenewal registers a listener invoked synchronously, exactly once, per
// successful Renew call.
func (s *TokenService) OnRenewal(fn RenewListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Issue creates a new token for the given link. Expiry is now plus the
// link's client TTL, unless ttlOverride is provided. Fails with
// ErrLinkHasToken when the link already owns a token, and retries token
// generation on the (vanishingly unlikely) string collision.
func (s *TokenService) Issue(ctx context.Context, linkID string, ttlOverride *time.Duration) (domain.AuthToken, error) {
	l := slogx.FromContext(ctx)

	length := s.TokenLength
	if length == 0 {
		length = cryptox.DefaultTokenLength
	}

	var issued domain.AuthToken
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		link, err := tx.Links().GetLinkByID(ctx, linkID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrLinkNotFound
			}
			return err
		}

		client, err := tx.Clients().GetClientByID(ctx, link.ClientID)
		if err != nil {
			return err
		}

		ttl := client.TokenTTL
		if ttlOverride != nil {
			ttl = *ttlOverride
		}

		now := time.Now().UTC()
		for attempt := 1; ; attempt++ {
			tokenString, err := cryptox.GenerateToken(length)
			if err != nil {
				return fmt.Errorf("token generation failed: %w", err)
			}

			token := domain.AuthToken{
				ID:        idx.New().String(),
				Token:     tokenString,
				LinkID:    link.ID,
				CreatedAt: now,
				ExpiresAt: now.Add(ttl),
			}

			err = tx.Tokens().CreateToken(ctx, token)
			switch {
			case err == nil:
				issued = token
				return nil
			case errors.Is(err, store.ErrAlreadyExists):
				return ErrLinkHasToken
			case errors.Is(err, store.ErrDuplicateToken):
				if attempt >= maxTokenAttempts {
					return fmt.Errorf("token collision persisted after %d attempts: %w", attempt, err)
				}
				l.Warn("token string collision, regenerating", "attempt", attempt)
			default:
				return err
			}
		}
	})
	if err != nil {
		return domain.AuthToken{}, err
	}

	l.Info("token issued", "link_id", linkID, "expires_at", issued.ExpiresAt)
	return issued, nil
}

// IssueOrReuse issues a token for the link, handling the case where one
// already exists: a live token is returned as-is (reused), an expired one is
// revoked and replaced. This is the login behaviour; callers that need a
// strict conflict should use Issue directly.
func (s *TokenService) IssueOrReuse(ctx context.Context, linkID string, ttlOverride *time.Duration) (token domain.AuthToken, reused bool, err error) {
	token, err = s.Issue(ctx, linkID, ttlOverride)
	if err == nil {
		return token, false, nil
	}
	if !errors.Is(err, ErrLinkHasToken) {
		return domain.AuthToken{}, false, err
	}

	existing, err := s.Store.Tokens().GetTokenByLink(ctx, linkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Revoked between our attempt and the lookup; try once more.
			token, err = s.Issue(ctx, linkID, ttlOverride)
			return token, false, err
		}
		return domain.AuthToken{}, false, err
	}

	if !existing.HasExpired(time.Now().UTC()) {
		return existing, true, nil
	}

	if err := s.Store.Tokens().DeleteToken(ctx, existing.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.AuthToken{}, false, err
	}

	token, err = s.Issue(ctx, linkID, ttlOverride)
	return token, false, err
}

// Authenticate looks a token up by its exact string. It deliberately does
// not reject expired tokens; callers inspect HasExpired so expiry handling
// stays a pure wall-clock predicate.
func (s *TokenService) Authenticate(ctx context.Context, tokenString string) (domain.AuthToken, error) {
	token, err := s.Store.Tokens().GetTokenByString(ctx, tokenString)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthToken{}, ErrTokenNotFound
		}
		return domain.AuthToken{}, err
	}
	return token, nil
}

// ResolveSession authenticates a bearer token for request handling: it
// rejects unknown tokens with ErrTokenNotFound, expired ones with
// ErrTokenExpired, and otherwise returns the token with its link and client
// resolved. The client lookup happens here, per request, so throttle-rate
// changes apply to in-flight traffic without any cache invalidation story.
func (s *TokenService) ResolveSession(ctx context.Context, tokenString string) (Session, error) {
	token, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return Session{}, err
	}

	if token.HasExpired(time.Now().UTC()) {
		return Session{}, ErrTokenExpired
	}

	link, err := s.Store.Links().GetLinkByID(ctx, token.LinkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrLinkNotFound
		}
		return Session{}, err
	}

	client, err := s.Store.Clients().GetClientByID(ctx, link.ClientID)
	if err != nil {
		return Session{}, err
	}

	return Session{Token: token, Link: link, Client: client}, nil
}

// Renew extends a token's expiry to now plus its client's TTL and emits a
// TokenRenewed event to every registered listener. This is the only code
// path that mutates expiry. Last writer wins under concurrent renewals, but
// each successful call emits exactly one event.
func (s *TokenService) Renew(ctx context.Context, tokenString, actor string) (time.Time, error) {
	l := slogx.FromContext(ctx)

	var (
		renewed   domain.AuthToken
		newExpiry time.Time
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		token, err := tx.Tokens().GetTokenByString(ctx, tokenString)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		link, err := tx.Links().GetLinkByID(ctx, token.LinkID)
		if err != nil {
			return err
		}

		client, err := tx.Clients().GetClientByID(ctx, link.ClientID)
		if err != nil {
			return err
		}

		newExpiry = time.Now().UTC().Add(client.TokenTTL)
		if err := tx.Tokens().UpdateTokenExpiry(ctx, token.ID, newExpiry); err != nil {
			return err
		}

		token.ExpiresAt = newExpiry
		renewed = token
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	// Emit only after the renewal is committed, once per successful call.
	s.emitRenewed(ctx, domain.TokenRenewed{
		Token:     renewed,
		NewExpiry: newExpiry,
		Actor:     actor,
	})

	l.Info("token renewed", "link_id", renewed.LinkID, "new_expiry", newExpiry, "actor", actor)
	return newExpiry, nil
}

// Revoke deletes the token, freeing its link for a fresh Issue. Unknown
// tokens report ErrTokenNotFound, but a concurrent double-revoke where the
// row disappears mid-call is treated as success.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	l := slogx.FromContext(ctx)

	token, err := s.Store.Tokens().GetTokenByString(ctx, tokenString)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}

	if err := s.Store.Tokens().DeleteToken(ctx, token.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // someone else revoked it first; same outcome
		}
		return err
	}

	l.Info("token revoked", "link_id", token.LinkID)
	return nil
}

func (s *TokenService) emitRenewed(ctx context.Context, ev domain.TokenRenewed) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, ev)
	}
}
