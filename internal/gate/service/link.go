package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// LinkService manages user<->client links. A link comes into existence the
// first time a principal is issued a token under a client, and each (user,
// client) pair holds at most one.
type LinkService struct {
	Store store.Store
}

// EnsureLink returns the link for the (user, client) pair, creating it if
// this is the principal's first time under the client. Safe under
// concurrent calls for the same pair; the loser of the insert race re-reads
// the winner's row.
func (s *LinkService) EnsureLink(ctx context.Context, userID, clientID string) (domain.UserClient, error) {
	l := slogx.FromContext(ctx)

	link, err := s.Store.Links().GetLinkByUserClient(ctx, userID, clientID)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.UserClient{}, err
	}

	link = domain.UserClient{
		ID:       idx.New().String(),
		UserID:   userID,
		ClientID: clientID,
	}

	err = s.Store.Links().CreateLink(ctx, link)
	switch {
	case err == nil:
		l.Info("link created", "link_id", link.ID, "user_id", userID, "client_id", clientID)
		return link, nil
	case errors.Is(err, store.ErrAlreadyExists):
		// Lost the race; the pair now exists.
		return s.Store.Links().GetLinkByUserClient(ctx, userID, clientID)
	case errors.Is(err, store.ErrNotFound):
		return domain.UserClient{}, ErrClientNotFound
	default:
		return domain.UserClient{}, err
	}
}

// ListLinks returns every link a principal holds, one per client.
func (s *LinkService) ListLinks(ctx context.Context, userID string) ([]domain.UserClient, error) {
	return s.Store.Links().ListLinksByUser(ctx, userID)
}

// DeleteLink removes a link and, through the cascade, its token.
func (s *LinkService) DeleteLink(ctx context.Context, linkID string) error {
	if err := s.Store.Links().DeleteLink(ctx, linkID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	return nil
}

// DeleteLinksForUser removes every link a principal holds. Used when the
// principal itself is deleted upstream.
func (s *LinkService) DeleteLinksForUser(ctx context.Context, userID string) error {
	return s.Store.Links().DeleteLinksByUser(ctx, userID)
}
