package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestLinkServiceEnsureLink(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	client := seedClient(t, st, "web-app", time.Hour)
	svc := &LinkService{Store: st}

	t.Run("creates the link on first contact", func(t *testing.T) {
		link, err := svc.EnsureLink(ctx, "alice", client.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", link.UserID)
		require.Equal(t, client.ID, link.ClientID)
	})

	t.Run("is idempotent for the same pair", func(t *testing.T) {
		first, err := svc.EnsureLink(ctx, "alice", client.ID)
		require.NoError(t, err)

		second, err := svc.EnsureLink(ctx, "alice", client.ID)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := svc.EnsureLink(ctx, "alice", idx.New().String())
		require.ErrorIs(t, err, ErrClientNotFound)
	})
}

func TestLinkServiceListAndDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	webApp := seedClient(t, st, "web-app", time.Hour)
	mobileApp := seedClient(t, st, "mobile-app", time.Hour)

	links := &LinkService{Store: st}
	tokens := &TokenService{Store: st}

	webLink, err := links.EnsureLink(ctx, "alice", webApp.ID)
	require.NoError(t, err)
	_, err = links.EnsureLink(ctx, "alice", mobileApp.ID)
	require.NoError(t, err)

	got, err := links.ListLinks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	t.Run("deleting a link takes its token with it", func(t *testing.T) {
		token, err := tokens.Issue(ctx, webLink.ID, nil)
		require.NoError(t, err)

		require.NoError(t, links.DeleteLink(ctx, webLink.ID))

		_, err = tokens.Authenticate(ctx, token.Token)
		require.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("deleting an unknown link", func(t *testing.T) {
		require.ErrorIs(t, links.DeleteLink(ctx, webLink.ID), ErrLinkNotFound)
	})

	t.Run("deleting all links for a user", func(t *testing.T) {
		require.NoError(t, links.DeleteLinksForUser(ctx, "alice"))

		got, err := links.ListLinks(ctx, "alice")
		require.NoError(t, err)
		require.Empty(t, got)
	})
}
