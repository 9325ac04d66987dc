package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestClientServiceCreate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := &ClientService{Store: st}

	t.Run("creates a client", func(t *testing.T) {
		client, err := svc.CreateClient(ctx, "web-app", time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, client.ID)
		require.Equal(t, "web-app", client.Name)
		require.Equal(t, time.Hour, client.TokenTTL)
	})

	t.Run("names are unique", func(t *testing.T) {
		_, err := svc.CreateClient(ctx, "web-app", time.Hour)
		require.ErrorIs(t, err, ErrClientNameTaken)
	})

	t.Run("name is trimmed", func(t *testing.T) {
		client, err := svc.CreateClient(ctx, "  mobile-app  ", time.Hour)
		require.NoError(t, err)
		require.Equal(t, "mobile-app", client.Name)
	})

	t.Run("rejects empty names and non-positive TTLs", func(t *testing.T) {
		_, err := svc.CreateClient(ctx, "   ", time.Hour)
		require.ErrorIs(t, err, ErrClientNameEmpty)

		_, err = svc.CreateClient(ctx, "cli", 0)
		require.ErrorIs(t, err, ErrClientInvalidTTL)
	})
}

func TestClientServiceThrottleRate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := &ClientService{Store: st}

	client, err := svc.CreateClient(ctx, "web-app", time.Hour)
	require.NoError(t, err)

	t.Run("malformed rates never persist", func(t *testing.T) {
		bad := "10/min"
		err := svc.SetThrottleRate(ctx, client.ID, &bad)
		require.ErrorIs(t, err, ErrInvalidRateFormat)

		got, err := svc.GetClient(ctx, client.ID)
		require.NoError(t, err)
		require.Nil(t, got.ThrottleRate)
	})

	t.Run("a valid rate persists", func(t *testing.T) {
		rate := "100/h"
		require.NoError(t, svc.SetThrottleRate(ctx, client.ID, &rate))

		got, err := svc.GetClient(ctx, client.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ThrottleRate)
		require.Equal(t, "100/h", *got.ThrottleRate)
	})

	t.Run("setting again replaces the override", func(t *testing.T) {
		rate := "5/m"
		require.NoError(t, svc.SetThrottleRate(ctx, client.ID, &rate))

		got, err := svc.GetClient(ctx, client.ID)
		require.NoError(t, err)
		require.Equal(t, "5/m", *got.ThrottleRate)
	})

	t.Run("nil clears the override", func(t *testing.T) {
		require.NoError(t, svc.SetThrottleRate(ctx, client.ID, nil))

		got, err := svc.GetClient(ctx, client.ID)
		require.NoError(t, err)
		require.Nil(t, got.ThrottleRate)
	})

	t.Run("unknown client", func(t *testing.T) {
		rate := "100/h"
		err := svc.SetThrottleRate(ctx, idx.New().String(), &rate)
		require.ErrorIs(t, err, ErrClientNotFound)
	})
}

func TestClientServiceUpdateTokenTTL(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	svc := &ClientService{Store: st}

	client, err := svc.CreateClient(ctx, "web-app", time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTokenTTL(ctx, client.ID, 48*time.Hour))

	got, err := svc.GetClient(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, 48*time.Hour, got.TokenTTL)

	require.ErrorIs(t, svc.UpdateTokenTTL(ctx, client.ID, 0), ErrClientInvalidTTL)
	require.ErrorIs(t, svc.UpdateTokenTTL(ctx, idx.New().String(), time.Hour), ErrClientNotFound)
}

func TestClientServiceDeleteCascades(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	clients := &ClientService{Store: st}
	tokens := &TokenService{Store: st}

	client, err := clients.CreateClient(ctx, "web-app", time.Hour)
	require.NoError(t, err)

	rate := "10/m"
	require.NoError(t, clients.SetThrottleRate(ctx, client.ID, &rate))

	link := seedLink(t, st, "alice", client.ID)
	token, err := tokens.Issue(ctx, link.ID, nil)
	require.NoError(t, err)

	require.NoError(t, clients.DeleteClient(ctx, client.ID))

	_, err = clients.GetClient(ctx, client.ID)
	require.ErrorIs(t, err, ErrClientNotFound)

	_, err = st.Links().GetLinkByID(ctx, link.ID)
	require.Error(t, err)

	_, err = tokens.Authenticate(ctx, token.Token)
	require.ErrorIs(t, err, ErrTokenNotFound)
}
