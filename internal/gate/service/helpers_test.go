package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "gatekeep_test.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedClient(t *testing.T, st store.Store, name string, ttl time.Duration) domain.Client {
	t.Helper()

	client := domain.Client{
		ID:       idx.New().String(),
		Name:     name,
		TokenTTL: ttl,
	}
	require.NoError(t, st.Clients().CreateClient(context.Background(), client))
	return client
}

func seedLink(t *testing.T, st store.Store, userID, clientID string) domain.UserClient {
	t.Helper()

	link := domain.UserClient{
		ID:       idx.New().String(),
		UserID:   userID,
		ClientID: clientID,
	}
	require.NoError(t, st.Links().CreateLink(context.Background(), link))
	return link
}
