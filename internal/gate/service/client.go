package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrClientNameTaken  = errors.New("client name already taken")
	ErrClientNameEmpty  = errors.New("client name is required")
	ErrClientInvalidTTL = errors.New("client token TTL must be positive")
)

// ClientService manages client identities and their settings. Throttle-rate
// overrides are validated here, at write time, so request-time enforcement
// never sees a malformed rate.
type ClientService struct {
	Store store.Store
}

// CreateClient registers a new client with the given default token TTL.
func (s *ClientService) CreateClient(ctx context.Context, name string, tokenTTL time.Duration) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Client{}, ErrClientNameEmpty
	}
	if tokenTTL <= 0 {
		return domain.Client{}, ErrClientInvalidTTL
	}

	client := domain.Client{
		ID:       idx.New().String(),
		Name:     name,
		TokenTTL: tokenTTL,
	}

	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Client{}, ErrClientNameTaken
		}
		l.Error("failed to create client", "error", err)
		return domain.Client{}, err
	}

	l.Info("client created", "client_id", client.ID, "name", name, "token_ttl", tokenTTL)
	return client, nil
}

// GetClient fetches a client by ID, including any throttle-rate override.
func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, err
	}
	return client, nil
}

// GetClientByName fetches a client by its unique name.
func (s *ClientService) GetClientByName(ctx context.Context, name string) (domain.Client, error) {
	client, err := s.Store.Clients().GetClientByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, err
	}
	return client, nil
}

// ListClients returns all registered clients.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

// UpdateTokenTTL changes a client's default token TTL. Already-issued
// tokens keep their expiry; the new TTL applies from the next issue or
// renewal.
func (s *ClientService) UpdateTokenTTL(ctx context.Context, clientID string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrClientInvalidTTL
	}

	if err := s.Store.Clients().UpdateClientTTL(ctx, clientID, ttl); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	return nil
}

// SetThrottleRate sets or clears (rate == nil) a client's throttle-rate
// override. Malformed rates are rejected before anything is persisted.
func (s *ClientService) SetThrottleRate(ctx context.Context, clientID string, rate *string) error {
	l := slogx.FromContext(ctx)

	if rate != nil {
		if _, _, err := ParseRate(*rate); err != nil {
			return err
		}
	}

	if err := s.Store.Clients().SetThrottleRate(ctx, clientID, rate); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}

	if rate != nil {
		l.Info("client throttle rate set", "client_id", clientID, "rate", *rate)
	} else {
		l.Info("client throttle rate cleared", "client_id", clientID)
	}
	return nil
}

// DeleteClient removes a client. Settings, links and tokens issued under it
// go with it.
func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Clients().DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		l.Error("failed to delete client", "error", err, "client_id", clientID)
		return err
	}

	l.Info("client deleted", "client_id", clientID)
	return nil
}
