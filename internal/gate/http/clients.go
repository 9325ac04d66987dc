package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gate/service"
	"github.com/aussiebroadwan/gatekeep/pkg/gatesdk"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// ClientsHandler handles client registration and settings management.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /v1/clients.
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Client name is required")
		return
	}
	if req.TokenTTLSeconds <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token_ttl_seconds must be positive")
		return
	}

	client, err := h.ClientService.CreateClient(ctx, req.Name,
		time.Duration(req.TokenTTLSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, service.ErrClientNameTaken) {
			httpx.WriteError(w, http.StatusConflict, "conflict", "Client name already taken")
			return
		}
		log.Error("failed to create client", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create client")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, clientInfo(client))
}

// HandleList handles GET /v1/clients.
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clients, err := h.ClientService.ListClients(ctx)
	if err != nil {
		log.Error("failed to list clients", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list clients")
		return
	}

	infos := make([]gatesdk.ClientInfo, len(clients))
	for i, c := range clients {
		infos[i] = clientInfo(c)
	}

	httpx.WriteJSON(w, http.StatusOK, gatesdk.ListClientsResponse{Clients: infos})
}

// HandleGet handles GET /v1/clients/{id}.
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	client, err := h.ClientService.GetClient(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown client")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to fetch client")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleDelete handles DELETE /v1/clients/{id}.
//
// Removes the client along with its settings, links and every token issued
// under it.
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.ClientService.DeleteClient(ctx, r.PathValue("id")); err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown client")
			return
		}
		log.Error("failed to delete client", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to delete client")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSetThrottleRate handles PUT /v1/clients/{id}/settings.
//
// Sets or clears the client's throttle-rate override. Malformed rates are
// rejected here, before persistence, so request-time enforcement never sees
// one.
func (h *ClientsHandler) HandleSetThrottleRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.SetThrottleRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body")
		return
	}

	err := h.ClientService.SetThrottleRate(ctx, r.PathValue("id"), req.ThrottleRate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRateFormat):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
				"throttle_rate must be <count>/<period> with period one of s, m, h, d")
		case errors.Is(err, service.ErrClientNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown client")
		default:
			log.Error("failed to set throttle rate", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update settings")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateTTL handles PUT /v1/clients/{id}/ttl.
func (h *ClientsHandler) HandleUpdateTTL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.UpdateTokenTTLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body")
		return
	}

	err := h.ClientService.UpdateTokenTTL(ctx, r.PathValue("id"),
		time.Duration(req.TokenTTLSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientInvalidTTL):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token_ttl_seconds must be positive")
		case errors.Is(err, service.ErrClientNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown client")
		default:
			log.Error("failed to update client TTL", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update client")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func clientInfo(c domain.Client) gatesdk.ClientInfo {
	return gatesdk.ClientInfo{
		ID:              c.ID,
		Name:            c.Name,
		TokenTTLSeconds: int64(c.TokenTTL.Seconds()),
		ThrottleRate:    c.ThrottleRate,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
}
