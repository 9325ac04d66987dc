package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/service"
	"github.com/aussiebroadwan/gatekeep/pkg/gatesdk"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// TokensHandler handles token issuance and the bearer-authed session
// endpoints (refresh, logout, session info).
type TokensHandler struct {
	TokenService  *service.TokenService
	ClientService *service.ClientService
	LinkService   *service.LinkService
}

// HandleIssue handles POST /v1/tokens.
//
// The principal named in the body is assumed to have been authenticated by
// the upstream caller; this endpoint binds it to the named client and hands
// back the bearer token. A live existing token for the pair is returned
// as-is, an expired one is replaced.
func (h *TokensHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatesdk.IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Client) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id and client are required")
		return
	}

	client, err := h.ClientService.GetClientByName(ctx, req.Client)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Unknown client")
			return
		}
		log.Error("client lookup failed", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Storage backend unavailable")
		return
	}

	link, err := h.LinkService.EnsureLink(ctx, req.UserID, client.ID)
	if err != nil {
		log.Error("failed to ensure link", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Storage backend unavailable")
		return
	}

	var ttlOverride *time.Duration
	if req.TTLSeconds != nil {
		if *req.TTLSeconds <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "ttl_seconds must be positive")
			return
		}
		ttl := time.Duration(*req.TTLSeconds) * time.Second
		ttlOverride = &ttl
	}

	token, reused, err := h.TokenService.IssueOrReuse(ctx, link.ID, ttlOverride)
	if err != nil {
		log.Error("failed to issue token", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to issue token")
		return
	}

	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}

	httpx.WriteJSON(w, status, gatesdk.TokenResponse{
		Token:     token.Token,
		Client:    client.Name,
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
		ExpiresIn: token.ExpiresIn(),
		Reused:    reused,
	})
}

// HandleRefresh handles POST /v1/tokens/refresh.
//
// Renews the presented token, pushing its expiry out by the client's TTL.
// The acting principal is recorded on the renewal notification.
func (h *TokensHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	newExpiry, err := h.TokenService.Renew(ctx, session.Token.Token, session.Link.UserID)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			// Revoked between authn and renewal
			writeBearerError(w, "invalid token")
			return
		}
		log.Error("failed to renew token", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to renew token")
		return
	}

	renewed := session.Token
	renewed.ExpiresAt = newExpiry

	httpx.WriteJSON(w, http.StatusOK, gatesdk.RenewResponse{
		ExpiresAt: newExpiry.Format(time.RFC3339),
		ExpiresIn: renewed.ExpiresIn(),
	})
}

// HandleLogout handles DELETE /v1/tokens.
//
// Revokes the presented token. A token that disappeared mid-request still
// counts as logged out.
func (h *TokensHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	if err := h.TokenService.Revoke(ctx, session.Token.Token); err != nil {
		if !errors.Is(err, service.ErrTokenNotFound) {
			log.Error("failed to revoke token", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to revoke token")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSession handles GET /v1/tokens/session.
func (h *TokensHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gatesdk.SessionResponse{
		UserID:    session.Link.UserID,
		Client:    session.Client.Name,
		CreatedAt: session.Token.CreatedAt.Format(time.RFC3339),
		ExpiresAt: session.Token.ExpiresAt.Format(time.RFC3339),
		ExpiresIn: session.Token.ExpiresIn(),
	})
}
