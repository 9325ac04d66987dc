package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/service"
	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/ratecounter"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store   store.Store
	counter ratecounter.Counter

	TokenService    *service.TokenService
	ClientService   *service.ClientService
	LinkService     *service.LinkService
	ThrottleService *service.ThrottleService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	counter ratecounter.Counter,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		counter:      counter,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerClients()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	tokensHandler := &TokensHandler{
		TokenService:  r.TokenService,
		ClientService: r.ClientService,
		LinkService:   r.LinkService,
	}

	// Issuance has no session yet, so it falls back to the caller's
	// network identity for rate limiting.
	r.Mux.Handle("POST /v1/tokens",
		httpx.Chain(http.HandlerFunc(tokensHandler.HandleIssue),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	authed := []httpx.Middleware{
		AuthnMiddleware(r.TokenService),
		ThrottleMiddleware(r.ThrottleService),
	}

	r.Mux.Handle("POST /v1/tokens/refresh",
		httpx.Chain(http.HandlerFunc(tokensHandler.HandleRefresh), authed...))

	r.Mux.Handle("DELETE /v1/tokens",
		httpx.Chain(http.HandlerFunc(tokensHandler.HandleLogout), authed...))

	r.Mux.Handle("GET /v1/tokens/session",
		httpx.Chain(http.HandlerFunc(tokensHandler.HandleSession), authed...))
}

func (r *Router) registerClients() {
	clientsHandler := &ClientsHandler{ClientService: r.ClientService}

	limited := httpx.RateLimitByIP(httpx.StrictLimit)

	r.Mux.Handle("POST /v1/clients",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleCreate), limited))
	r.Mux.Handle("GET /v1/clients",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleList), limited))
	r.Mux.Handle("GET /v1/clients/{id}",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleGet), limited))
	r.Mux.Handle("DELETE /v1/clients/{id}",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleDelete), limited))
	r.Mux.Handle("PUT /v1/clients/{id}/settings",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleSetThrottleRate), limited))
	r.Mux.Handle("PUT /v1/clients/{id}/ttl",
		httpx.Chain(http.HandlerFunc(clientsHandler.HandleUpdateTTL), limited))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.counter),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
