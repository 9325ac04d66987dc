package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatekeep/internal/gate/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// AuthnMiddleware resolves the bearer token into a session (token + link +
// client) and injects it into the request context. Expired tokens are found
// but rejected; the row stays in the database.
func AuthnMiddleware(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			session, err := tokens.ResolveSession(ctx, raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					writeBearerError(w, "token expired")
				case errors.Is(err, service.ErrTokenNotFound), errors.Is(err, service.ErrLinkNotFound):
					writeBearerError(w, "invalid token")
				default:
					log.Error("session resolution failed", "error", err)
					httpx.WriteError(w, http.StatusServiceUnavailable,
						"unavailable", "Authentication backend unavailable")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithSession(ctx, session)))
		})
	}
}

// ThrottleMiddleware counts the request against the caller's user+client
// bucket and rejects it once the effective rate is exhausted. Runs after
// authn so the client's override can be re-resolved on every request.
func ThrottleMiddleware(throttle *service.ThrottleService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			session, ok := sessionFromContext(ctx)
			if !ok {
				// Misconfigured route; authn must run first.
				httpx.WriteError(w, http.StatusInternalServerError,
					"server_error", "Throttle requires an authenticated session")
				return
			}

			ident := service.Ident(session.Link.UserID, &session.Client)
			decision, err := throttle.Check(ctx, ident, &session.Client)
			if err != nil {
				var rateErr *service.RateLimitError
				if errors.As(err, &rateErr) {
					retryAfter := max(int(rateErr.RetryAfter.Seconds()), 1)
					w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
					w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
					httpx.WriteError(w, http.StatusTooManyRequests,
						"rate_limit_exceeded", "Too many requests. Please try again later.")
					return
				}

				log.Error("throttle check failed", "error", err)
				httpx.WriteError(w, http.StatusServiceUnavailable,
					"unavailable", "Throttle backend unavailable")
				return
			}

			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
