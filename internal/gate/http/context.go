package http

import (
	"context"

	"github.com/aussiebroadwan/gatekeep/internal/gate/service"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

func contextWithSession(ctx context.Context, s service.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// sessionFromContext returns the authenticated session placed by the authn
// middleware. The second return is false on unauthenticated requests.
func sessionFromContext(ctx context.Context) (service.Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(service.Session)
	return s, ok
}
