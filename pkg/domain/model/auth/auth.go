package auth

import (
	"context"

	"github.com/secmon-lab/socialink/pkg/domain/model"
)

type ctxSessionKey struct{}

// ContextWithSession attaches a verified session to ctx
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey{}, session)
}

// FromContext returns the session attached by the session middleware, or nil
func FromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(ctxSessionKey{}).(*model.Session)
	return session
}
