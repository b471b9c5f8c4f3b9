// internal/api/handler/context.go
package handler

import (
	"context"

	"cardvault/internal/domain"
)

type contextKey string

const actorContextKey contextKey = "actor"

// WithActor stores the authenticated Actor in the context. Called by the
// auth middleware.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext returns the authenticated Actor stored by the auth
// middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(domain.Actor)
	return actor, ok
}
