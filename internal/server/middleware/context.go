package middleware

import (
	"context"

	"github.com/publicworks-io/regie/internal/domain"
)

type contextKey string

// ContextKeyActor holds the authenticated domain.ActorRef.
const ContextKeyActor contextKey = "actor"

func ActorFromContext(ctx context.Context) (domain.ActorRef, bool) {
	v, ok := ctx.Value(ContextKeyActor).(domain.ActorRef)
	return v, ok
}
