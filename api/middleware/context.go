package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/evacurves/store-backend/pkg/enums"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) IsAdmin() bool { return a.Role == enums.RoleAdmin }

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext reports false for anonymous requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.UserID != uuid.Nil
}

// actorScope keys per-caller state such as idempotency records.
func actorScope(ctx context.Context) string {
	if a, ok := ActorFromContext(ctx); ok {
		return a.UserID.String()
	}
	return "anonymous"
}
