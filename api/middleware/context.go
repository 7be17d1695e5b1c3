package middleware

import (
	"context"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
	ctxUsername contextKey = "username"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the session id (token jti) of the current request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the caller handed to domain services. Anonymous requests
// yield a zero Actor, which the access gate rejects.
func ActorFromContext(ctx context.Context) access.Actor {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return access.Actor{}
	}
	return access.Actor{UserID: id, Role: enums.Role(RoleFromContext(ctx))}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithActor injects a full actor into the context. Used by tests and internal callers.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	ctx = WithUserID(ctx, actor.UserID.String())
	return context.WithValue(ctx, ctxRole, string(actor.Role))
}
