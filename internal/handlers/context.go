package handlers

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const actorContextKey contextKey = "actor"

// SetActorInContext stores the authenticated caller's account id.
func SetActorInContext(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorContextKey, actorID)
}

// GetActorFromContext returns the caller id, or uuid.Nil when the request is
// anonymous.
func GetActorFromContext(ctx context.Context) uuid.UUID {
	actorID, ok := ctx.Value(actorContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return actorID
}
