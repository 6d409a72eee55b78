// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// ActorContext identifies who performs the current operation.
// Populated by the calling layer; the core only attributes movements
// and documents to it, never authenticates.
type ActorContext struct {
	UserID   string
	Username string
	StoreID  string
}

type actorContextKey struct{}

// WithActor adds ActorContext to context.
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns ActorContext from context.
func GetActor(ctx context.Context) *ActorContext {
	if v, ok := ctx.Value(actorContextKey{}).(*ActorContext); ok {
		return v
	}
	return nil
}

// GetActorID returns the acting user ID from context or empty string.
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.UserID
	}
	return ""
}
