package logging

import (
	"context"

	"github.com/google/uuid"
)

type correlationKey struct{}

// WithCorrelationID returns a copy of ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by the request middleware, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return emptyString
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewCorrelationID returns a random version 4 UUID.
func NewCorrelationID() string {
	return uuid.NewString()
}
