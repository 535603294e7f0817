package identity

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/meterkit/pkg/logger"
)

type contextKey struct{ name string }

var identityKey = &contextKey{name: "identity"}

// WithContext stores id in ctx.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity resolved for the request, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && !id.IsZero()
}

// LogExtractor adds the resolved identity to log records.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return logger.Identity(id), true
	}
}
