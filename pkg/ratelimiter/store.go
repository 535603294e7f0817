package ratelimiter

import (
	"context"
	"time"
)

// Store persists bucket state. ConsumeTokens refills the bucket as of now,
// subtracts tokens and returns what is left; a negative remainder means deny.
// Consuming zero tokens reports state without changing it.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config, now time.Time) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}
