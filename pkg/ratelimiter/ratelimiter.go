package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Bucket applies one Config to many keys.
type Bucket struct {
	store  Store
	config Config
	now    func() time.Time
}

type BucketOption func(*Bucket)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BucketOption {
	return func(b *Bucket) { b.now = now }
}

func NewBucket(store Store, config Config, opts ...BucketOption) (*Bucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	b := &Bucket{store: store, config: config, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	return b.consume(ctx, key, n)
}

// Status reports the bucket without consuming.
func (b *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return b.consume(ctx, key, 0)
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) consume(ctx context.Context, key string, n int) (*Result, error) {
	now := b.now()
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config, now)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &Result{Limit: b.config.Capacity, Remaining: remaining, ResetAt: resetAt, now: now}, nil
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// refill returns the token count after the intervals elapsed since last.
func refill(tokens int, last, now time.Time, cfg Config) (int, time.Time) {
	elapsed := now.Sub(last)
	if elapsed < cfg.RefillInterval {
		return tokens, last
	}
	capIntervals := int64(cfg.Capacity/cfg.RefillRate + 1)
	intervals := min(int64(elapsed/cfg.RefillInterval), capIntervals)
	return min(tokens+int(intervals)*cfg.RefillRate, cfg.Capacity), now
}
