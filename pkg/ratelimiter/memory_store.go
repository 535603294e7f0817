package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore keeps buckets in process memory. Buckets idle for longer than
// an hour are dropped by a background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucketState

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

type MemoryStoreOption func(*MemoryStore)

// WithSweepInterval sets how often idle buckets are removed. Zero disables it.
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) { ms.sweepInterval = d }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:       make(map[string]*bucketState),
		sweepInterval: 5 * time.Minute,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.sweepInterval > 0 {
		go ms.sweepLoop()
	}
	return ms
}

func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, cfg Config, now time.Time) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	b, ok := ms.buckets[key]
	if !ok {
		b = &bucketState{tokens: cfg.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}
	b.tokens, b.lastRefill = refill(b.tokens, b.lastRefill, now, cfg)
	b.lastAccess = now

	// A denied request does not drain the bucket further.
	remaining := b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}
	return remaining, b.lastRefill.Add(cfg.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.buckets, key)
	ms.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stop) })
}

func (ms *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(ms.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			ms.sweep(now, time.Hour)
		case <-ms.stop:
			return
		}
	}
}

func (ms *MemoryStore) sweep(now time.Time, idle time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > idle {
			delete(ms.buckets, key)
		}
	}
}
