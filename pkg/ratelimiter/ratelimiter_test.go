package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newBucket(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *clock) {
	t.Helper()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithSweepInterval(0))
	t.Cleanup(store.Close)
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b, err := ratelimiter.NewBucket(store, cfg, ratelimiter.WithClock(c.Now))
	require.NoError(t, err)
	return b, c
}

func TestBucket(t *testing.T) {
	t.Parallel()
	cfg := ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: 10 * time.Second}

	t.Run("drains then denies", func(t *testing.T) {
		t.Parallel()
		b, _ := newBucket(t, cfg)
		ctx := context.Background()

		for want := 2; want >= 0; want-- {
			res, err := b.Allow(ctx, "k")
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, want, res.Remaining)
		}
		res, err := b.Allow(ctx, "k")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, 10*time.Second, res.RetryAfter())
	})

	t.Run("refills over time", func(t *testing.T) {
		t.Parallel()
		b, c := newBucket(t, cfg)
		ctx := context.Background()

		_, err := b.AllowN(ctx, "k", 3)
		require.NoError(t, err)
		c.Advance(25 * time.Second)

		res, err := b.Status(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)

		c.Advance(time.Hour)
		res, err = b.Status(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		b, _ := newBucket(t, cfg)
		ctx := context.Background()

		_, err := b.AllowN(ctx, "a", 3)
		require.NoError(t, err)
		res, err := b.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		b, _ := newBucket(t, cfg)
		ctx := context.Background()

		_, err := b.AllowN(ctx, "k", 3)
		require.NoError(t, err)
		require.NoError(t, b.Reset(ctx, "k"))
		res, err := b.Status(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Remaining)
	})

	t.Run("invalid token count", func(t *testing.T) {
		t.Parallel()
		b, _ := newBucket(t, cfg)
		_, err := b.AllowN(context.Background(), "k", 0)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	})
}

func TestNewBucketValidation(t *testing.T) {
	t.Parallel()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithSweepInterval(0))
	defer store.Close()

	for _, cfg := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.NewBucket(store, cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	t.Parallel()
	b, _ := newBucket(t, ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Hour})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(context.Background(), "k")
			if err == nil && res.Allowed() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	b, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})

	key := func(r *http.Request) string { return r.Header.Get("X-Key") }
	h := ratelimiter.Middleware(b, key, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(k string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if k != "" {
			req.Header.Set("X-Key", k)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("u1").Code)

	rec := do("u1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, do("u2").Code)
	assert.Equal(t, http.StatusNoContent, do("").Code)
	assert.Equal(t, http.StatusNoContent, do("").Code)
}
