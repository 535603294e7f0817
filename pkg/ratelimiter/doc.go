// Package ratelimiter is a token bucket limiter with in-memory and Redis
// stores and a chi-compatible middleware.
//
// It guards the endpoints that talk to the payment processor on behalf of a
// caller, such as plan reconciliation, so a misbehaving client cannot turn one
// identity into a burst of upstream API calls.
//
//	b, _ := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: 10 * time.Second,
//	})
//	r.With(ratelimiter.Middleware(b, keyFn)).Post("/plan/reconcile", h)
//
// Requests whose key function returns "" are not limited.
package ratelimiter
