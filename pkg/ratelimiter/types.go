package ratelimiter

import "time"

// Result is the outcome of one consume call.
type Result struct {
	Limit     int
	Remaining int // negative when the request was denied
	ResetAt   time.Time
	now       time.Time
}

func (r *Result) Allowed() bool { return r.Remaining >= 0 }

// RetryAfter is zero for allowed requests.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(r.now), 0)
}

// Config describes one bucket shape.
type Config struct {
	Capacity       int           `env:"CAPACITY" envDefault:"5"`
	RefillRate     int           `env:"REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"10s"`
}
