package usage

import (
	"context"
	"time"
)

// Store persists counters.
type Store interface {
	// Get returns the stored record, or a zero record for key when absent.
	Get(ctx context.Context, key string) (Record, error)

	// Consume atomically increments the counter for key if its effective count
	// at now is below quota. When denied, nothing is written and the returned
	// record carries the effective count.
	Consume(ctx context.Context, key string, quota int, now time.Time) (Record, bool, error)
}
