package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// DefaultDisplayRemaining is shown by Peek when the store cannot be read.
const DefaultDisplayRemaining = 10

// FailurePolicy decides what Enforce does when the store is unreachable.
type FailurePolicy int

const (
	// FailClosed denies the action and returns the store error.
	FailClosed FailurePolicy = iota
	// FailOpen allows the action without recording it.
	FailOpen
)

// Decision is the outcome of one consumption attempt.
type Decision struct {
	Allowed bool
	// Remaining is how many more consumptions today would be allowed, or
	// Unlimited.
	Remaining int
	Count     int
	Quota     int
	ResetAt   time.Time
	// Unrecorded is set when Enforce failed open.
	Unrecorded bool
}

// Err returns a PaymentRequired error for denied decisions and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return errors.Join(apperr.ErrPaymentRequired, ErrQuotaExceeded)
}

// Snapshot is a read-only view for display.
type Snapshot struct {
	Count     int
	Remaining int
	Quota     int
	ResetAt   time.Time
	// Approximate is set when the store failed and Remaining is a default.
	Approximate bool
}

// Counter applies quotas to identities on top of a Store.
type Counter struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
	// displayDefault is what Peek reports on store failure.
	displayDefault int
}

type Option func(*Counter)

func WithClock(now func() time.Time) Option {
	return func(c *Counter) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Counter) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDisplayDefault overrides DefaultDisplayRemaining.
func WithDisplayDefault(n int) Option {
	return func(c *Counter) { c.displayDefault = n }
}

func NewCounter(store Store, opts ...Option) *Counter {
	c := &Counter{
		store:          store,
		now:            time.Now,
		log:            slog.New(slog.DiscardHandler),
		displayDefault: DefaultDisplayRemaining,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAndConsume records one unit of usage for id if its effective count is
// below quota. Denials write nothing and are reported through Decision, not
// as an error.
func (c *Counter) CheckAndConsume(ctx context.Context, id identity.Identity, quota int) (Decision, error) {
	if id.IsZero() {
		return Decision{}, errors.Join(apperr.ErrValidation, ErrMissingIdentity)
	}
	now := c.now()

	rec, allowed, err := c.store.Consume(ctx, id.Key(), quota, now)
	if err != nil {
		return Decision{}, upstream(err)
	}

	d := Decision{
		Allowed:   allowed,
		Count:     rec.Count,
		Quota:     quota,
		Remaining: remaining(quota, rec.Count),
		ResetAt:   NextReset(now),
	}
	if !allowed {
		c.log.InfoContext(ctx, "usage quota reached",
			logger.Identity(id),
			logger.Quota(int64(rec.Count), int64(quota)),
		)
	}
	return d, nil
}

// Enforce is CheckAndConsume with an explicit answer for store failures.
func (c *Counter) Enforce(ctx context.Context, id identity.Identity, quota int, policy FailurePolicy) (Decision, error) {
	d, err := c.CheckAndConsume(ctx, id, quota)
	if err == nil || !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		return d, err
	}
	if policy != FailOpen {
		c.log.ErrorContext(ctx, "usage store unavailable, denying", logger.Identity(id), logger.Error(err))
		return Decision{}, err
	}
	c.log.WarnContext(ctx, "usage store unavailable, allowing unrecorded", logger.Identity(id), logger.Error(err))
	return Decision{
		Allowed:    true,
		Quota:      quota,
		Remaining:  remaining(quota, 0),
		ResetAt:    NextReset(c.now()),
		Unrecorded: true,
	}, nil
}

// Peek reports the current standing without consuming. It never fails: a
// store error yields an approximate snapshot with the display default.
func (c *Counter) Peek(ctx context.Context, id identity.Identity, quota int) Snapshot {
	now := c.now()
	snap := Snapshot{Quota: quota, ResetAt: NextReset(now)}

	rec, err := c.store.Get(ctx, id.Key())
	if err != nil {
		c.log.WarnContext(ctx, "usage store unavailable, showing default", logger.Identity(id), logger.Error(err))
		snap.Remaining = c.displayDefault
		if quota >= 0 {
			snap.Remaining = min(c.displayDefault, quota)
		}
		snap.Approximate = true
		return snap
	}

	snap.Count = rec.EffectiveCount(now)
	snap.Remaining = remaining(quota, snap.Count)
	return snap
}

func remaining(quota, count int) int {
	if quota < 0 {
		return Unlimited
	}
	return max(0, quota-count)
}

func upstream(err error) error {
	if apperr.KindOf(err) != nil {
		return err
	}
	return errors.Join(apperr.ErrUpstreamUnavailable, err)
}
