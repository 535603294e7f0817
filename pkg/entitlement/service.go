package entitlement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// Service answers what an identity is entitled to.
type Service interface {
	// Plan returns the stored record, or FreePlan when there is none.
	Plan(ctx context.Context, id identity.Identity) (PlanRecord, error)
	// Entitlements never fails: a missing record or a store error yields free.
	Entitlements(ctx context.Context, id identity.Identity) (Set, PlanRecord)
}

type service struct {
	store Store
	log   *slog.Logger
}

type ServiceOption func(*service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService panics on a nil store.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("entitlement: Store is required")
	}
	s := &service{store: store, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Plan(ctx context.Context, id identity.Identity) (PlanRecord, error) {
	// Guests never hold a paid plan.
	if !id.IsUser() {
		return FreePlan(id), nil
	}
	r, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrPlanNotFound) {
		return FreePlan(id), nil
	}
	if err != nil {
		if apperr.KindOf(err) == nil {
			err = errors.Join(apperr.ErrUpstreamUnavailable, err)
		}
		return PlanRecord{}, err
	}
	return r, nil
}

func (s *service) Entitlements(ctx context.Context, id identity.Identity) (Set, PlanRecord) {
	r, err := s.Plan(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "plan lookup failed, evaluating as free", logger.Identity(id), logger.Error(err))
		r = FreePlan(id)
	}
	return For(r), r
}
