package entitlement

import (
	"context"

	"github.com/dmitrymomot/meterkit/pkg/identity"
)

// Store persists plan records keyed by identity.
type Store interface {
	// Get returns ErrPlanNotFound (joined with apperr.ErrNotFound) when the
	// identity has no record.
	Get(ctx context.Context, id identity.Identity) (PlanRecord, error)
	// Upsert creates or replaces the record. It validates first.
	Upsert(ctx context.Context, r PlanRecord) error
	// FindByCustomerID locates the record carrying a processor customer id.
	FindByCustomerID(ctx context.Context, customerID string) (PlanRecord, error)
}
