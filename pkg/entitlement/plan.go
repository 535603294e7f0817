package entitlement

import (
	"errors"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
)

type PlanType string

const (
	PlanFree PlanType = "free"
	PlanPro  PlanType = "pro"
)

func (p PlanType) Valid() bool { return p == PlanFree || p == PlanPro }

// PlanRecord is the persisted subscription state of one identity.
type PlanRecord struct {
	Identity         identity.Identity
	PlanType         PlanType
	IsPro            bool
	StripeCustomerID string
	UpgradedAt       *time.Time
	UpdatedAt        time.Time
}

// FreePlan is the implicit record of an identity that never paid.
func FreePlan(id identity.Identity) PlanRecord {
	return PlanRecord{Identity: id, PlanType: PlanFree}
}

func (r PlanRecord) Validate() error {
	if r.Identity.IsZero() {
		return errors.Join(apperr.ErrValidation, ErrMissingIdentity)
	}
	if !r.PlanType.Valid() {
		return errors.Join(apperr.ErrValidation, ErrUnknownPlanType)
	}
	if r.IsPro != (r.PlanType == PlanPro) {
		return errors.Join(apperr.ErrValidation, ErrInconsistentPlan)
	}
	return nil
}

// Upgraded returns r moved to pro. An existing upgrade time is preserved; a
// non-empty customerID replaces the stored one.
func (r PlanRecord) Upgraded(now time.Time, customerID string) PlanRecord {
	r.PlanType, r.IsPro = PlanPro, true
	if r.UpgradedAt == nil {
		t := now.UTC()
		r.UpgradedAt = &t
	}
	if customerID != "" {
		r.StripeCustomerID = customerID
	}
	r.UpdatedAt = now.UTC()
	return r
}

// Downgraded returns r moved to free. The customer id is kept so the billing
// portal stays reachable.
func (r PlanRecord) Downgraded(now time.Time) PlanRecord {
	r.PlanType, r.IsPro = PlanFree, false
	r.UpgradedAt = nil
	r.UpdatedAt = now.UTC()
	return r
}
