package entitlement

import "errors"

var (
	ErrPlanNotFound     = errors.New("entitlement: plan record not found")
	ErrInconsistentPlan = errors.New("entitlement: isPro disagrees with plan type")
	ErrUnknownPlanType  = errors.New("entitlement: unknown plan type")
	ErrMissingIdentity  = errors.New("entitlement: plan record has no identity")
)
