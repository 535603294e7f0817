package checkout

import "errors"

var (
	ErrUnknownKind        = errors.New("checkout: unknown product kind")
	ErrMissingProductID   = errors.New("checkout: product id is required")
	ErrProductNotFound    = errors.New("checkout: product not found")
	ErrProductInactive    = errors.New("checkout: product is not for sale")
	ErrBelowMinimumAmount = errors.New("checkout: amount is below the minimum")
	ErrNoBillingAccount   = errors.New("checkout: no billing account for identity")
	ErrCheckoutFailed     = errors.New("checkout: failed to create checkout session")
	ErrPortalFailed       = errors.New("checkout: failed to create billing portal session")
)
