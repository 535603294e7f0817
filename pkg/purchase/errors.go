package purchase

import "errors"

var (
	ErrPaymentIncomplete = errors.New("purchase: payment is not complete")
	ErrProductNotFound   = errors.New("purchase: product not found")
	ErrProductMismatch   = errors.New("purchase: session was not created for this product")
	ErrNotProductSession = errors.New("purchase: session is not a product purchase")
	ErrUnderpaid         = errors.New("purchase: session amount is below the product price")
	ErrMissingSessionID  = errors.New("purchase: session id is required")
	ErrMissingProductID  = errors.New("purchase: product id is required")
	ErrRecordNotFound    = errors.New("purchase: record not found")
	ErrAccessUnavailable = errors.New("purchase: access reference unavailable")
)
