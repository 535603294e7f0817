package usage

import "errors"

var (
	ErrQuotaExceeded   = errors.New("usage: daily quota exceeded")
	ErrMissingIdentity = errors.New("usage: identity is required")
	ErrStoreFailure    = errors.New("usage: store unavailable")
)
