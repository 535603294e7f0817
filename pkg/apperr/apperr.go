package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for propagation across component boundaries.
type Kind struct {
	key    string
	status int
	public string
}

func (k *Kind) Error() string { return k.key }

// Key returns the machine-readable kind name, e.g. "not_found".
func (k *Kind) Key() string { return k.key }

var (
	// ErrConfiguration means a required credential or collaborator is missing.
	// Always fatal to the request.
	ErrConfiguration = &Kind{key: "configuration_error", status: http.StatusInternalServerError, public: "service is not configured"}

	// ErrValidation means the input was missing or malformed. Never retried server-side.
	ErrValidation = &Kind{key: "validation_error", status: http.StatusBadRequest, public: "invalid request"}

	ErrNotFound     = &Kind{key: "not_found", status: http.StatusNotFound, public: "resource not found"}
	ErrUnauthorized = &Kind{key: "unauthorized", status: http.StatusUnauthorized, public: "unauthorized"}

	// ErrPaymentRequired means the caller's plan or quota does not permit the action.
	ErrPaymentRequired = &Kind{key: "payment_required", status: http.StatusPaymentRequired, public: "upgrade required"}

	// ErrUpstreamUnavailable means the store or payment processor could not be
	// reached. Safe to retry.
	ErrUpstreamUnavailable = &Kind{key: "upstream_unavailable", status: http.StatusServiceUnavailable, public: "service temporarily unavailable, please retry"}

	// ErrConflict marks a uniqueness violation. Ledgers resolve it by reading
	// the existing row back, so it should not reach an HTTP caller.
	ErrConflict = &Kind{key: "conflict", status: http.StatusConflict, public: "conflict"}
)

var kinds = []*Kind{
	ErrConfiguration,
	ErrValidation,
	ErrNotFound,
	ErrUnauthorized,
	ErrPaymentRequired,
	ErrUpstreamUnavailable,
	ErrConflict,
}

// KindOf returns the first kind joined into err, or nil when err carries none.
func KindOf(err error) *Kind {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// HTTPStatus maps err to a status code. Errors without a kind are 500.
func HTTPStatus(err error) int {
	if k := KindOf(err); k != nil {
		return k.status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns a stable, generic message safe for unauthenticated callers.
func PublicMessage(err error) string {
	if k := KindOf(err); k != nil {
		return k.public
	}
	return "internal error"
}

// Code returns the kind key for err, or "internal_error".
func Code(err error) string {
	if k := KindOf(err); k != nil {
		return k.key
	}
	return "internal_error"
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
