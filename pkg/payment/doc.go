// Package payment abstracts the hosted-checkout payment processor.
//
// A Processor creates checkout and billing-portal sessions, reports the
// payment status of a session and turns signed webhook payloads into
// normalized Events. Stripe and Paddle are supported. When neither has
// credentials NewFromConfig returns Unconfigured, whose every call fails with
// apperr.ErrConfiguration, so callers never nil-check a processor.
//
// Processor errors never carry raw SDK errors across the package boundary
// without a kind: timeouts and 5xx responses are apperr.ErrUpstreamUnavailable,
// unknown sessions apperr.ErrNotFound, rejected requests and bad signatures
// apperr.ErrValidation.
package payment
