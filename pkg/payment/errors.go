package payment

import "errors"

var (
	ErrNotConfigured              = errors.New("payment: processor is not configured")
	ErrUnknownProvider            = errors.New("payment: unknown provider")
	ErrMissingAPIKey              = errors.New("payment: provider API key is required")
	ErrMissingWebhookSecret       = errors.New("payment: provider webhook secret is required")
	ErrInvalidProviderEnvironment = errors.New("payment: invalid provider environment")
	ErrWebhookVerificationFailed  = errors.New("payment: webhook signature verification failed")
	ErrMalformedEvent             = errors.New("payment: malformed webhook payload")
	ErrNoCheckoutURL              = errors.New("payment: no checkout URL returned from provider")
	ErrNoPortalURL                = errors.New("payment: no portal URL returned from provider")
	ErrMissingCustomerID          = errors.New("payment: provider customer ID is required")
	ErrMissingPriceID             = errors.New("payment: provider price ID is required")
	ErrInvalidLineItem            = errors.New("payment: invalid line item")
	ErrSessionNotFound            = errors.New("payment: checkout session not found")
	ErrRequestRejected            = errors.New("payment: request rejected by provider")
	ErrProviderError              = errors.New("payment: provider error")
)
