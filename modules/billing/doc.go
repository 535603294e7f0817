// Package billing mounts the HTTP surface of the usage and entitlement
// ledger.
//
//	GET  /usage              remaining messages today, never fails
//	POST /usage/consume      consume one message, denied with 402 at quota
//	GET  /entitlements       entitlement set and plan of the caller
//	POST /checkout           hosted checkout session for an intent
//	POST /checkout/verify    verify and record a one-time purchase
//	POST /portal             billing portal link for a paying user
//	POST /plan/reconcile     manual pro upgrade of the caller, rate limited
//	POST /webhooks/payment   processor webhook, signature verified
//
// Every route except the webhook resolves the caller through
// identity.Middleware. Errors are rendered by handler.JSONError.
package billing
