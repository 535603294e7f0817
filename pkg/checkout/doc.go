// Package checkout builds payment processor checkout sessions.
//
// A checkout is described by an Intent, a closed set of variants: a catalog
// product, the pro subscription, the voice add-on subscription or a tip.
// ParseIntent turns a wire request into a variant; Factory.Create validates
// it and asks the processor for a hosted session. Every session carries the
// buyer's identity and the intent kind as metadata, so completion handlers
// can act without a second lookup.
//
// Checkout creation is a single user action and is never retried here.
package checkout
