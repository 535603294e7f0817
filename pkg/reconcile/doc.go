// Package reconcile keeps plan records in step with payment events.
//
// HandleEvent is the primary path: verified processor webhooks upgrade a user
// to pro on a completed subscription checkout and downgrade on cancellation or
// refund. Each event id is claimed in an EventStore before it is applied, so a
// retried delivery is acknowledged without being applied twice. Events older
// than the record's last update are ignored, except that a late subscription
// checkout still records its customer id when the plan has none.
//
// Reconcile is the manual fallback for a lost webhook. A user may only
// reconcile their own plan; the call is idempotent and always access-logged.
// It performs no payment verification and must sit behind a rate limiter.
package reconcile
