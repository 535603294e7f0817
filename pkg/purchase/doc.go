// Package purchase confirms completed checkout sessions and records them in
// a ledger.
//
// The ledger holds at most one Record per checkout session id. Every Ledger
// implements insert-or-return-existing on a unique session id, so a refreshed
// confirmation page or a retried verification returns the original record
// instead of writing a second one.
//
// Once the processor reports a session as paid, the buyer always receives the
// product's access reference. A failed ledger write is logged and does not
// block delivery.
package purchase
