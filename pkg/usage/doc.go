// Package usage counts per-identity daily consumption against a quota.
//
// Counters reset lazily: a stored count belongs to the UTC calendar day of its
// last activity and reads as zero on any later day. The stored value is only
// rewritten by the next successful consumption, so idle identities cost
// nothing at midnight.
//
// Every Store performs check-and-increment as one atomic step. Two concurrent
// requests at count quota-1 can never both be allowed.
//
//	counter := usage.NewCounter(usage.NewPostgresStore(pool), usage.WithLogger(log))
//	d, err := counter.CheckAndConsume(ctx, id, ent.DailyMessageQuota)
//	if err != nil {
//		return err
//	}
//	if !d.Allowed {
//		return d.Err()
//	}
//
// A negative quota means unlimited: consumption is always allowed and still
// recorded.
package usage
