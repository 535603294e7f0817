package usage

import "time"

// Unlimited is the quota value that disables the ceiling.
const Unlimited = -1

// Record is the persisted counter for one identity key.
type Record struct {
	Key            string
	Count          int
	LastActivityAt time.Time
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextReset is the instant the counter seen at now reads as zero again.
func NextReset(now time.Time) time.Time {
	return Day(now).AddDate(0, 0, 1)
}

// EffectiveCount is the count that applies at now. A record whose last
// activity falls on an earlier UTC day counts as zero. A clock that runs
// backwards never resets the counter.
func (r Record) EffectiveCount(now time.Time) int {
	if r.LastActivityAt.IsZero() || Day(now).After(Day(r.LastActivityAt)) {
		return 0
	}
	return r.Count
}

// apply is the reference check-and-increment every Store reproduces.
func (r Record) apply(quota int, now time.Time) (Record, bool) {
	effective := r.EffectiveCount(now)
	if quota >= 0 && effective >= quota {
		r.Count = effective
		return r, false
	}
	last := r.LastActivityAt
	if now.After(last) {
		last = now
	}
	return Record{Key: r.Key, Count: effective + 1, LastActivityAt: last.UTC()}, true
}
