package usage_test

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// The counter never allows more than quota consumptions per UTC day. A clock
// that moves backwards keeps counting against the latest day seen.
func TestCounterDailyCeilingProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		quota := rapid.IntRange(0, 15).Draw(t, "quota")
		clk := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		c := usage.NewCounter(usage.NewMemoryStore(), usage.WithClock(clk.Now))
		id := identity.Guest("prop")

		perDay := map[time.Time]int{}
		latest := clk.Now()
		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		for i := range steps {
			// Steps of up to 30h, sometimes up to 10 minutes backwards.
			delta := time.Duration(rapid.IntRange(-600, 30*3600).Draw(t, "delta")) * time.Second
			clk.Set(clk.Now().Add(delta))
			if clk.Now().After(latest) {
				latest = clk.Now()
			}

			d, err := c.CheckAndConsume(context.Background(), id, quota)
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if d.Allowed {
				perDay[usage.Day(latest)]++
			}
			if d.Remaining < 0 || d.Remaining > quota {
				t.Fatalf("step %d: remaining %d out of [0,%d]", i, d.Remaining, quota)
			}
		}

		for day, n := range perDay {
			if n > quota {
				t.Fatalf("%s: %d consumptions allowed, quota %d", day.Format(time.DateOnly), n, quota)
			}
		}
	})
}
