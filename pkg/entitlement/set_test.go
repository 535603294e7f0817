package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
)

func TestForPlan(t *testing.T) {
	t.Parallel()

	t.Run("free", func(t *testing.T) {
		t.Parallel()
		s := entitlement.ForPlan(entitlement.PlanFree)
		assert.Equal(t, 1, s.MaxVariants)
		assert.Equal(t, 512, s.ResolutionPx)
		assert.True(t, s.Watermarked)
		assert.False(t, s.TransparentBackground)
		assert.False(t, s.PremiumStylesAllowed)
		assert.Equal(t, 10, s.DailyMessageQuota)
		assert.False(t, s.Allows(entitlement.FeatureVoice))
	})

	t.Run("pro", func(t *testing.T) {
		t.Parallel()
		s := entitlement.ForPlan(entitlement.PlanPro)
		assert.Equal(t, 4, s.MaxVariants)
		assert.Equal(t, 1024, s.ResolutionPx)
		assert.False(t, s.Watermarked)
		assert.True(t, s.TransparentBackground)
		assert.True(t, s.PremiumStylesAllowed)
		assert.Equal(t, entitlement.Unlimited, s.DailyMessageQuota)
		assert.True(t, s.Allows(entitlement.FeatureVoice))
		assert.True(t, s.Allows(entitlement.FeatureHDExport))
	})

	t.Run("unknown plan is free", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, entitlement.ForPlan(entitlement.PlanFree), entitlement.ForPlan("enterprise"))
		assert.Equal(t, entitlement.ForPlan(entitlement.PlanFree), entitlement.ForPlan(""))
	})

	t.Run("returned features are a copy", func(t *testing.T) {
		t.Parallel()
		s := entitlement.ForPlan(entitlement.PlanPro)
		s.Features[0] = "tampered"
		assert.True(t, entitlement.ForPlan(entitlement.PlanPro).Allows(entitlement.FeatureVoice))
	})
}

func TestForInconsistentRecordIsFree(t *testing.T) {
	t.Parallel()

	r := entitlement.PlanRecord{Identity: identity.User("u1"), PlanType: entitlement.PlanPro, IsPro: false}
	assert.Equal(t, entitlement.PlanFree, entitlement.For(r).Plan)
}

func TestTiers(t *testing.T) {
	t.Parallel()

	tiers := entitlement.Tiers()
	if assert.Len(t, tiers, 2) {
		assert.Equal(t, entitlement.PlanFree, tiers[0].Plan)
		assert.Equal(t, entitlement.PlanPro, tiers[1].Plan)
	}
}

// For is total: every record yields one of the two tiers, and only a
// consistent pro record yields pro.
func TestForTotalityProperty(t *testing.T) {
	t.Parallel()

	free := entitlement.ForPlan(entitlement.PlanFree)
	pro := entitlement.ForPlan(entitlement.PlanPro)

	rapid.Check(t, func(t *rapid.T) {
		plan := rapid.OneOf(
			rapid.Just("free"),
			rapid.Just("pro"),
			rapid.String(),
		).Draw(t, "plan")
		r := entitlement.PlanRecord{
			Identity: identity.User(rapid.StringMatching(`[a-z0-9]{1,12}`).Draw(t, "id")),
			PlanType: entitlement.PlanType(plan),
			IsPro:    rapid.Bool().Draw(t, "isPro"),
		}

		got := entitlement.For(r)
		if r.PlanType == entitlement.PlanPro && r.IsPro {
			assert.Equal(t, pro, got)
			return
		}
		assert.Equal(t, free, got)
	})
}
