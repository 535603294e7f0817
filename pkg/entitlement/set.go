package entitlement

import "slices"

// Unlimited disables a numeric ceiling.
const Unlimited = -1

type Feature string

const (
	FeatureVoice                 Feature = "voice"
	FeatureHDExport              Feature = "hd_export"
	FeaturePremiumStyles         Feature = "premium_styles"
	FeatureTransparentBackground Feature = "transparent_background"
)

// Set is the capability set granted by a plan.
type Set struct {
	Plan                  PlanType  `json:"plan"`
	MaxVariants           int       `json:"maxVariants"`
	ResolutionPx          int       `json:"resolutionPx"`
	Watermarked           bool      `json:"watermarked"`
	TransparentBackground bool      `json:"transparentBackground"`
	PremiumStylesAllowed  bool      `json:"premiumStylesAllowed"`
	DailyMessageQuota     int       `json:"dailyMessageQuota"`
	Features              []Feature `json:"features"`
}

func (s Set) Allows(f Feature) bool { return slices.Contains(s.Features, f) }

// FreeDailyMessages is the free tier's daily message quota.
const FreeDailyMessages = 10

var tiers = map[PlanType]Set{
	PlanFree: {
		Plan:              PlanFree,
		MaxVariants:       1,
		ResolutionPx:      512,
		Watermarked:       true,
		DailyMessageQuota: FreeDailyMessages,
		Features:          []Feature{},
	},
	PlanPro: {
		Plan:                  PlanPro,
		MaxVariants:           4,
		ResolutionPx:          1024,
		TransparentBackground: true,
		PremiumStylesAllowed:  true,
		DailyMessageQuota:     Unlimited,
		Features: []Feature{
			FeatureVoice,
			FeatureHDExport,
			FeaturePremiumStyles,
			FeatureTransparentBackground,
		},
	},
}

// ForPlan returns the tier for p, or the free tier for anything unknown.
func ForPlan(p PlanType) Set {
	s, ok := tiers[p]
	if !ok {
		s = tiers[PlanFree]
	}
	s.Features = slices.Clone(s.Features)
	return s
}

// For evaluates a plan record. A record that fails validation is free.
func For(r PlanRecord) Set {
	if r.PlanType == PlanPro && !r.IsPro {
		return ForPlan(PlanFree)
	}
	return ForPlan(r.PlanType)
}

// Tiers lists every tier, free first.
func Tiers() []Set {
	return []Set{ForPlan(PlanFree), ForPlan(PlanPro)}
}
