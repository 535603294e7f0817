package catalog

import (
	"errors"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// PriceRef points a recurring checkout at a processor price. When PriceID is
// empty the line item is built inline from Name, Amount and Interval.
type PriceRef struct {
	PriceID  string `yaml:"price_id"`
	Name     string `yaml:"name"`
	Amount   Money  `yaml:"amount"`
	Interval string `yaml:"interval"`
}

func (r PriceRef) Validate() error {
	if r.PriceID != "" {
		return nil
	}
	if r.Name == "" || r.Amount.Amount <= 0 {
		return errors.Join(apperr.ErrValidation, ErrInvalidTemplate)
	}
	switch r.Interval {
	case "day", "week", "month", "year":
	default:
		return errors.Join(apperr.ErrValidation, ErrInvalidTemplate)
	}
	return r.Amount.Validate()
}

// Templates are the recurring and tip checkout shapes.
type Templates struct {
	Subscription      PriceRef `yaml:"subscription"`
	VoiceSubscription PriceRef `yaml:"voice_subscription"`
	TipName           string   `yaml:"tip_name"`
}

// DefaultTemplates is used when no catalog file configures templates.
func DefaultTemplates() Templates {
	return Templates{
		Subscription:      PriceRef{Name: "Pro", Amount: USD(999), Interval: "month"},
		VoiceSubscription: PriceRef{Name: "Voice", Amount: USD(499), Interval: "month"},
		TipName:           "Tip",
	}
}

func (t Templates) Validate() error {
	if err := t.Subscription.Validate(); err != nil {
		return err
	}
	if err := t.VoiceSubscription.Validate(); err != nil {
		return err
	}
	if t.TipName == "" {
		return errors.Join(apperr.ErrValidation, ErrInvalidTemplate)
	}
	return nil
}
