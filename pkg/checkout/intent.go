package checkout

import (
	"errors"
	"strings"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
)

type Kind string

const (
	KindOneTimeProduct    Kind = "one_time_product"
	KindSubscription      Kind = "subscription"
	KindVoiceSubscription Kind = "voice_subscription"
	KindTip               Kind = "tip"
)

// Recurring reports whether the kind creates a subscription.
func (k Kind) Recurring() bool {
	return k == KindSubscription || k == KindVoiceSubscription
}

// Intent is one of OneTimeProduct, Subscription, VoiceSubscription or Tip.
type Intent interface {
	Kind() Kind
	intent()
}

type OneTimeProduct struct {
	ProductID string
}

type Subscription struct{}

type VoiceSubscription struct{}

type Tip struct {
	Amount catalog.Money
}

func (OneTimeProduct) Kind() Kind    { return KindOneTimeProduct }
func (Subscription) Kind() Kind      { return KindSubscription }
func (VoiceSubscription) Kind() Kind { return KindVoiceSubscription }
func (Tip) Kind() Kind               { return KindTip }

func (OneTimeProduct) intent()    {}
func (Subscription) intent()      {}
func (VoiceSubscription) intent() {}
func (Tip) intent()               {}

// Params are the kind-specific fields of a checkout request.
type Params struct {
	ProductID string `json:"productId,omitempty"`
	// Amount is in minor units.
	Amount   int64  `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// ParseIntent converts a wire request into an Intent. Only shape is checked
// here; prices and floors are checked by Factory.Create.
func ParseIntent(kind string, p Params) (Intent, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindOneTimeProduct:
		id := strings.TrimSpace(p.ProductID)
		if id == "" {
			return nil, errors.Join(apperr.ErrValidation, ErrMissingProductID)
		}
		return OneTimeProduct{ProductID: id}, nil
	case KindSubscription:
		return Subscription{}, nil
	case KindVoiceSubscription:
		return VoiceSubscription{}, nil
	case KindTip:
		m := catalog.Money{Amount: p.Amount, Currency: p.Currency}
		if m.Currency == "" {
			m.Currency = catalog.DefaultCurrency
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return Tip{Amount: m}, nil
	default:
		return nil, errors.Join(apperr.ErrValidation, ErrUnknownKind)
	}
}
