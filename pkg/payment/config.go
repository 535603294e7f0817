package payment

import (
	"errors"
	"strings"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

const (
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"
)

// Config selects and configures the processor.
type Config struct {
	Provider string `env:"PAYMENT_PROVIDER" envDefault:"stripe"`
	Stripe   StripeConfig
	Paddle   PaddleConfig
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

func (c StripeConfig) Enabled() bool { return c.SecretKey != "" }

type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	// CheckoutURL is the approved page hosting Paddle.js checkout.
	CheckoutURL string `env:"PADDLE_CHECKOUT_URL"`
}

func (c PaddleConfig) Enabled() bool { return c.APIKey != "" }

// NewFromConfig builds the configured processor. A provider without
// credentials yields Unconfigured rather than an error, so the service still
// starts and checkout fails closed.
func NewFromConfig(cfg Config) (Processor, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderStripe, "":
		if !cfg.Stripe.Enabled() {
			return Unconfigured{}, nil
		}
		return NewStripe(cfg.Stripe)
	case ProviderPaddle:
		if !cfg.Paddle.Enabled() {
			return Unconfigured{}, nil
		}
		return NewPaddle(cfg.Paddle)
	default:
		return nil, errors.Join(apperr.ErrConfiguration, ErrUnknownProvider)
	}
}
