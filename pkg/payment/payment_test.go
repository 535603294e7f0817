package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/payment"
)

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("no credentials is unconfigured", func(t *testing.T) {
		t.Parallel()
		p, err := payment.NewFromConfig(payment.Config{Provider: "stripe"})
		require.NoError(t, err)
		assert.IsType(t, payment.Unconfigured{}, p)

		p, err = payment.NewFromConfig(payment.Config{Provider: "paddle"})
		require.NoError(t, err)
		assert.IsType(t, payment.Unconfigured{}, p)
	})

	t.Run("stripe", func(t *testing.T) {
		t.Parallel()
		p, err := payment.NewFromConfig(payment.Config{Stripe: payment.StripeConfig{SecretKey: "sk_test"}})
		require.NoError(t, err)
		assert.Equal(t, "stripe", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, err := payment.NewFromConfig(payment.Config{Provider: "acme"})
		assert.ErrorIs(t, err, apperr.ErrConfiguration)
		assert.ErrorIs(t, err, payment.ErrUnknownProvider)
	})

	t.Run("paddle environment", func(t *testing.T) {
		t.Parallel()
		_, err := payment.NewPaddle(payment.PaddleConfig{APIKey: "k", WebhookSecret: "s", Environment: "staging"})
		assert.ErrorIs(t, err, payment.ErrInvalidProviderEnvironment)

		_, err = payment.NewPaddle(payment.PaddleConfig{APIKey: "k"})
		assert.ErrorIs(t, err, payment.ErrMissingWebhookSecret)
	})
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var p payment.Processor = payment.Unconfigured{}

	_, err := p.CreateCheckoutSession(ctx, payment.SessionRequest{})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	_, err = p.RetrieveSession(ctx, "cs_1")
	assert.ErrorIs(t, err, payment.ErrNotConfigured)
	_, err = p.CreatePortalSession(ctx, payment.PortalRequest{CustomerID: "cus"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	_, err = p.ParseEvent(ctx, nil, "")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestParsePaddleEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    payment.EventType
		session string
	}{
		{
			name:    "transaction completed",
			payload: `{"event_id":"evt_01","event_type":"transaction.completed","occurred_at":"2026-03-01T12:00:00Z","data":{"id":"txn_1","customer_id":"ctm_1","custom_data":{"identity":"user:u1","kind":"subscription"}}}`,
			want:    payment.EventCheckoutCompleted,
			session: "txn_1",
		},
		{
			name:    "subscription canceled",
			payload: `{"event_id":"evt_02","event_type":"subscription.canceled","occurred_at":"2026-03-01T12:00:00Z","data":{"id":"sub_1","customer_id":"ctm_1"}}`,
			want:    payment.EventSubscriptionCancelled,
		},
		{
			name:    "approved refund",
			payload: `{"event_id":"evt_03","event_type":"adjustment.updated","occurred_at":"2026-03-01T12:00:00Z","data":{"action":"refund","status":"approved","transaction_id":"txn_1","customer_id":"ctm_1"}}`,
			want:    payment.EventChargeRefunded,
			session: "txn_1",
		},
		{
			name:    "pending refund",
			payload: `{"event_id":"evt_04","event_type":"adjustment.created","occurred_at":"2026-03-01T12:00:00Z","data":{"action":"refund","status":"pending_approval"}}`,
			want:    payment.EventUnhandled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			evt, err := payment.ParsePaddleEvent([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, evt.Type)
			assert.Equal(t, tt.session, evt.SessionID)
			assert.Equal(t, "paddle", evt.Provider)
			assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), evt.OccurredAt)
		})
	}

	_, err := payment.ParsePaddleEvent([]byte(`{"event_type":"transaction.completed"}`))
	assert.ErrorIs(t, err, payment.ErrMalformedEvent)
}
