package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
)

// StripeSessionAPI is the subset of the checkout session client in use.
type StripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripePortalAPI is the subset of the billing portal client in use.
type StripePortalAPI interface {
	New(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// Stripe implements Processor with the Stripe API.
type Stripe struct {
	sessions      StripeSessionAPI
	portal        StripePortalAPI
	webhookSecret string
}

type StripeOption func(*Stripe)

// WithStripeAPI replaces the API clients, for tests.
func WithStripeAPI(sessions StripeSessionAPI, portal StripePortalAPI) StripeOption {
	return func(s *Stripe) {
		s.sessions = sessions
		s.portal = portal
	}
}

func NewStripe(cfg StripeConfig, opts ...StripeOption) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, errors.Join(apperr.ErrConfiguration, ErrMissingAPIKey)
	}
	s := &Stripe{webhookSecret: cfg.WebhookSecret}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil || s.portal == nil {
		sc := client.New(cfg.SecretKey, nil)
		s.sessions = sc.CheckoutSessions
		s.portal = sc.BillingPortalSessions
	}
	return s, nil
}

func (s *Stripe) Name() string            { return ProviderStripe }
func (s *Stripe) SignatureHeader() string { return "Stripe-Signature" }

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	item, err := stripeLineItem(req)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripeMode(req.Mode))),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{item},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	params.Context = ctx
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	switch {
	case req.CustomerID != "":
		params.Customer = stripe.String(req.CustomerID)
	case req.Email != "":
		params.CustomerEmail = stripe.String(req.Email)
	}
	// Metadata on the session is not copied to the objects later webhooks
	// describe, so it is repeated on the subscription or payment intent.
	if req.Mode == ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: req.Metadata}
	} else {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: req.Metadata}
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, classifyStripeError(err, "create checkout session")
	}
	if cs.URL == "" {
		return nil, errors.Join(apperr.ErrUpstreamUnavailable, ErrNoCheckoutURL)
	}
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *Stripe) RetrieveSession(ctx context.Context, id string) (*SessionStatus, error) {
	if id == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrSessionNotFound)
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.sessions.Get(id, params)
	if err != nil {
		return nil, classifyStripeError(err, "retrieve checkout session")
	}

	st := &SessionStatus{
		ID:            cs.ID,
		Mode:          Mode(cs.Mode),
		PaymentStatus: PaymentStatus(cs.PaymentStatus),
		AmountTotal:   catalog.Money{Amount: cs.AmountTotal, Currency: strings.ToUpper(string(cs.Currency))},
		Metadata:      cs.Metadata,
		Email:         cs.CustomerEmail,
	}
	if cs.PaymentIntent != nil {
		st.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.Customer != nil {
		st.CustomerID = cs.Customer.ID
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		st.Email = cs.CustomerDetails.Email
	}
	return st, nil
}

func (s *Stripe) CreatePortalSession(ctx context.Context, req PortalRequest) (*Portal, error) {
	if req.CustomerID == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrMissingCustomerID)
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(req.CustomerID),
		ReturnURL: stripe.String(req.ReturnURL),
	}
	params.Context = ctx
	ps, err := s.portal.New(params)
	if err != nil {
		return nil, classifyStripeError(err, "create portal session")
	}
	if ps.URL == "" {
		return nil, errors.Join(apperr.ErrUpstreamUnavailable, ErrNoPortalURL)
	}
	return &Portal{URL: ps.URL}, nil
}

func (s *Stripe) ParseEvent(_ context.Context, payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, errors.Join(apperr.ErrConfiguration, ErrMissingWebhookSecret)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(apperr.ErrValidation, ErrWebhookVerificationFailed, err)
	}
	if evt.Data == nil {
		return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent)
	}

	event := &Event{
		ID:            evt.ID,
		Provider:      ProviderStripe,
		Type:          EventUnhandled,
		ProviderEvent: string(evt.Type),
		OccurredAt:    time.Unix(evt.Created, 0).UTC(),
	}

	switch string(evt.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent, err)
		}
		// A completed session with a delayed payment method is not paid yet;
		// async_payment_succeeded follows.
		if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return event, nil
		}
		event.Type = EventCheckoutCompleted
		event.SessionID = cs.ID
		event.Identity = cs.Metadata[MetadataIdentity]
		event.Kind = cs.Metadata[MetadataKind]
		if cs.Customer != nil {
			event.CustomerID = cs.Customer.ID
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent, err)
		}
		event.Type = EventSubscriptionCancelled
		event.Identity = sub.Metadata[MetadataIdentity]
		event.Kind = sub.Metadata[MetadataKind]
		if sub.Customer != nil {
			event.CustomerID = sub.Customer.ID
		}

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(evt.Data.Raw, &ch); err != nil {
			return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent, err)
		}
		event.Type = EventChargeRefunded
		event.Identity = ch.Metadata[MetadataIdentity]
		event.Kind = ch.Metadata[MetadataKind]
		if ch.Customer != nil {
			event.CustomerID = ch.Customer.ID
		}

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent, err)
		}
		event.Type = EventPaymentFailed
		if inv.Customer != nil {
			event.CustomerID = inv.Customer.ID
		}
	}
	return event, nil
}

func stripeMode(m Mode) stripe.CheckoutSessionMode {
	if m == ModeSubscription {
		return stripe.CheckoutSessionModeSubscription
	}
	return stripe.CheckoutSessionModePayment
}

func stripeLineItem(req SessionRequest) (*stripe.CheckoutSessionLineItemParams, error) {
	li := req.Item
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if !li.Inline() {
		item.Price = stripe.String(li.PriceID)
		return item, nil
	}
	if li.Name == "" || li.Amount.Amount <= 0 {
		return nil, errors.Join(apperr.ErrValidation, ErrInvalidLineItem)
	}
	if req.Mode == ModeSubscription && li.Interval == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrInvalidLineItem)
	}

	item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:    stripe.String(strings.ToLower(li.Amount.Code())),
		UnitAmount:  stripe.Int64(li.Amount.Amount),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(li.Name)},
	}
	if req.Mode == ModeSubscription {
		item.PriceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(li.Interval),
		}
	}
	return item, nil
}

func classifyStripeError(err error, op string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	wrapped := fmt.Errorf("stripe %s: %w", op, err)

	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == http.StatusNotFound:
			return errors.Join(apperr.ErrNotFound, ErrSessionNotFound, wrapped)
		case se.HTTPStatusCode == http.StatusUnauthorized || se.HTTPStatusCode == http.StatusForbidden:
			return errors.Join(apperr.ErrConfiguration, ErrProviderError, wrapped)
		case se.HTTPStatusCode == http.StatusBadRequest || se.HTTPStatusCode == http.StatusPaymentRequired:
			return errors.Join(apperr.ErrValidation, ErrRequestRejected, wrapped)
		}
	}
	return errors.Join(apperr.ErrUpstreamUnavailable, ErrProviderError, wrapped)
}
