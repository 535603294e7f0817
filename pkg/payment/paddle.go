package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
)

// Paddle implements Processor with Paddle Billing. A checkout session is a
// Paddle transaction; its id is the session id.
type Paddle struct {
	client      *paddle.SDK
	verifier    *paddle.WebhookVerifier
	checkoutURL string
}

func NewPaddle(config PaddleConfig) (*Paddle, error) {
	if config.APIKey == "" {
		return nil, errors.Join(apperr.ErrConfiguration, ErrMissingAPIKey)
	}
	if config.WebhookSecret == "" {
		return nil, errors.Join(apperr.ErrConfiguration, ErrMissingWebhookSecret)
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, errors.Join(apperr.ErrConfiguration, ErrInvalidProviderEnvironment)
	}
	if err != nil {
		return nil, errors.Join(apperr.ErrConfiguration, fmt.Errorf("failed to create paddle client: %w", err))
	}

	return &Paddle{
		client:      client,
		verifier:    paddle.NewWebhookVerifier(config.WebhookSecret),
		checkoutURL: config.CheckoutURL,
	}, nil
}

func (p *Paddle) Name() string            { return ProviderPaddle }
func (p *Paddle) SignatureHeader() string { return "Paddle-Signature" }

// CreateCheckoutSession creates a transaction for a catalog price. Paddle
// line items must reference a price defined in Paddle.
func (p *Paddle) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.Item.PriceID == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrMissingPriceID)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.Item.PriceID,
		Quantity: 1,
	})

	customData := paddle.CustomData{}
	for k, v := range req.Metadata {
		customData[k] = v
	}
	if req.Email != "" {
		customData["email"] = req.Email
	}

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if req.CustomerID != "" {
		transactionReq.CustomerID = paddle.PtrTo(req.CustomerID)
	}
	if p.checkoutURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(p.checkoutURL)}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, classifyPaddleError(err, "create transaction")
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, errors.Join(apperr.ErrUpstreamUnavailable, ErrNoCheckoutURL)
	}
	return &Session{ID: transaction.ID, URL: *transaction.Checkout.URL}, nil
}

func (p *Paddle) RetrieveSession(ctx context.Context, id string) (*SessionStatus, error) {
	if id == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrSessionNotFound)
	}
	tx, err := p.client.TransactionsClient.GetTransaction(ctx, &paddle.GetTransactionRequest{TransactionID: id})
	if err != nil {
		return nil, classifyPaddleError(err, "get transaction")
	}

	st := &SessionStatus{
		ID:            tx.ID,
		Mode:          ModePayment,
		PaymentStatus: paddlePaymentStatus(string(tx.Status)),
		Metadata:      stringMap(tx.CustomData),
	}
	if tx.SubscriptionID != nil {
		st.Mode = ModeSubscription
	}
	if tx.CustomerID != nil {
		st.CustomerID = *tx.CustomerID
	}
	st.Email = st.Metadata["email"]
	if amount, err := strconv.ParseInt(tx.Details.Totals.GrandTotal, 10, 64); err == nil {
		st.AmountTotal = catalog.Money{Amount: amount, Currency: string(tx.CurrencyCode)}
	}
	return st, nil
}

func (p *Paddle) CreatePortalSession(ctx context.Context, req PortalRequest) (*Portal, error) {
	if req.CustomerID == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrMissingCustomerID)
	}

	portalSession, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return nil, classifyPaddleError(err, "create customer portal session")
	}
	if portalSession.URLs.General.Overview == "" {
		return nil, errors.Join(apperr.ErrUpstreamUnavailable, ErrNoPortalURL)
	}
	return &Portal{URL: portalSession.URLs.General.Overview}, nil
}

func (p *Paddle) ParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent, err)
	}
	req.Header.Set(p.SignatureHeader(), signature)

	valid, err := p.verifier.Verify(req)
	if err != nil || !valid {
		return nil, errors.Join(apperr.ErrValidation, ErrWebhookVerificationFailed, err)
	}
	return parsePaddleEvent(payload)
}

func parsePaddleEvent(payload []byte) (*Event, error) {
	var paddleEvent struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt time.Time      `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent, err)
	}
	if paddleEvent.EventID == "" {
		return nil, errors.Join(apperr.ErrValidation, ErrMalformedEvent)
	}

	data := paddleEvent.Data
	custom, _ := data["custom_data"].(map[string]any)
	event := &Event{
		ID:            paddleEvent.EventID,
		Provider:      ProviderPaddle,
		Type:          EventUnhandled,
		ProviderEvent: paddleEvent.EventType,
		CustomerID:    str(data["customer_id"]),
		Identity:      str(custom[MetadataIdentity]),
		Kind:          str(custom[MetadataKind]),
		OccurredAt:    paddleEvent.OccurredAt.UTC(),
	}

	switch paddleEvent.EventType {
	case "transaction.completed", "transaction.paid":
		event.Type = EventCheckoutCompleted
		event.SessionID = str(data["id"])
	case "subscription.canceled":
		event.Type = EventSubscriptionCancelled
	case "transaction.payment_failed":
		event.Type = EventPaymentFailed
		event.SessionID = str(data["id"])
	case "adjustment.created", "adjustment.updated":
		if str(data["action"]) == "refund" && str(data["status"]) == "approved" {
			event.Type = EventChargeRefunded
			event.SessionID = str(data["transaction_id"])
		}
	}
	return event, nil
}

func paddlePaymentStatus(status string) PaymentStatus {
	switch strings.ToLower(status) {
	case "completed", "paid":
		return StatusPaid
	default:
		return StatusUnpaid
	}
}

func classifyPaddleError(err error, op string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(apperr.ErrUpstreamUnavailable, ErrProviderError, fmt.Errorf("paddle %s: %w", op, err))
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func stringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
