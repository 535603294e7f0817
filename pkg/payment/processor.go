package payment

import (
	"context"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/catalog"
)

// SessionIDPlaceholder is substituted by the processor with the real session
// id when it redirects to a success or cancel URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Metadata keys attached to every checkout session and echoed back on
// completion.
const (
	MetadataIdentity    = "identity"
	MetadataKind        = "kind"
	MetadataReferenceID = "reference_id"
	MetadataProductID   = "product_id"
)

// Processor is a hosted-checkout payment provider.
type Processor interface {
	// Name identifies the provider, e.g. "stripe".
	Name() string
	// SignatureHeader is the request header carrying the webhook signature.
	SignatureHeader() string

	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*SessionStatus, error)
	CreatePortalSession(ctx context.Context, req PortalRequest) (*Portal, error)

	// ParseEvent verifies the signature and normalizes the payload.
	ParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error)
}

type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// LineItem is either a provider price (PriceID) or an inline price built
// from Name and Amount. Interval marks an inline recurring price.
type LineItem struct {
	PriceID  string
	Name     string
	Amount   catalog.Money
	Interval string
}

func (li LineItem) Inline() bool { return li.PriceID == "" }

type SessionRequest struct {
	Mode              Mode
	Item              LineItem
	Metadata          map[string]string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	CustomerID        string
	Email             string
}

// Session is an opaque handle to a hosted checkout.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"redirectUrl"`
}

type PaymentStatus string

const (
	StatusPaid              PaymentStatus = "paid"
	StatusUnpaid            PaymentStatus = "unpaid"
	StatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// SessionStatus is the processor's view of a checkout session.
type SessionStatus struct {
	ID              string
	Mode            Mode
	PaymentStatus   PaymentStatus
	AmountTotal     catalog.Money
	PaymentIntentID string
	Metadata        map[string]string
	CustomerID      string
	Email           string
}

func (s SessionStatus) Paid() bool { return s.PaymentStatus == StatusPaid }

type PortalRequest struct {
	CustomerID string
	ReturnURL  string
}

type Portal struct {
	URL string `json:"url"`
}

// EventType is a provider-independent webhook event type.
type EventType string

const (
	EventCheckoutCompleted     EventType = "checkout_completed"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventChargeRefunded        EventType = "charge_refunded"
	EventPaymentFailed         EventType = "payment_failed"
	// EventUnhandled marks a verified event nothing reacts to.
	EventUnhandled EventType = "unhandled"
)

// Event is a verified, normalized webhook event.
type Event struct {
	ID            string
	Provider      string
	Type          EventType
	ProviderEvent string
	CustomerID    string
	SessionID     string
	// Identity and Kind are the raw checkout metadata values, when present.
	Identity   string
	Kind       string
	OccurredAt time.Time
}
