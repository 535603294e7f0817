package purchase

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meterkit/pkg/catalog"
	"github.com/dmitrymomot/meterkit/pkg/identity"
)

// Record is one paid checkout session. A zero Identity is an anonymous
// purchase.
type Record struct {
	ID              uuid.UUID         `json:"id"`
	SessionID       string            `json:"sessionId"`
	Identity        identity.Identity `json:"-"`
	ProductID       string            `json:"productId,omitempty"`
	AmountPaid      catalog.Money     `json:"amountPaid"`
	PaymentIntentID string            `json:"paymentIntentId,omitempty"`
	RecordedAt      time.Time         `json:"recordedAt"`
}

func (r Record) Anonymous() bool { return r.Identity.IsZero() }
