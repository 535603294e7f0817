package purchase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
	"github.com/dmitrymomot/meterkit/pkg/checkout"
	"github.com/dmitrymomot/meterkit/pkg/email"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/payment"
)

// ReceiptSender is satisfied by *email.Receipts.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, data email.ReceiptData) error
}

// Result is what the buyer receives after verification.
type Result struct {
	Success         bool    `json:"success"`
	AccessReference string  `json:"accessReference,omitempty"`
	Record          *Record `json:"record,omitempty"`
	// Duplicate is set when the session had already been recorded.
	Duplicate bool `json:"duplicate"`
}

type Verifier struct {
	processor payment.Processor
	catalog   catalog.Catalog
	ledger    Ledger
	access    AccessResolver
	receipts  ReceiptSender
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Verifier)

func WithAccessResolver(a AccessResolver) Option {
	return func(v *Verifier) {
		if a != nil {
			v.access = a
		}
	}
}

// WithReceipts sends a receipt the first time a session is recorded.
func WithReceipts(r ReceiptSender) Option {
	return func(v *Verifier) { v.receipts = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier panics on a nil processor, catalog or ledger.
func NewVerifier(processor payment.Processor, cat catalog.Catalog, ledger Ledger, opts ...Option) *Verifier {
	if processor == nil {
		panic("purchase: Processor is required")
	}
	if cat == nil {
		panic("purchase: Catalog is required")
	}
	if ledger == nil {
		panic("purchase: Ledger is required")
	}
	v := &Verifier{
		processor: processor,
		catalog:   cat,
		ledger:    ledger,
		access:    PassthroughAccess{},
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyAndRecord confirms sessionID is paid and records it against
// productID. Only one-time product sessions created for productID and paid
// at least the catalog price are accepted. Calling it again for the same
// session returns the same record and access reference.
func (v *Verifier) VerifyAndRecord(ctx context.Context, sessionID, productID string) (Result, error) {
	sessionID, productID = strings.TrimSpace(sessionID), strings.TrimSpace(productID)
	if sessionID == "" {
		return Result{}, errors.Join(apperr.ErrValidation, ErrMissingSessionID)
	}
	if productID == "" {
		return Result{}, errors.Join(apperr.ErrValidation, ErrMissingProductID)
	}

	st, err := v.processor.RetrieveSession(ctx, sessionID)
	if err != nil {
		v.log.ErrorContext(ctx, "failed to retrieve checkout session",
			logger.SessionID(sessionID),
			logger.Provider(v.processor.Name()),
			logger.Error(err),
		)
		return Result{}, err
	}
	if !st.Paid() {
		return Result{}, errors.Join(apperr.ErrPaymentRequired, ErrPaymentIncomplete)
	}
	if kind := st.Metadata[payment.MetadataKind]; kind != string(checkout.KindOneTimeProduct) {
		v.log.WarnContext(ctx, "session is not a product purchase",
			logger.SessionID(sessionID),
			logger.ProductID(productID),
			slog.String("session_kind", kind),
		)
		return Result{}, errors.Join(apperr.ErrValidation, ErrNotProductSession)
	}
	if pid := st.Metadata[payment.MetadataProductID]; pid != productID {
		v.log.WarnContext(ctx, "session verified against a different product",
			logger.SessionID(sessionID),
			logger.ProductID(productID),
			slog.String("session_product_id", pid),
		)
		return Result{}, errors.Join(apperr.ErrValidation, ErrProductMismatch)
	}

	product, err := v.catalog.Product(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return Result{}, errors.Join(apperr.ErrNotFound, ErrProductNotFound)
	}
	if err != nil {
		v.log.ErrorContext(ctx, "catalog lookup failed", logger.ProductID(productID), logger.Error(err))
		return Result{}, err
	}
	if underpaid(st.AmountTotal, product.Price) {
		v.log.WarnContext(ctx, "session paid less than the product price",
			logger.SessionID(sessionID),
			logger.ProductID(productID),
			slog.String("amount_paid", st.AmountTotal.Format()),
			slog.String("price", product.Price.Format()),
		)
		return Result{}, errors.Join(apperr.ErrValidation, ErrUnderpaid)
	}

	buyer, _ := identity.FromMetadata(st.Metadata[payment.MetadataIdentity])
	rec := Record{
		ID:              uuid.New(),
		SessionID:       st.ID,
		Identity:        buyer,
		ProductID:       product.ID,
		AmountPaid:      st.AmountTotal,
		PaymentIntentID: st.PaymentIntentID,
		RecordedAt:      v.now().UTC(),
	}
	if rec.SessionID == "" {
		rec.SessionID = sessionID
	}

	res := Result{Success: true}
	stored, created, err := v.ledger.InsertOrGet(ctx, rec)
	if err != nil {
		// The buyer has paid; access is delivered regardless.
		v.log.ErrorContext(ctx, "failed to record purchase",
			logger.SessionID(sessionID),
			logger.ProductID(productID),
			logger.Identity(buyer),
			logger.Error(err),
		)
	} else {
		res.Record = &stored
		res.Duplicate = !created
	}

	res.AccessReference, err = v.access.AccessReference(ctx, product)
	if err != nil {
		v.log.ErrorContext(ctx, "failed to resolve access reference",
			logger.SessionID(sessionID),
			logger.ProductID(productID),
			logger.Error(err),
		)
		if apperr.KindOf(err) == nil {
			err = errors.Join(apperr.ErrUpstreamUnavailable, err)
		}
		return Result{}, err
	}

	if created {
		v.log.InfoContext(ctx, "purchase recorded",
			logger.SessionID(sessionID),
			logger.ProductID(productID),
			logger.Identity(buyer),
		)
		v.sendReceipt(ctx, st, product, res.AccessReference)
	}
	return res, nil
}

func (v *Verifier) sendReceipt(ctx context.Context, st *payment.SessionStatus, p catalog.Product, access string) {
	if v.receipts == nil || st.Email == "" {
		return
	}
	err := v.receipts.SendReceipt(ctx, email.ReceiptData{
		To:          st.Email,
		SessionID:   st.ID,
		ProductName: p.Title,
		Amount:      st.AmountTotal.Format(),
		AccessURL:   access,
	})
	if err != nil {
		v.log.WarnContext(ctx, "failed to send receipt", logger.SessionID(st.ID), logger.Error(err))
	}
}

// underpaid compares minor units. A different currency never matches.
func underpaid(paid, price catalog.Money) bool {
	return paid.Code() != price.Code() || paid.Amount < price.Amount
}
