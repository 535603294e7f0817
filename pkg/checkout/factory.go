package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/catalog"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/payment"
)

var (
	// MinimumProductAmount is the processor's floor for a one-time charge.
	MinimumProductAmount = catalog.USD(50)
	MinimumTipAmount     = catalog.USD(100)
)

// Config holds the callback URLs. Paths are joined to BaseURL.
type Config struct {
	BaseURL          string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	SuccessPath      string `env:"CHECKOUT_SUCCESS_PATH" envDefault:"/checkout/success"`
	CancelPath       string `env:"CHECKOUT_CANCEL_PATH" envDefault:"/checkout/cancel"`
	PortalReturnPath string `env:"PORTAL_RETURN_PATH" envDefault:"/"`
}

// Factory creates checkout and billing portal sessions.
type Factory struct {
	processor payment.Processor
	catalog   catalog.Catalog
	plans     entitlement.Store
	templates catalog.Templates
	cfg       Config
	log       *slog.Logger
	newRef    func() string
}

type Option func(*Factory)

func WithTemplates(t catalog.Templates) Option {
	return func(f *Factory) { f.templates = t }
}

// WithPlanStore lets sessions reuse a user's processor customer id and
// enables PortalLink.
func WithPlanStore(s entitlement.Store) Option {
	return func(f *Factory) { f.plans = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// WithReferenceGenerator replaces the reference id source, for tests.
func WithReferenceGenerator(fn func() string) Option {
	return func(f *Factory) { f.newRef = fn }
}

// NewFactory panics on a nil processor or catalog.
func NewFactory(processor payment.Processor, cat catalog.Catalog, cfg Config, opts ...Option) *Factory {
	if processor == nil {
		panic("checkout: Processor is required")
	}
	if cat == nil {
		panic("checkout: Catalog is required")
	}
	f := &Factory{
		processor: processor,
		catalog:   cat,
		templates: catalog.DefaultTemplates(),
		cfg:       cfg,
		log:       slog.Default(),
		newRef:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type createOptions struct {
	referenceID string
	email       string
}

type CreateOption func(*createOptions)

// WithReferenceID sets the caller's reference id. One is generated otherwise.
func WithReferenceID(id string) CreateOption {
	return func(o *createOptions) { o.referenceID = id }
}

// WithEmail prefills the buyer's email when no customer id is known.
func WithEmail(email string) CreateOption {
	return func(o *createOptions) { o.email = email }
}

// Create validates intent and opens a hosted checkout session for id. The
// zero identity is an anonymous buyer and may only buy products and tips.
// Subscription and VoiceSubscription need a user identity, since plans are
// keyed by user; guests get an Unauthorized error.
func (f *Factory) Create(ctx context.Context, id identity.Identity, intent Intent, opts ...CreateOption) (*payment.Session, error) {
	o := &createOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.referenceID == "" {
		o.referenceID = f.newRef()
	}

	req := payment.SessionRequest{
		Mode: payment.ModePayment,
		Metadata: map[string]string{
			payment.MetadataIdentity:    id.MetadataValue(),
			payment.MetadataKind:        string(intent.Kind()),
			payment.MetadataReferenceID: o.referenceID,
		},
		ClientReferenceID: o.referenceID,
		Email:             o.email,
	}

	switch in := intent.(type) {
	case OneTimeProduct:
		p, err := f.sellableProduct(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		req.Item = payment.LineItem{Name: p.Title, Amount: p.Price}
		req.Metadata[payment.MetadataProductID] = p.ID
	case Subscription:
		if err := requireUser(id); err != nil {
			return nil, err
		}
		req.Mode = payment.ModeSubscription
		req.Item = lineItem(f.templates.Subscription)
	case VoiceSubscription:
		if err := requireUser(id); err != nil {
			return nil, err
		}
		req.Mode = payment.ModeSubscription
		req.Item = lineItem(f.templates.VoiceSubscription)
	case Tip:
		if err := checkFloor(in.Amount, MinimumTipAmount); err != nil {
			return nil, err
		}
		req.Item = payment.LineItem{Name: f.templates.TipName, Amount: in.Amount}
	default:
		return nil, errors.Join(apperr.ErrValidation, ErrUnknownKind)
	}

	req.CustomerID = f.customerID(ctx, id)
	req.SuccessURL = f.callbackURL(f.cfg.SuccessPath, req.Metadata)
	req.CancelURL = f.callbackURL(f.cfg.CancelPath, req.Metadata)

	sess, err := f.processor.CreateCheckoutSession(ctx, req)
	if err != nil {
		f.log.ErrorContext(ctx, "failed to create checkout session",
			logger.Identity(id),
			slog.String("kind", string(intent.Kind())),
			logger.Provider(f.processor.Name()),
			logger.Error(err),
		)
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	f.log.InfoContext(ctx, "checkout session created",
		logger.Identity(id),
		slog.String("kind", string(intent.Kind())),
		logger.SessionID(sess.ID),
	)
	return sess, nil
}

// PortalLink opens the processor's billing portal for a user with a stored
// customer id.
func (f *Factory) PortalLink(ctx context.Context, id identity.Identity) (*payment.Portal, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if f.plans == nil {
		return nil, errors.Join(apperr.ErrConfiguration, ErrNoBillingAccount)
	}

	plan, err := f.plans.Get(ctx, id)
	if errors.Is(err, entitlement.ErrPlanNotFound) || (err == nil && plan.StripeCustomerID == "") {
		return nil, errors.Join(apperr.ErrNotFound, ErrNoBillingAccount)
	}
	if err != nil {
		f.log.ErrorContext(ctx, "failed to load plan for portal", logger.Identity(id), logger.Error(err))
		return nil, err
	}

	portal, err := f.processor.CreatePortalSession(ctx, payment.PortalRequest{
		CustomerID: plan.StripeCustomerID,
		ReturnURL:  f.join(f.cfg.PortalReturnPath),
	})
	if err != nil {
		f.log.ErrorContext(ctx, "failed to create portal session",
			logger.Identity(id),
			logger.CustomerID(plan.StripeCustomerID),
			logger.Error(err),
		)
		return nil, errors.Join(ErrPortalFailed, err)
	}
	return portal, nil
}

func (f *Factory) sellableProduct(ctx context.Context, productID string) (catalog.Product, error) {
	p, err := f.catalog.Product(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return catalog.Product{}, errors.Join(apperr.ErrNotFound, ErrProductNotFound)
	}
	if err != nil {
		f.log.ErrorContext(ctx, "catalog lookup failed", logger.ProductID(productID), logger.Error(err))
		return catalog.Product{}, err
	}
	if !p.Active {
		return catalog.Product{}, errors.Join(apperr.ErrNotFound, ErrProductInactive)
	}
	if err := checkFloor(p.Price, MinimumProductAmount); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// customerID returns the stored processor customer for a user. Lookup
// failures only cost the prefill, so they are logged and ignored.
func (f *Factory) customerID(ctx context.Context, id identity.Identity) string {
	if f.plans == nil || !id.IsUser() {
		return ""
	}
	plan, err := f.plans.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, entitlement.ErrPlanNotFound) {
			f.log.WarnContext(ctx, "plan lookup failed, creating checkout without customer", logger.Identity(id), logger.Error(err))
		}
		return ""
	}
	return plan.StripeCustomerID
}

func (f *Factory) callbackURL(path string, meta map[string]string) string {
	q := url.Values{}
	q.Set("kind", meta[payment.MetadataKind])
	if pid := meta[payment.MetadataProductID]; pid != "" {
		q.Set("product_id", pid)
	}
	// The placeholder must reach the processor unescaped.
	return f.join(path) + "?" + q.Encode() + "&session_id=" + payment.SessionIDPlaceholder
}

func (f *Factory) join(path string) string {
	return strings.TrimRight(f.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// checkFloor compares minor units. Prices are single-currency, so the
// floors apply to every currency's minor unit.
func checkFloor(amount, floor catalog.Money) error {
	if amount.Amount < floor.Amount {
		return errors.Join(apperr.ErrValidation, ErrBelowMinimumAmount,
			fmt.Errorf("%s is below the %s minimum", amount.Format(), floor.Format()))
	}
	return nil
}

func requireUser(id identity.Identity) error {
	if !id.IsUser() {
		return errors.Join(apperr.ErrUnauthorized, identity.ErrUserRequired)
	}
	return nil
}

func lineItem(ref catalog.PriceRef) payment.LineItem {
	return payment.LineItem{
		PriceID:  ref.PriceID,
		Name:     ref.Name,
		Amount:   ref.Amount,
		Interval: ref.Interval,
	}
}
