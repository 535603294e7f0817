package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/meterkit/binder"
	"github.com/dmitrymomot/meterkit/handler"
	"github.com/dmitrymomot/meterkit/pkg/checkout"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/payment"
	"github.com/dmitrymomot/meterkit/pkg/purchase"
	"github.com/dmitrymomot/meterkit/pkg/ratelimiter"
	"github.com/dmitrymomot/meterkit/pkg/reconcile"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// Deps are the components behind the routes. All are required.
type Deps struct {
	Resolver     *identity.Resolver
	Counter      *usage.Counter
	Entitlements entitlement.Service
	Checkout     *checkout.Factory
	Verifier     *purchase.Verifier
	Reconciler   *reconcile.Reconciler
	Processor    payment.Processor
}

type Service struct {
	deps           Deps
	reconcileLimit *ratelimiter.Bucket
	errorHandler   handler.ErrorHandler[handler.Context]
	log            *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReconcileLimiter rate limits /plan/reconcile per caller identity.
func WithReconcileLimiter(b *ratelimiter.Bucket) Option {
	return func(s *Service) { s.reconcileLimit = b }
}

func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(s *Service) { s.errorHandler = h }
}

// NewService panics when a dependency is missing.
func NewService(deps Deps, opts ...Option) *Service {
	switch {
	case deps.Resolver == nil:
		panic("billing: Resolver is required")
	case deps.Counter == nil:
		panic("billing: Counter is required")
	case deps.Entitlements == nil:
		panic("billing: Entitlements is required")
	case deps.Checkout == nil:
		panic("billing: Checkout is required")
	case deps.Verifier == nil:
		panic("billing: Verifier is required")
	case deps.Reconciler == nil:
		panic("billing: Reconciler is required")
	case deps.Processor == nil:
		panic("billing: Processor is required")
	}
	s := &Service{deps: deps, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.log)
	}
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhooks/payment", handler.Wrap(s.webhook,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(s.deps.Resolver), identity.Require)

		r.Get("/usage", handler.Wrap(s.usage,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))
		r.Post("/usage/consume", handler.Wrap(s.consume,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))
		r.Get("/entitlements", handler.Wrap(s.entitlements,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))
		r.Post("/checkout", handler.Wrap(s.createCheckout,
			handler.WithBinder[handler.Context, CheckoutRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, CheckoutRequest](s.errorHandler),
		))
		r.Post("/checkout/verify", handler.Wrap(s.verifyCheckout,
			handler.WithBinders[handler.Context, VerifyRequest](binder.Query(), binder.JSON()),
			handler.WithErrorHandler[handler.Context, VerifyRequest](s.errorHandler),
		))

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireUser)

			r.Post("/portal", handler.Wrap(s.portal,
				handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
			))

			reconcileRoute := handler.Wrap(s.reconcile,
				handler.WithBinder[handler.Context, ReconcileRequest](binder.JSON()),
				handler.WithErrorHandler[handler.Context, ReconcileRequest](s.errorHandler),
			)
			if s.reconcileLimit != nil {
				r.With(ratelimiter.Middleware(s.reconcileLimit, identityKey, s.log)).
					Post("/plan/reconcile", reconcileRoute)
			} else {
				r.Post("/plan/reconcile", reconcileRoute)
			}
		})
	})

	return r
}

func identityKey(r *http.Request) string {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return ""
	}
	return "reconcile:" + id.Key()
}

// caller returns the identity stored by identity.Middleware. Routes are
// mounted behind identity.Require, so it is always present.
func caller(ctx handler.Context) identity.Identity {
	id, _ := identity.FromContext(ctx)
	return id
}
