package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/checkout"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/payment"
)

// Outcome describes what HandleEvent did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeStale     Outcome = "stale"
	OutcomeLinked    Outcome = "linked"
	OutcomeUnmatched Outcome = "unmatched"
)

type Reconciler struct {
	plans  entitlement.Store
	events EventStore
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New panics on a nil plan or event store.
func New(plans entitlement.Store, events EventStore, opts ...Option) *Reconciler {
	if plans == nil {
		panic("reconcile: plan Store is required")
	}
	if events == nil {
		panic("reconcile: EventStore is required")
	}
	r := &Reconciler{plans: plans, events: events, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile upgrades target to pro. requesting must be the same
// authenticated user. An existing pro record is returned unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, target, requesting identity.Identity) (entitlement.PlanRecord, error) {
	log := r.log.With(logger.Identity(target), logger.RequestingIdentity(requesting.Key()))
	log.InfoContext(ctx, "plan reconcile requested")

	if !requesting.IsUser() || !target.IsUser() || !target.Equal(requesting) {
		log.WarnContext(ctx, "plan reconcile rejected")
		return entitlement.PlanRecord{}, errors.Join(apperr.ErrUnauthorized, ErrIdentityMismatch)
	}

	rec, err := r.load(ctx, target)
	if err != nil {
		log.ErrorContext(ctx, "failed to load plan", logger.Error(err))
		return entitlement.PlanRecord{}, err
	}
	if rec.IsPro {
		log.InfoContext(ctx, "plan already pro")
		return rec, nil
	}

	rec = rec.Upgraded(r.now(), "")
	if err := r.plans.Upsert(ctx, rec); err != nil {
		log.ErrorContext(ctx, "failed to save plan", logger.Error(err))
		return entitlement.PlanRecord{}, err
	}
	log.InfoContext(ctx, "plan reconciled", logger.Plan(string(rec.PlanType)))
	return rec, nil
}

// HandleEvent applies a verified payment event at most once.
func (r *Reconciler) HandleEvent(ctx context.Context, evt *payment.Event) (Outcome, error) {
	if evt == nil || evt.ID == "" {
		return "", errors.Join(apperr.ErrValidation, ErrMissingEventID)
	}
	log := r.log.With(
		logger.Provider(evt.Provider),
		logger.EventID(evt.ID),
		logger.EventType(string(evt.Type)),
	)
	if evt.Type == payment.EventUnhandled {
		log.DebugContext(ctx, "payment event ignored", slog.String("provider_event", evt.ProviderEvent))
		return OutcomeIgnored, nil
	}

	first, err := r.events.Claim(ctx, evt.Provider, evt.ID, string(evt.Type), r.now().UTC())
	if err != nil {
		log.ErrorContext(ctx, "failed to claim payment event", logger.Error(err))
		return "", err
	}
	if !first {
		log.InfoContext(ctx, "duplicate payment event")
		return OutcomeDuplicate, nil
	}

	outcome, err := r.apply(ctx, log, evt)
	if err != nil {
		log.ErrorContext(ctx, "failed to apply payment event", logger.Error(err))
		if rerr := r.events.Release(ctx, evt.Provider, evt.ID); rerr != nil {
			log.ErrorContext(ctx, "failed to release payment event", logger.Error(rerr))
		}
		return "", err
	}
	log.InfoContext(ctx, "payment event handled", slog.String("outcome", string(outcome)))
	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, log *slog.Logger, evt *payment.Event) (Outcome, error) {
	kind := checkout.Kind(evt.Kind)
	switch evt.Type {
	case payment.EventCheckoutCompleted:
		if !kind.Recurring() {
			return OutcomeIgnored, nil
		}
	case payment.EventSubscriptionCancelled, payment.EventChargeRefunded:
		// Refunds of products and tips never granted a plan.
		if kind != "" && !kind.Recurring() {
			return OutcomeIgnored, nil
		}
	default:
		return OutcomeIgnored, nil
	}

	rec, found, err := r.recordFor(ctx, evt)
	if err != nil {
		return "", err
	}
	if !found {
		log.WarnContext(ctx, "payment event matches no user",
			logger.CustomerID(evt.CustomerID),
			slog.String("identity_metadata", evt.Identity),
		)
		return OutcomeUnmatched, nil
	}

	at := evt.OccurredAt
	if at.IsZero() {
		at = r.now()
	}
	if !rec.UpdatedAt.IsZero() && at.Before(rec.UpdatedAt) {
		// A checkout delivered after a manual reconcile still carries the
		// only link from later refunds back to this user.
		if evt.Type == payment.EventCheckoutCompleted && evt.CustomerID != "" && rec.StripeCustomerID == "" {
			return r.linkCustomer(ctx, log, rec, evt.CustomerID)
		}
		return OutcomeStale, nil
	}

	switch evt.Type {
	case payment.EventCheckoutCompleted:
		if rec.IsPro && (evt.CustomerID == "" || rec.StripeCustomerID == evt.CustomerID) {
			return OutcomeUnchanged, nil
		}
		rec = rec.Upgraded(at, evt.CustomerID)
	default:
		if !rec.IsPro {
			return OutcomeUnchanged, nil
		}
		rec = rec.Downgraded(at)
	}

	if err := r.plans.Upsert(ctx, rec); err != nil {
		return "", err
	}
	log.InfoContext(ctx, "plan updated", logger.Identity(rec.Identity), logger.Plan(string(rec.PlanType)))
	return OutcomeApplied, nil
}

// linkCustomer stores the processor customer id without touching plan state
// or the record's ordering time.
func (r *Reconciler) linkCustomer(ctx context.Context, log *slog.Logger, rec entitlement.PlanRecord, customerID string) (Outcome, error) {
	rec.StripeCustomerID = customerID
	if err := r.plans.Upsert(ctx, rec); err != nil {
		return "", err
	}
	log.InfoContext(ctx, "customer linked from late checkout",
		logger.Identity(rec.Identity),
		logger.CustomerID(customerID),
	)
	return OutcomeLinked, nil
}

// recordFor finds the plan an event refers to: the user in the checkout
// metadata when present, otherwise the owner of the processor customer id.
func (r *Reconciler) recordFor(ctx context.Context, evt *payment.Event) (entitlement.PlanRecord, bool, error) {
	if id, ok := identity.FromMetadata(evt.Identity); ok && id.IsUser() {
		rec, err := r.load(ctx, id)
		return rec, err == nil, err
	}
	if evt.CustomerID == "" {
		return entitlement.PlanRecord{}, false, nil
	}
	rec, err := r.plans.FindByCustomerID(ctx, evt.CustomerID)
	if errors.Is(err, entitlement.ErrPlanNotFound) {
		return entitlement.PlanRecord{}, false, nil
	}
	if err != nil {
		return entitlement.PlanRecord{}, false, err
	}
	return rec, true, nil
}

func (r *Reconciler) load(ctx context.Context, id identity.Identity) (entitlement.PlanRecord, error) {
	rec, err := r.plans.Get(ctx, id)
	if errors.Is(err, entitlement.ErrPlanNotFound) {
		return entitlement.FreePlan(id), nil
	}
	return rec, err
}
