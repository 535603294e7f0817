package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/payment"
	"github.com/dmitrymomot/meterkit/pkg/reconcile"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newReconciler(t *testing.T, plans entitlement.Store) *reconcile.Reconciler {
	t.Helper()
	return reconcile.New(plans, reconcile.NewMemoryEventStore(), reconcile.WithClock(func() time.Time { return now }))
}

func TestNew(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "reconcile: plan Store is required", func() {
		reconcile.New(nil, reconcile.NewMemoryEventStore())
	})
	assert.PanicsWithValue(t, "reconcile: EventStore is required", func() {
		reconcile.New(entitlement.NewMemoryStore(), nil)
	})
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	t.Run("upgrades the requesting user", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)
		u := identity.User("u1")

		rec, err := r.Reconcile(context.Background(), u, u)
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
		assert.Equal(t, entitlement.PlanPro, rec.PlanType)
		require.NotNil(t, rec.UpgradedAt)
		assert.Equal(t, now, *rec.UpgradedAt)

		stored, err := plans.Get(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, rec, stored)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		u := identity.User("u1")
		first := reconcile.New(plans, reconcile.NewMemoryEventStore(), reconcile.WithClock(func() time.Time { return now }))
		second := reconcile.New(plans, reconcile.NewMemoryEventStore(), reconcile.WithClock(func() time.Time { return now.Add(time.Hour) }))

		a, err := first.Reconcile(context.Background(), u, u)
		require.NoError(t, err)
		b, err := second.Reconcile(context.Background(), u, u)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("keeps the customer id", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		u := identity.User("u1")
		require.NoError(t, plans.Upsert(context.Background(), entitlement.PlanRecord{
			Identity: u, PlanType: entitlement.PlanFree, StripeCustomerID: "cus_1", UpdatedAt: now.Add(-time.Hour),
		}))

		rec, err := newReconciler(t, plans).Reconcile(context.Background(), u, u)
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
		assert.Equal(t, "cus_1", rec.StripeCustomerID)
	})

	for name, tc := range map[string]struct {
		target, requesting identity.Identity
	}{
		"other user":      {identity.User("u1"), identity.User("u2")},
		"guest requester": {identity.User("u1"), identity.Guest("u1")},
		"guest target":    {identity.Guest("g1"), identity.Guest("g1")},
		"anonymous":       {identity.User("u1"), identity.Identity{}},
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			t.Parallel()
			plans := entitlement.NewMemoryStore()
			_, err := newReconciler(t, plans).Reconcile(context.Background(), tc.target, tc.requesting)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
			assert.ErrorIs(t, err, reconcile.ErrIdentityMismatch)

			_, err = plans.Get(context.Background(), tc.target)
			assert.ErrorIs(t, err, entitlement.ErrPlanNotFound)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		plans := &mockStore{}
		u := identity.User("u1")
		plans.On("Get", mock.Anything, u).Return(entitlement.PlanRecord{}, errors.Join(apperr.ErrUpstreamUnavailable, errors.New("down")))

		_, err := newReconciler(t, plans).Reconcile(context.Background(), u, u)
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
		plans.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func completed(id, user, kind string, at time.Time) *payment.Event {
	return &payment.Event{
		ID:         id,
		Provider:   "stripe",
		Type:       payment.EventCheckoutCompleted,
		CustomerID: "cus_1",
		SessionID:  "cs_" + id,
		Identity:   user,
		Kind:       kind,
		OccurredAt: at,
	}
}

func TestHandleEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	u := identity.User("u1")

	t.Run("subscription checkout upgrades once", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)
		evt := completed("evt_1", "user:u1", "subscription", now)

		out, err := r.HandleEvent(ctx, evt)
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeApplied, out)

		out, err = r.HandleEvent(ctx, evt)
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeDuplicate, out)

		rec, err := plans.Get(ctx, u)
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
		assert.Equal(t, "cus_1", rec.StripeCustomerID)
	})

	t.Run("one-time checkout leaves the plan alone", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		out, err := newReconciler(t, plans).HandleEvent(ctx, completed("evt_2", "user:u1", "one_time_product", now))
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeIgnored, out)

		_, err = plans.Get(ctx, u)
		assert.ErrorIs(t, err, entitlement.ErrPlanNotFound)
	})

	t.Run("guest subscription metadata is unmatched", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		evt := completed("evt_3", "guest:g1", "subscription", now)
		evt.CustomerID = ""
		out, err := newReconciler(t, plans).HandleEvent(ctx, evt)
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeUnmatched, out)
	})

	t.Run("cancellation found by customer id downgrades", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)
		_, err := r.HandleEvent(ctx, completed("evt_4", "user:u1", "subscription", now))
		require.NoError(t, err)

		out, err := r.HandleEvent(ctx, &payment.Event{
			ID: "evt_5", Provider: "stripe", Type: payment.EventSubscriptionCancelled,
			CustomerID: "cus_1", OccurredAt: now.Add(24 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeApplied, out)

		rec, err := plans.Get(ctx, u)
		require.NoError(t, err)
		assert.False(t, rec.IsPro)
		assert.Nil(t, rec.UpgradedAt)
		assert.Equal(t, "cus_1", rec.StripeCustomerID)
	})

	t.Run("stale cancellation is ignored", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)
		_, err := r.HandleEvent(ctx, completed("evt_6", "user:u1", "subscription", now))
		require.NoError(t, err)

		out, err := r.HandleEvent(ctx, &payment.Event{
			ID: "evt_7", Provider: "stripe", Type: payment.EventSubscriptionCancelled,
			CustomerID: "cus_1", OccurredAt: now.Add(-time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeStale, out)

		rec, err := plans.Get(ctx, u)
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
	})

	t.Run("late checkout after manual reconcile links the customer", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)

		_, err := r.Reconcile(ctx, u, u)
		require.NoError(t, err)

		out, err := r.HandleEvent(ctx, completed("evt_late", "user:u1", "subscription", now.Add(-5*time.Minute)))
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeLinked, out)

		rec, err := plans.Get(ctx, u)
		require.NoError(t, err)
		assert.True(t, rec.IsPro)
		assert.Equal(t, "cus_1", rec.StripeCustomerID)
		assert.True(t, now.Equal(rec.UpdatedAt))

		out, err = r.HandleEvent(ctx, &payment.Event{
			ID: "evt_refund", Provider: "stripe", Type: payment.EventChargeRefunded,
			CustomerID: "cus_1", OccurredAt: now.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeApplied, out)

		rec, err = plans.Get(ctx, u)
		require.NoError(t, err)
		assert.False(t, rec.IsPro)
		assert.Equal(t, entitlement.PlanFree, rec.PlanType)
	})

	t.Run("late checkout keeps an existing customer id", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)
		_, err := r.HandleEvent(ctx, completed("evt_first", "user:u1", "subscription", now))
		require.NoError(t, err)

		late := completed("evt_older", "user:u1", "subscription", now.Add(-time.Hour))
		late.CustomerID = "cus_2"
		out, err := r.HandleEvent(ctx, late)
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeStale, out)

		rec, err := plans.Get(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, "cus_1", rec.StripeCustomerID)
	})

	t.Run("product refund keeps pro", func(t *testing.T) {
		t.Parallel()
		plans := entitlement.NewMemoryStore()
		r := newReconciler(t, plans)
		_, err := r.HandleEvent(ctx, completed("evt_8", "user:u1", "subscription", now))
		require.NoError(t, err)

		out, err := r.HandleEvent(ctx, &payment.Event{
			ID: "evt_9", Provider: "stripe", Type: payment.EventChargeRefunded,
			CustomerID: "cus_1", Identity: "user:u1", Kind: "one_time_product", OccurredAt: now.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeIgnored, out)
	})

	t.Run("unknown customer is unmatched", func(t *testing.T) {
		t.Parallel()
		out, err := newReconciler(t, entitlement.NewMemoryStore()).HandleEvent(ctx, &payment.Event{
			ID: "evt_10", Provider: "stripe", Type: payment.EventChargeRefunded, CustomerID: "cus_x",
		})
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeUnmatched, out)
	})

	t.Run("unhandled and payment failed are ignored", func(t *testing.T) {
		t.Parallel()
		r := newReconciler(t, entitlement.NewMemoryStore())
		for _, typ := range []payment.EventType{payment.EventUnhandled, payment.EventPaymentFailed} {
			out, err := r.HandleEvent(ctx, &payment.Event{ID: "evt_" + string(typ), Provider: "stripe", Type: typ, CustomerID: "cus_1"})
			require.NoError(t, err)
			assert.Equal(t, reconcile.OutcomeIgnored, out)
		}
	})

	t.Run("missing event id", func(t *testing.T) {
		t.Parallel()
		r := newReconciler(t, entitlement.NewMemoryStore())
		_, err := r.HandleEvent(ctx, &payment.Event{Type: payment.EventCheckoutCompleted})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.ErrorIs(t, err, reconcile.ErrMissingEventID)
		_, err = r.HandleEvent(ctx, nil)
		assert.ErrorIs(t, err, reconcile.ErrMissingEventID)
	})

	t.Run("failed apply releases the claim", func(t *testing.T) {
		t.Parallel()
		plans := &mockStore{}
		plans.On("Get", mock.Anything, u).Return(entitlement.PlanRecord{}, errors.Join(apperr.ErrNotFound, entitlement.ErrPlanNotFound))
		plans.On("Upsert", mock.Anything, mock.Anything).Return(errors.Join(apperr.ErrUpstreamUnavailable, errors.New("down"))).Once()
		plans.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		r := newReconciler(t, plans)
		evt := completed("evt_11", "user:u1", "subscription", now)

		_, err := r.HandleEvent(ctx, evt)
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

		out, err := r.HandleEvent(ctx, evt)
		require.NoError(t, err)
		assert.Equal(t, reconcile.OutcomeApplied, out)
		plans.AssertExpectations(t)
	})

	t.Run("concurrent redelivery applies once", func(t *testing.T) {
		t.Parallel()
		plans := &countingStore{MemoryStore: entitlement.NewMemoryStore()}
		r := newReconciler(t, plans)
		evt := completed("evt_12", "user:u1", "voice_subscription", now)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.HandleEvent(ctx, evt)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, plans.upserts())
	})
}

func TestMemoryEventStore(t *testing.T) {
	t.Parallel()
	s := reconcile.NewMemoryEventStore()
	ctx := context.Background()

	first, err := s.Claim(ctx, "stripe", "evt_1", "checkout_completed", now)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = s.Claim(ctx, "stripe", "evt_1", "checkout_completed", now)
	require.NoError(t, err)
	assert.False(t, first)

	first, err = s.Claim(ctx, "paddle", "evt_1", "checkout_completed", now)
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, s.Release(ctx, "stripe", "evt_1"))
	first, err = s.Claim(ctx, "stripe", "evt_1", "checkout_completed", now)
	require.NoError(t, err)
	assert.True(t, first)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, id identity.Identity) (entitlement.PlanRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entitlement.PlanRecord), args.Error(1)
}

func (m *mockStore) Upsert(ctx context.Context, r entitlement.PlanRecord) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockStore) FindByCustomerID(ctx context.Context, customerID string) (entitlement.PlanRecord, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(entitlement.PlanRecord), args.Error(1)
}

type countingStore struct {
	*entitlement.MemoryStore
	mu sync.Mutex
	n  int
}

func (s *countingStore) Upsert(ctx context.Context, r entitlement.PlanRecord) error {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return s.MemoryStore.Upsert(ctx, r)
}

func (s *countingStore) upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
