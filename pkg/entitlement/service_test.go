package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
)

type mockStore struct{ mock.Mock }

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

func TestServiceEntitlements(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("missing record is free", func(t *testing.T) {
		t.Parallel()
		svc := entitlement.NewService(entitlement.NewMemoryStore())
		set, plan := svc.Entitlements(ctx, identity.User("nobody"))
		assert.Equal(t, entitlement.PlanFree, set.Plan)
		assert.Equal(t, entitlement.PlanFree, plan.PlanType)
	})

	t.Run("stored pro record", func(t *testing.T) {
		t.Parallel()
		store := entitlement.NewMemoryStore()
		u := identity.User("u1")
		require.NoError(t, store.Upsert(ctx, entitlement.FreePlan(u).Upgraded(now, "cus_1")))

		set, plan := entitlement.NewService(store).Entitlements(ctx, u)
		assert.Equal(t, entitlement.PlanPro, set.Plan)
		assert.True(t, plan.IsPro)
	})

	t.Run("guest skips the store", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		set, _ := entitlement.NewService(store).Entitlements(ctx, identity.Guest("g1"))
		assert.Equal(t, entitlement.PlanFree, set.Plan)
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("store failure fails closed", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		u := identity.User("u1")
		store.On("Get", mock.Anything, u).Return(entitlement.PlanRecord{}, errors.New("connection reset"))

		svc := entitlement.NewService(store)
		set, _ := svc.Entitlements(ctx, u)
		assert.Equal(t, entitlement.PlanFree, set.Plan)

		_, err := svc.Plan(ctx, u)
		assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
		store.AssertExpectations(t)
	})
}

func TestNewServicePanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { entitlement.NewService(nil) })
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := entitlement.NewMemoryStore()
	u := identity.User("u1")

	_, err := store.Get(ctx, u)
	assert.ErrorIs(t, err, entitlement.ErrPlanNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	bad := entitlement.PlanRecord{Identity: u, PlanType: entitlement.PlanPro}
	assert.ErrorIs(t, store.Upsert(ctx, bad), apperr.ErrValidation)

	rec := entitlement.FreePlan(u).Upgraded(time.Now(), "cus_9")
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.FindByCustomerID(ctx, "cus_9")
	require.NoError(t, err)
	assert.True(t, got.Identity.Equal(u))

	_, err = store.FindByCustomerID(ctx, "")
	assert.ErrorIs(t, err, entitlement.ErrPlanNotFound)
}
