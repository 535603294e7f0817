package purchase_test

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
	"github.com/dmitrymomot/meterkit/pkg/catalog"
	"github.com/dmitrymomot/meterkit/pkg/email"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/payment"
	"github.com/dmitrymomot/meterkit/pkg/purchase"
)

type mockProcessor struct {
	payment.Unconfigured
	mock.Mock
}

func (m *mockProcessor) Name() string { return "mock" }

func (m *mockProcessor) RetrieveSession(ctx context.Context, id string) (*payment.SessionStatus, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*payment.SessionStatus)
	return s, args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) InsertOrGet(ctx context.Context, r purchase.Record) (purchase.Record, bool, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(purchase.Record), args.Bool(1), args.Error(2)
}

func (m *mockLedger) Get(ctx context.Context, sessionID string) (purchase.Record, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(purchase.Record), args.Error(1)
}

type mockReceipts struct{ mock.Mock }

func (m *mockReceipts) SendReceipt(ctx context.Context, data email.ReceiptData) error {
	return m.Called(ctx, data).Error(0)
}

type mockLinker struct{ mock.Mock }

func (m *mockLinker) Link(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

var recordedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func paidSession(id, identityValue string) *payment.SessionStatus {
	return &payment.SessionStatus{
		ID:              id,
		PaymentStatus:   payment.StatusPaid,
		AmountTotal:     catalog.USD(500),
		PaymentIntentID: "pi_" + id,
		Email:           "buyer@example.com",
		Metadata: map[string]string{
			payment.MetadataIdentity:  identityValue,
			payment.MetadataKind:      "one_time_product",
			payment.MetadataProductID: "guide",
		},
	}
}

func newCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.NewMemory(catalog.Product{
		ID: "guide", Title: "Guide", Price: catalog.USD(500), Active: true,
		FileURL: "https://cdn.test/guide.pdf",
	})
	require.NoError(t, err)
	return c
}

func TestVerifyAndRecordIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	proc := &mockProcessor{}
	proc.On("RetrieveSession", mock.Anything, "cs_1").Return(paidSession("cs_1", "user:u1"), nil)
	receipts := &mockReceipts{}
	receipts.On("SendReceipt", mock.Anything, mock.MatchedBy(func(d email.ReceiptData) bool {
		return d.To == "buyer@example.com" && d.ProductName == "Guide" && d.AccessURL == "https://cdn.test/guide.pdf"
	})).Return(nil).Once()

	ledger := purchase.NewMemoryLedger()
	v := purchase.NewVerifier(proc, newCatalog(t), ledger,
		purchase.WithReceipts(receipts),
		purchase.WithClock(func() time.Time { return recordedAt }),
	)

	first, err := v.VerifyAndRecord(ctx, "cs_1", "guide")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "https://cdn.test/guide.pdf", first.AccessReference)
	require.NotNil(t, first.Record)
	assert.True(t, first.Record.Identity.Equal(identity.User("u1")))
	assert.Equal(t, "pi_cs_1", first.Record.PaymentIntentID)
	assert.Equal(t, recordedAt, first.Record.RecordedAt)

	second, err := v.VerifyAndRecord(ctx, "cs_1", "guide")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.AccessReference, second.AccessReference)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	assert.Equal(t, 1, ledger.Len())
	receipts.AssertExpectations(t)
}

func TestVerifyAndRecordConcurrent(t *testing.T) {
	t.Parallel()

	proc := &mockProcessor{}
	proc.On("RetrieveSession", mock.Anything, "cs_race").Return(paidSession("cs_race", "guest"), nil)
	ledger := purchase.NewMemoryLedger()
	v := purchase.NewVerifier(proc, newCatalog(t), ledger)

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := v.VerifyAndRecord(context.Background(), "cs_race", "guide")
			if err != nil || !res.Success {
				t.Errorf("verify failed: %v", err)
				return
			}
			if !res.Duplicate {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, ledger.Len())
}

func TestVerifyAndRecordGuestSentinel(t *testing.T) {
	t.Parallel()

	proc := &mockProcessor{}
	proc.On("RetrieveSession", mock.Anything, "cs_anon").Return(paidSession("cs_anon", identity.GuestSentinel), nil)
	proc.On("RetrieveSession", mock.Anything, "cs_guest").Return(paidSession("cs_guest", "guest:g1"), nil)
	v := purchase.NewVerifier(proc, newCatalog(t), purchase.NewMemoryLedger())

	res, err := v.VerifyAndRecord(context.Background(), "cs_anon", "guide")
	require.NoError(t, err)
	assert.True(t, res.Record.Anonymous())

	res, err = v.VerifyAndRecord(context.Background(), "cs_guest", "guide")
	require.NoError(t, err)
	assert.True(t, res.Record.Identity.Equal(identity.Guest("g1")))
}

func TestVerifyAndRecordFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unpaid writes nothing", func(t *testing.T) {
		t.Parallel()
		st := paidSession("cs_open", "user:u1")
		st.PaymentStatus = payment.StatusUnpaid
		proc := &mockProcessor{}
		proc.On("RetrieveSession", mock.Anything, "cs_open").Return(st, nil)
		ledger := purchase.NewMemoryLedger()

		_, err := purchase.NewVerifier(proc, newCatalog(t), ledger).VerifyAndRecord(ctx, "cs_open", "guide")
		assert.ErrorIs(t, err, purchase.ErrPaymentIncomplete)
		assert.Equal(t, 0, ledger.Len())
	})

	t.Run("missing product", func(t *testing.T) {
		t.Parallel()
		st := paidSession("cs_2", "user:u1")
		st.Metadata[payment.MetadataProductID] = "nope"
		proc := &mockProcessor{}
		proc.On("RetrieveSession", mock.Anything, "cs_2").Return(st, nil)

		_, err := purchase.NewVerifier(proc, newCatalog(t), purchase.NewMemoryLedger()).VerifyAndRecord(ctx, "cs_2", "nope")
		assert.ErrorIs(t, err, purchase.ErrProductNotFound)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("session for another product", func(t *testing.T) {
		t.Parallel()
		st := paidSession("cs_3", "user:u1")
		st.Metadata[payment.MetadataProductID] = "sticker"
		proc := &mockProcessor{}
		proc.On("RetrieveSession", mock.Anything, "cs_3").Return(st, nil)

		_, err := purchase.NewVerifier(proc, newCatalog(t), purchase.NewMemoryLedger()).VerifyAndRecord(ctx, "cs_3", "guide")
		assert.ErrorIs(t, err, purchase.ErrProductMismatch)
	})

	sessionCases := []struct {
		name    string
		session func() *payment.SessionStatus
		wantErr error
	}{
		{
			name: "tip session",
			session: func() *payment.SessionStatus {
				st := paidSession("cs_tip", "user:u1")
				st.AmountTotal = catalog.USD(100)
				st.Metadata[payment.MetadataKind] = "tip"
				delete(st.Metadata, payment.MetadataProductID)
				return st
			},
			wantErr: purchase.ErrNotProductSession,
		},
		{
			name: "subscription session",
			session: func() *payment.SessionStatus {
				st := paidSession("cs_sub", "user:u1")
				st.Metadata[payment.MetadataKind] = "subscription"
				delete(st.Metadata, payment.MetadataProductID)
				return st
			},
			wantErr: purchase.ErrNotProductSession,
		},
		{
			name: "session without kind",
			session: func() *payment.SessionStatus {
				st := paidSession("cs_bare", "user:u1")
				delete(st.Metadata, payment.MetadataKind)
				return st
			},
			wantErr: purchase.ErrNotProductSession,
		},
		{
			name: "product session without product id",
			session: func() *payment.SessionStatus {
				st := paidSession("cs_noid", "user:u1")
				delete(st.Metadata, payment.MetadataProductID)
				return st
			},
			wantErr: purchase.ErrProductMismatch,
		},
		{
			name: "amount below price",
			session: func() *payment.SessionStatus {
				st := paidSession("cs_low", "user:u1")
				st.AmountTotal = catalog.USD(499)
				return st
			},
			wantErr: purchase.ErrUnderpaid,
		},
		{
			name: "amount in another currency",
			session: func() *payment.SessionStatus {
				st := paidSession("cs_eur", "user:u1")
				st.AmountTotal = catalog.Money{Amount: 500, Currency: "EUR"}
				return st
			},
			wantErr: purchase.ErrUnderpaid,
		},
	}
	for _, tc := range sessionCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := tc.session()
			proc := &mockProcessor{}
			proc.On("RetrieveSession", mock.Anything, st.ID).Return(st, nil)
			ledger := purchase.NewMemoryLedger()
			receipts := &mockReceipts{}

			res, err := purchase.NewVerifier(proc, newCatalog(t), ledger, purchase.WithReceipts(receipts)).
				VerifyAndRecord(ctx, st.ID, "guide")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.False(t, res.Success)
			assert.Empty(t, res.AccessReference)
			assert.Equal(t, 0, ledger.Len())
			receipts.AssertNotCalled(t, "SendReceipt", mock.Anything, mock.Anything)
		})
	}

	t.Run("processor timeout is retryable", func(t *testing.T) {
		t.Parallel()
		proc := &mockProcessor{}
		proc.On("RetrieveSession", mock.Anything, "cs_4").
			Return(nil, errors.Join(apperr.ErrUpstreamUnavailable, errors.New("timeout")))

		_, err := purchase.NewVerifier(proc, newCatalog(t), purchase.NewMemoryLedger()).VerifyAndRecord(ctx, "cs_4", "guide")
		assert.True(t, apperr.IsRetryable(err))
	})

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		v := purchase.NewVerifier(&mockProcessor{}, newCatalog(t), purchase.NewMemoryLedger())
		_, err := v.VerifyAndRecord(ctx, " ", "guide")
		assert.ErrorIs(t, err, purchase.ErrMissingSessionID)
		_, err = v.VerifyAndRecord(ctx, "cs", "")
		assert.ErrorIs(t, err, purchase.ErrMissingProductID)
	})

	t.Run("ledger failure still grants access", func(t *testing.T) {
		t.Parallel()
		proc := &mockProcessor{}
		proc.On("RetrieveSession", mock.Anything, "cs_5").Return(paidSession("cs_5", "user:u1"), nil)
		ledger := &mockLedger{}
		ledger.On("InsertOrGet", mock.Anything, mock.Anything).
			Return(purchase.Record{}, false, errors.Join(apperr.ErrUpstreamUnavailable, errors.New("db down")))
		receipts := &mockReceipts{}

		res, err := purchase.NewVerifier(proc, newCatalog(t), ledger, purchase.WithReceipts(receipts)).
			VerifyAndRecord(ctx, "cs_5", "guide")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "https://cdn.test/guide.pdf", res.AccessReference)
		assert.Nil(t, res.Record)
		receipts.AssertNotCalled(t, "SendReceipt", mock.Anything, mock.Anything)
	})
}

func TestSignedAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	linker := &mockLinker{}
	linker.On("Link", mock.Anything, "s3://downloads/guide.pdf").Return("https://s3.test/signed", nil)
	linker.On("Link", mock.Anything, "s3://downloads/gone.pdf").
		Return("", errors.Join(apperr.ErrNotFound, errors.New("no such key")))
	a := purchase.NewSignedAccess(linker)

	ref, err := a.AccessReference(ctx, catalog.Product{FileURL: "s3://downloads/guide.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/signed", ref)

	ref, err = a.AccessReference(ctx, catalog.Product{FileURL: "https://cdn.test/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.pdf", ref)

	_, err = a.AccessReference(ctx, catalog.Product{FileURL: "s3://downloads/gone.pdf"})
	assert.ErrorIs(t, err, purchase.ErrAccessUnavailable)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
