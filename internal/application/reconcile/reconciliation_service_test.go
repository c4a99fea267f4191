package reconcile

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
)

type memCustomerRepo struct {
	mu    sync.Mutex
	items map[string]*partner.Customer
	// conflictOn makes the next SaveWithLock for the tax code fail once
	conflictOn map[string]bool
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{
		items:      make(map[string]*partner.Customer),
		conflictOn: make(map[string]bool),
	}
}

func (r *memCustomerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *customer
	r.items[customer.TaxCode] = &cp
	return nil
}

func (r *memCustomerRepo) SaveWithLock(_ context.Context, customer *partner.Customer, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOn[customer.TaxCode] {
		delete(r.conflictOn, customer.TaxCode)
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.items[customer.TaxCode]
	if !ok || stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	cp := *customer
	r.items[customer.TaxCode] = &cp
	return nil
}

func (r *memCustomerRepo) FindByTaxCode(_ context.Context, taxCode string) (*partner.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[taxCode]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *memCustomerRepo) ListOrdered(_ context.Context, limit int) ([]*partner.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.items))
	for code := range r.items {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if limit > 0 && limit < len(codes) {
		codes = codes[:limit]
	}
	out := make([]*partner.Customer, 0, len(codes))
	for _, code := range codes {
		cp := *r.items[code]
		out = append(out, &cp)
	}
	return out, nil
}

type stubFactsReader struct {
	mu    sync.Mutex
	facts map[string]partner.BalanceFacts
	fail  map[string]error
	reads int
}

func newStubFactsReader() *stubFactsReader {
	return &stubFactsReader{
		facts: make(map[string]partner.BalanceFacts),
		fail:  make(map[string]error),
	}
}

func (s *stubFactsReader) ReadBalanceFacts(_ context.Context, taxCode string) (partner.BalanceFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if err, ok := s.fail[taxCode]; ok {
		return partner.BalanceFacts{}, err
	}
	return s.facts[taxCode], nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Log(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type reconcileFixture struct {
	customers *memCustomerRepo
	facts     *stubFactsReader
	sink      *recordingSink
	service   *Service
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		customers: newMemCustomerRepo(),
		facts:     newStubFactsReader(),
		sink:      &recordingSink{},
	}
	f.service = NewService(f.customers, f.facts, f.sink, zap.NewNop())
	return f
}

// seedCustomer stores a customer with the given cached balance and sets
// the facts so the recomputed balance equals expected.
func (f *reconcileFixture) seedCustomer(t *testing.T, taxCode, cached, expected string) *partner.Customer {
	t.Helper()
	customer, err := partner.NewCustomer(taxCode, "Customer "+taxCode)
	require.NoError(t, err)
	customer.CurrentBalance = dec(t, cached)
	require.NoError(t, f.customers.Save(context.Background(), customer))
	f.facts.facts[taxCode] = partner.BalanceFacts{InvoiceOutstanding: dec(t, expected)}
	return customer
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	tolerance := dec(t, "0.01")

	t.Run("dry run reports drift without writing", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "100.00", "100.00")
		f.seedCustomer(t, "0200000002", "50.00", "80.00")

		result, err := f.service.Reconcile(ctx, false, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 2, result.CheckedCustomers)
		assert.Equal(t, 1, result.DriftedCustomers)
		assert.Equal(t, 0, result.UpdatedCustomers)
		assert.True(t, result.TotalAbsoluteDrift.Equal(dec(t, "30.00")))
		assert.False(t, result.ApplyChanges)

		stored, err := f.customers.FindByTaxCode(ctx, "0200000002")
		require.NoError(t, err)
		assert.True(t, stored.CurrentBalance.Equal(dec(t, "50.00")))
		assert.Nil(t, stored.LastReconciled)
		assert.Empty(t, f.sink.entries)
	})

	t.Run("apply corrects drifted balances and audits them", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "100.00", "100.00")
		f.seedCustomer(t, "0200000002", "50.00", "80.00")

		result, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 1, result.DriftedCustomers)
		assert.Equal(t, 1, result.UpdatedCustomers)
		assert.Zero(t, result.FailedCustomers)

		stored, err := f.customers.FindByTaxCode(ctx, "0200000002")
		require.NoError(t, err)
		assert.True(t, stored.CurrentBalance.Equal(dec(t, "80.00")))
		assert.NotNil(t, stored.LastReconciled)
		assert.Equal(t, 2, stored.Version)

		require.Len(t, f.sink.entries, 1)
		assert.Equal(t, audit.ActionBalanceSettled, f.sink.entries[0].Action)
		assert.Equal(t, "0200000002", f.sink.entries[0].EntityID)
	})

	t.Run("second apply run finds no drift", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "10.00", "45.00")

		first, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 1, first.UpdatedCustomers)

		second, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 0, second.DriftedCustomers)
		assert.Equal(t, 0, second.UpdatedCustomers)
	})

	t.Run("drift within tolerance is left alone", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "100.00", "100.01")

		result, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 0, result.DriftedCustomers)
		assert.Equal(t, 0, result.UpdatedCustomers)
	})

	t.Run("version conflict skips the customer without failing the run", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "10.00", "45.00")
		f.seedCustomer(t, "0200000002", "5.00", "25.00")
		f.customers.conflictOn["0100000001"] = true

		result, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 2, result.CheckedCustomers)
		assert.Equal(t, 2, result.DriftedCustomers)
		assert.Equal(t, 1, result.UpdatedCustomers)
		assert.Zero(t, result.FailedCustomers)

		// the skipped customer keeps its stale cache for the next run
		stored, err := f.customers.FindByTaxCode(ctx, "0100000001")
		require.NoError(t, err)
		assert.True(t, stored.CurrentBalance.Equal(dec(t, "10.00")))
	})

	t.Run("facts read failure counts as failed and continues", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "10.00", "45.00")
		f.seedCustomer(t, "0200000002", "5.00", "25.00")
		f.facts.fail["0100000001"] = assert.AnError

		result, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 2, result.CheckedCustomers)
		assert.Equal(t, 1, result.FailedCustomers)
		assert.Equal(t, 1, result.UpdatedCustomers)
	})

	t.Run("batch limit bounds the run", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "0", "10.00")
		f.seedCustomer(t, "0200000002", "0", "10.00")
		f.seedCustomer(t, "0300000003", "0", "10.00")

		result, err := f.service.Reconcile(ctx, true, 2, tolerance)
		require.NoError(t, err)
		assert.Equal(t, 2, result.CheckedCustomers)

		// deterministic order: the first two tax codes were processed
		first, err := f.customers.FindByTaxCode(ctx, "0100000001")
		require.NoError(t, err)
		assert.NotNil(t, first.LastReconciled)
		third, err := f.customers.FindByTaxCode(ctx, "0300000003")
		require.NoError(t, err)
		assert.Nil(t, third.LastReconciled)
	})

	t.Run("invalid batch size rejected", func(t *testing.T) {
		f := newReconcileFixture()
		var domainErr *shared.DomainError

		_, err := f.service.Reconcile(ctx, true, 0, tolerance)
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidRequest, domainErr.Code)

		_, err = f.service.Reconcile(ctx, true, MaxBatchSize+1, tolerance)
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidRequest, domainErr.Code)
	})

	t.Run("negative tolerance rejected", func(t *testing.T) {
		f := newReconcileFixture()
		var domainErr *shared.DomainError
		_, err := f.service.Reconcile(ctx, true, 10, dec(t, "-0.01"))
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidRequest, domainErr.Code)
	})

	t.Run("cancellation stops between customers", func(t *testing.T) {
		f := newReconcileFixture()
		f.seedCustomer(t, "0100000001", "0", "10.00")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		result, err := f.service.Reconcile(cancelled, true, 100, tolerance)
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, result)
		assert.Equal(t, 0, result.CheckedCustomers)
		assert.Equal(t, 0, f.facts.reads)
	})

	t.Run("last result is retained", func(t *testing.T) {
		f := newReconcileFixture()
		assert.Nil(t, f.service.LastResult())

		f.seedCustomer(t, "0100000001", "0", "10.00")
		_, err := f.service.Reconcile(ctx, true, 100, tolerance)
		require.NoError(t, err)

		last := f.service.LastResult()
		require.NotNil(t, last)
		assert.Equal(t, 1, last.CheckedCustomers)
		assert.True(t, last.ApplyChanges)
	})
}
