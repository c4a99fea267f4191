package receivable

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared"
)

// The in-memory repositories mirror the persistence layer's contract:
// Find returns an independent copy, SaveWithLock compares-and-swaps on
// the version the row is stored at and fails with ErrConcurrencyConflict
// on a mismatch.

func cloneInvoice(i *receivable.Invoice) *receivable.Invoice {
	cp := *i
	return &cp
}

func cloneAdvance(a *receivable.Advance) *receivable.Advance {
	cp := *a
	return &cp
}

func cloneReceipt(r *receivable.Receipt) *receivable.Receipt {
	cp := *r
	cp.Allocations = append([]receivable.ReceiptAllocation(nil), r.Allocations...)
	return &cp
}

type memInvoiceRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*receivable.Invoice
	order []uuid.UUID

	// beforeLockedSave, when set, runs once under the repo lock before the
	// next compare-and-swap so tests can interleave a competing writer.
	beforeLockedSave func()
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{items: make(map[uuid.UUID]*receivable.Invoice)}
}

func (r *memInvoiceRepo) Save(_ context.Context, invoice *receivable.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[invoice.ID]; !ok {
		r.order = append(r.order, invoice.ID)
	}
	r.items[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (r *memInvoiceRepo) SaveWithLock(_ context.Context, invoice *receivable.Invoice, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook := r.beforeLockedSave; hook != nil {
		r.beforeLockedSave = nil
		hook()
	}
	stored, ok := r.items[invoice.ID]
	if !ok || stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.items[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*receivable.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(stored), nil
}

func (r *memInvoiceRepo) FindOpenByCustomer(_ context.Context, sellerTaxCode, customerTaxCode string) ([]*receivable.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []*receivable.Invoice
	for _, id := range r.order {
		inv := r.items[id]
		if inv.SellerTaxCode != sellerTaxCode || inv.CustomerTaxCode != customerTaxCode {
			continue
		}
		if inv.IsVoid() || !inv.OutstandingAmount.IsPositive() {
			continue
		}
		open = append(open, cloneInvoice(inv))
	}
	return open, nil
}

func (r *memInvoiceRepo) List(_ context.Context, filter receivable.DebtFilter) ([]*receivable.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*receivable.Invoice
	for _, id := range r.order {
		inv := r.items[id]
		if filter.CustomerTaxCode != "" && inv.CustomerTaxCode != filter.CustomerTaxCode {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	return out, int64(len(out)), nil
}

type memAdvanceRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*receivable.Advance
	order []uuid.UUID
}

func newMemAdvanceRepo() *memAdvanceRepo {
	return &memAdvanceRepo{items: make(map[uuid.UUID]*receivable.Advance)}
}

func (r *memAdvanceRepo) Save(_ context.Context, advance *receivable.Advance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[advance.ID]; !ok {
		r.order = append(r.order, advance.ID)
	}
	r.items[advance.ID] = cloneAdvance(advance)
	return nil
}

func (r *memAdvanceRepo) SaveWithLock(_ context.Context, advance *receivable.Advance, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[advance.ID]
	if !ok || stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.items[advance.ID] = cloneAdvance(advance)
	return nil
}

func (r *memAdvanceRepo) FindByID(_ context.Context, id uuid.UUID) (*receivable.Advance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneAdvance(stored), nil
}

func (r *memAdvanceRepo) FindOpenByCustomer(_ context.Context, sellerTaxCode, customerTaxCode string) ([]*receivable.Advance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []*receivable.Advance
	for _, id := range r.order {
		adv := r.items[id]
		if adv.SellerTaxCode != sellerTaxCode || adv.CustomerTaxCode != customerTaxCode {
			continue
		}
		if adv.IsVoid() || !adv.OutstandingAmount.IsPositive() {
			continue
		}
		open = append(open, cloneAdvance(adv))
	}
	return open, nil
}

func (r *memAdvanceRepo) List(_ context.Context, filter receivable.DebtFilter) ([]*receivable.Advance, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*receivable.Advance
	for _, id := range r.order {
		adv := r.items[id]
		if filter.CustomerTaxCode != "" && adv.CustomerTaxCode != filter.CustomerTaxCode {
			continue
		}
		if filter.Status != nil && adv.Status != *filter.Status {
			continue
		}
		out = append(out, cloneAdvance(adv))
	}
	return out, int64(len(out)), nil
}

type memReceiptRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*receivable.Receipt
	order []uuid.UUID
}

func newMemReceiptRepo() *memReceiptRepo {
	return &memReceiptRepo{items: make(map[uuid.UUID]*receivable.Receipt)}
}

func (r *memReceiptRepo) Save(_ context.Context, receipt *receivable.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[receipt.ID]; !ok {
		r.order = append(r.order, receipt.ID)
	}
	r.items[receipt.ID] = cloneReceipt(receipt)
	return nil
}

func (r *memReceiptRepo) SaveWithLock(_ context.Context, receipt *receivable.Receipt, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[receipt.ID]
	if !ok || stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.items[receipt.ID] = cloneReceipt(receipt)
	return nil
}

func (r *memReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*receivable.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneReceipt(stored), nil
}

func (r *memReceiptRepo) List(_ context.Context, filter receivable.ReceiptFilter) ([]*receivable.Receipt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*receivable.Receipt
	for _, id := range r.order {
		rec := r.items[id]
		if filter.CustomerTaxCode != "" && rec.CustomerTaxCode != filter.CustomerTaxCode {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		out = append(out, cloneReceipt(rec))
	}
	return out, int64(len(out)), nil
}

type memLockRepo struct {
	mu    sync.Mutex
	locks []*period.PeriodLock
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{}
}

func (r *memLockRepo) Save(_ context.Context, lock *period.PeriodLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.locks {
		if existing.ID == lock.ID {
			r.locks[i] = lock
			return nil
		}
	}
	r.locks = append(r.locks, lock)
	return nil
}

func (r *memLockRepo) FindByID(_ context.Context, id uuid.UUID) (*period.PeriodLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lock := range r.locks {
		if lock.ID == id {
			return lock, nil
		}
	}
	return nil, nil
}

func (r *memLockRepo) FindActive(_ context.Context, periodType period.PeriodType, periodKey string) (*period.PeriodLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lock := range r.locks {
		if lock.Active && lock.PeriodType == periodType && lock.PeriodKey == periodKey {
			return lock, nil
		}
	}
	return nil, nil
}

func (r *memLockRepo) List(_ context.Context, activeOnly bool) ([]*period.PeriodLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*period.PeriodLock
	for _, lock := range r.locks {
		if activeOnly && !lock.Active {
			continue
		}
		out = append(out, lock)
	}
	return out, nil
}

// recordingSink captures audit entries for assertions
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

func (s *recordingSink) countByAction(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, entry := range s.entries {
		if entry.Action == action {
			n++
		}
	}
	return n
}

// recordingPublisher captures published domain events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, event := range p.events {
		types = append(types, event.EventType())
	}
	return types
}
