package partner

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceFacts are the ledger sums a customer balance is derived from:
// expected = open invoice outstanding + open advance outstanding
//   - approved receipt unallocated
type BalanceFacts struct {
	InvoiceOutstanding decimal.Decimal
	AdvanceOutstanding decimal.Decimal
	ReceiptUnallocated decimal.Decimal
}

// ExpectedBalance computes the balance the cache must reproduce
func (f BalanceFacts) ExpectedBalance() decimal.Decimal {
	return f.InvoiceOutstanding.Add(f.AdvanceOutstanding).Sub(f.ReceiptUnallocated)
}

// CustomerRepository persists customer balance caches
type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error
	// SaveWithLock writes with compare-and-swap on the version the caller
	// read; zero rows affected means a concurrent writer won.
	SaveWithLock(ctx context.Context, customer *Customer, expectedVersion int) error
	FindByTaxCode(ctx context.Context, taxCode string) (*Customer, error)
	// ListOrdered returns up to limit customers in deterministic tax code
	// order, so repeated reconciliation batches cover the same set.
	ListOrdered(ctx context.Context, limit int) ([]*Customer, error)
}

// BalanceFactsReader aggregates ledger facts per customer
type BalanceFactsReader interface {
	ReadBalanceFacts(ctx context.Context, customerTaxCode string) (BalanceFacts, error)
}
