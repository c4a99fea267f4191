package receivable

import (
	"context"

	"github.com/google/uuid"
)

// DebtFilter narrows debt record listings
type DebtFilter struct {
	SellerTaxCode   string
	CustomerTaxCode string
	Status          *DebtStatus
	Limit           int
	Offset          int
}

// ReceiptFilter narrows receipt listings
type ReceiptFilter struct {
	SellerTaxCode   string
	CustomerTaxCode string
	Status          *ReceiptStatus
	Limit           int
	Offset          int
}

// InvoiceRepository persists invoice debt records
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock writes with compare-and-swap on the version the caller
	// read; zero rows affected means a concurrent writer won.
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindOpenByCustomer returns non-void invoices with outstanding > 0
	FindOpenByCustomer(ctx context.Context, sellerTaxCode, customerTaxCode string) ([]*Invoice, error)
	List(ctx context.Context, filter DebtFilter) ([]*Invoice, int64, error)
}

// AdvanceRepository persists advance debt records
type AdvanceRepository interface {
	Save(ctx context.Context, advance *Advance) error
	SaveWithLock(ctx context.Context, advance *Advance, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*Advance, error)
	FindOpenByCustomer(ctx context.Context, sellerTaxCode, customerTaxCode string) ([]*Advance, error)
	List(ctx context.Context, filter DebtFilter) ([]*Advance, int64, error)
}

// ReceiptRepository persists receipts together with their allocation lines
type ReceiptRepository interface {
	Save(ctx context.Context, receipt *Receipt) error
	SaveWithLock(ctx context.Context, receipt *Receipt, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	List(ctx context.Context, filter ReceiptFilter) ([]*Receipt, int64, error)
}
