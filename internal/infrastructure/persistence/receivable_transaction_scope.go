package persistence

import (
	"context"

	"gorm.io/gorm"

	appreceivable "github.com/arledger/backend/internal/application/receivable"
	infraaudit "github.com/arledger/backend/internal/infrastructure/audit"
)

// GormTransactionScope runs allocation commits and reversals inside one
// database transaction. All repositories handed to the callback are bound to
// that transaction, the audit sink included.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a transaction scope over the database
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute opens a transaction, builds transaction-bound repositories and runs
// fn. Any error rolls everything back, including audit entries.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreceivable.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(appreceivable.TransactionalRepositories{
			Invoices: NewGormInvoiceRepository(tx),
			Advances: NewGormAdvanceRepository(tx),
			Receipts: NewGormReceiptRepository(tx),
			Audit:    infraaudit.NewGormSink(tx),
		})
	})
}

var _ appreceivable.TransactionScope = (*GormTransactionScope)(nil)
