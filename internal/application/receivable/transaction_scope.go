package receivable

import (
	"context"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/receivable"
)

// TransactionalRepositories are the repositories bound to one transaction.
// Everything written through them commits or rolls back as a unit,
// including the audit entries.
type TransactionalRepositories struct {
	Invoices receivable.InvoiceRepository
	Advances receivable.AdvanceRepository
	Receipts receivable.ReceiptRepository
	Audit    audit.Sink
}

// TransactionScope runs a function inside one logical transaction.
// Allocation commit and reverse are the only operations that need it:
// all touched rows mutate as one atomic unit, partial application is a
// correctness violation.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// NoOpTransactionScope passes through to plain repositories without a
// transaction boundary. Used in tests with in-memory stores.
type NoOpTransactionScope struct {
	Repos TransactionalRepositories
}

// Execute runs fn against the configured repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.Repos)
}
