package persistence

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/receivable"
)

// GormBalanceFactsReader aggregates ledger sums per customer straight from the
// debt and receipt tables, bypassing the cached balance on the customer row.
type GormBalanceFactsReader struct {
	db *gorm.DB
}

// NewGormBalanceFactsReader creates a new balance facts reader
func NewGormBalanceFactsReader(db *gorm.DB) *GormBalanceFactsReader {
	return &GormBalanceFactsReader{db: db}
}

func (r *GormBalanceFactsReader) ReadBalanceFacts(ctx context.Context, customerTaxCode string) (partner.BalanceFacts, error) {
	var facts partner.BalanceFacts

	invoiceOutstanding, err := r.sumOutstanding(ctx, "invoices", customerTaxCode)
	if err != nil {
		return facts, fmt.Errorf("failed to sum invoice outstanding: %w", err)
	}

	advanceOutstanding, err := r.sumOutstanding(ctx, "advances", customerTaxCode)
	if err != nil {
		return facts, fmt.Errorf("failed to sum advance outstanding: %w", err)
	}

	var receiptUnallocated decimal.Decimal
	err = r.db.WithContext(ctx).
		Table("receipts").
		Where("customer_tax_code = ? AND status = ?", customerTaxCode, string(receivable.ReceiptStatusApproved)).
		Select("COALESCE(SUM(unallocated_amount), 0)").
		Scan(&receiptUnallocated).Error
	if err != nil {
		return facts, fmt.Errorf("failed to sum receipt unallocated: %w", err)
	}

	facts.InvoiceOutstanding = invoiceOutstanding
	facts.AdvanceOutstanding = advanceOutstanding
	facts.ReceiptUnallocated = receiptUnallocated
	return facts, nil
}

func (r *GormBalanceFactsReader) sumOutstanding(ctx context.Context, table string, taxCode string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Table(table).
		Where("customer_tax_code = ? AND status IN ?", taxCode, []string{
			string(receivable.DebtStatusOpen),
			string(receivable.DebtStatusPartial),
		}).
		Select("COALESCE(SUM(outstanding_amount), 0)").
		Scan(&sum).Error
	return sum, err
}

var _ partner.BalanceFactsReader = (*GormBalanceFactsReader)(nil)
