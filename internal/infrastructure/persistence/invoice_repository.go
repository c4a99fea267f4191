package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements receivable.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new invoice repository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save inserts or fully updates an invoice without a version check
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *receivable.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock writes with compare-and-swap on expectedVersion. The
// domain mutator already advanced the in-memory version; zero rows
// affected means a concurrent writer got there first.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *receivable.Invoice, expectedVersion int) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, expectedVersion).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID returns the invoice or nil when it does not exist
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// FindOpenByCustomer returns non-void invoices with outstanding > 0 for
// the (seller, customer) pair, ordered for a stable snapshot.
func (r *GormInvoiceRepository) FindOpenByCustomer(ctx context.Context, sellerTaxCode, customerTaxCode string) ([]*receivable.Invoice, error) {
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("seller_tax_code = ? AND customer_tax_code = ?", sellerTaxCode, customerTaxCode).
		Where("status IN ?", []string{string(receivable.DebtStatusOpen), string(receivable.DebtStatusPartial)}).
		Where("outstanding_amount > 0").
		Order("issue_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find open invoices: %w", err)
	}

	invoices := make([]*receivable.Invoice, 0, len(rows))
	for idx := range rows {
		invoices = append(invoices, rows[idx].ToDomain())
	}
	return invoices, nil
}

// List returns invoices matching the filter plus the total count
func (r *GormInvoiceRepository) List(ctx context.Context, filter receivable.DebtFilter) ([]*receivable.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if filter.SellerTaxCode != "" {
		query = query.Where("seller_tax_code = ?", filter.SellerTaxCode)
	}
	if filter.CustomerTaxCode != "" {
		query = query.Where("customer_tax_code = ?", filter.CustomerTaxCode)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.InvoiceModel
	if err := query.Order("issue_date DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]*receivable.Invoice, 0, len(rows))
	for idx := range rows {
		invoices = append(invoices, rows[idx].ToDomain())
	}
	return invoices, total, nil
}

var _ receivable.InvoiceRepository = (*GormInvoiceRepository)(nil)
