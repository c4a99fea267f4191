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

// GormReceiptRepository implements receivable.ReceiptRepository using GORM.
// Allocation lines live in their own table and are replaced wholesale on
// every save, inside the caller's transaction.
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new receipt repository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// Save inserts or fully updates a receipt without a version check
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *receivable.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	allocations := model.Allocations
	model.Allocations = nil

	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return r.replaceAllocations(ctx, receipt.ID, allocations)
}

// SaveWithLock writes with compare-and-swap on expectedVersion and then
// replaces the allocation rows.
func (r *GormReceiptRepository) SaveWithLock(ctx context.Context, receipt *receivable.Receipt, expectedVersion int) error {
	model := models.ReceiptModelFromDomain(receipt)
	allocations := model.Allocations
	model.Allocations = nil

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", receipt.ID, expectedVersion).
		Select("*").
		Omit("Allocations").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save receipt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return r.replaceAllocations(ctx, receipt.ID, allocations)
}

func (r *GormReceiptRepository) replaceAllocations(ctx context.Context, receiptID uuid.UUID, allocations []models.ReceiptAllocationModel) error {
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Delete(&models.ReceiptAllocationModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear receipt allocations: %w", err)
	}
	if len(allocations) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&allocations).Error; err != nil {
		return fmt.Errorf("failed to insert receipt allocations: %w", err)
	}
	return nil
}

// FindByID returns the receipt with its allocation lines, or nil
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.Receipt, error) {
	var model models.ReceiptModel
	err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find receipt: %w", err)
	}
	return model.ToDomain(), nil
}

// List returns receipts matching the filter plus the total count
func (r *GormReceiptRepository) List(ctx context.Context, filter receivable.ReceiptFilter) ([]*receivable.Receipt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReceiptModel{})
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
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.ReceiptModel
	if err := query.Preload("Allocations").Order("effective_date DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list receipts: %w", err)
	}

	receipts := make([]*receivable.Receipt, 0, len(rows))
	for idx := range rows {
		receipts = append(receipts, rows[idx].ToDomain())
	}
	return receipts, total, nil
}

var _ receivable.ReceiptRepository = (*GormReceiptRepository)(nil)
