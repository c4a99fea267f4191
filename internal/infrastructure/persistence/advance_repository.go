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

// GormAdvanceRepository implements receivable.AdvanceRepository using GORM
type GormAdvanceRepository struct {
	db *gorm.DB
}

// NewGormAdvanceRepository creates a new advance repository
func NewGormAdvanceRepository(db *gorm.DB) *GormAdvanceRepository {
	return &GormAdvanceRepository{db: db}
}

// Save inserts or fully updates an advance without a version check
func (r *GormAdvanceRepository) Save(ctx context.Context, advance *receivable.Advance) error {
	model := models.AdvanceModelFromDomain(advance)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock writes with compare-and-swap on expectedVersion
func (r *GormAdvanceRepository) SaveWithLock(ctx context.Context, advance *receivable.Advance, expectedVersion int) error {
	model := models.AdvanceModelFromDomain(advance)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", advance.ID, expectedVersion).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save advance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID returns the advance or nil when it does not exist
func (r *GormAdvanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*receivable.Advance, error) {
	var model models.AdvanceModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find advance: %w", err)
	}
	return model.ToDomain(), nil
}

// FindOpenByCustomer returns non-void advances with outstanding > 0
func (r *GormAdvanceRepository) FindOpenByCustomer(ctx context.Context, sellerTaxCode, customerTaxCode string) ([]*receivable.Advance, error) {
	var rows []models.AdvanceModel
	err := r.db.WithContext(ctx).
		Where("seller_tax_code = ? AND customer_tax_code = ?", sellerTaxCode, customerTaxCode).
		Where("status IN ?", []string{string(receivable.DebtStatusOpen), string(receivable.DebtStatusPartial)}).
		Where("outstanding_amount > 0").
		Order("advance_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find open advances: %w", err)
	}

	advances := make([]*receivable.Advance, 0, len(rows))
	for idx := range rows {
		advances = append(advances, rows[idx].ToDomain())
	}
	return advances, nil
}

// List returns advances matching the filter plus the total count
func (r *GormAdvanceRepository) List(ctx context.Context, filter receivable.DebtFilter) ([]*receivable.Advance, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdvanceModel{})
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
		return nil, 0, fmt.Errorf("failed to count advances: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.AdvanceModel
	if err := query.Order("advance_date DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list advances: %w", err)
	}

	advances := make([]*receivable.Advance, 0, len(rows))
	for idx := range rows {
		advances = append(advances, rows[idx].ToDomain())
	}
	return advances, total, nil
}

var _ receivable.AdvanceRepository = (*GormAdvanceRepository)(nil)
