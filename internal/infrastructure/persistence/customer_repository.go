package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository implements partner.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new customer repository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// Save inserts or fully updates a customer without a version check
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock writes with compare-and-swap on expectedVersion
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *partner.Customer, expectedVersion int) error {
	model := models.CustomerModelFromDomain(customer)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", customer.ID, expectedVersion).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByTaxCode returns the customer or nil when it does not exist
func (r *GormCustomerRepository) FindByTaxCode(ctx context.Context, taxCode string) (*partner.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).Where("tax_code = ?", taxCode).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return model.ToDomain(), nil
}

// ListOrdered returns up to limit customers in tax code order, so
// repeated reconciliation batches walk the same deterministic sequence.
func (r *GormCustomerRepository) ListOrdered(ctx context.Context, limit int) ([]*partner.Customer, error) {
	var rows []models.CustomerModel
	query := r.db.WithContext(ctx).Order("tax_code ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	customers := make([]*partner.Customer, 0, len(rows))
	for idx := range rows {
		customers = append(customers, rows[idx].ToDomain())
	}
	return customers, nil
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
