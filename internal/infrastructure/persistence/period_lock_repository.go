package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormLockRepository implements period.LockRepository using GORM
type GormLockRepository struct {
	db *gorm.DB
}

// NewGormLockRepository creates a new period lock repository
func NewGormLockRepository(db *gorm.DB) *GormLockRepository {
	return &GormLockRepository{db: db}
}

func (r *GormLockRepository) Save(ctx context.Context, lock *period.PeriodLock) error {
	model := models.PeriodLockModelFromDomain(lock)
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *GormLockRepository) FindByID(ctx context.Context, id uuid.UUID) (*period.PeriodLock, error) {
	var model models.PeriodLockModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find period lock: %w", err)
	}
	return model.ToDomain(), nil
}

// FindActive returns the active lock for the given period, or nil when the
// period is open.
func (r *GormLockRepository) FindActive(ctx context.Context, periodType period.PeriodType, periodKey string) (*period.PeriodLock, error) {
	var model models.PeriodLockModel
	err := r.db.WithContext(ctx).
		Where("period_type = ? AND period_key = ? AND active = ?", string(periodType), periodKey, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active period lock: %w", err)
	}
	return model.ToDomain(), nil
}

func (r *GormLockRepository) List(ctx context.Context, activeOnly bool) ([]*period.PeriodLock, error) {
	query := r.db.WithContext(ctx).Order("locked_at DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var rows []models.PeriodLockModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list period locks: %w", err)
	}

	locks := make([]*period.PeriodLock, 0, len(rows))
	for idx := range rows {
		locks = append(locks, rows[idx].ToDomain())
	}
	return locks, nil
}

var _ period.LockRepository = (*GormLockRepository)(nil)
