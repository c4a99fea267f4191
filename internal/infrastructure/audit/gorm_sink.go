package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormSink persists audit entries through GORM. Constructed from either the
// root database handle or a transaction handle, so entries written during an
// allocation commit share that commit's fate.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink creates an audit sink bound to the given handle
func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

// Log writes a single entry. A failed write fails the caller's operation.
func (s *GormSink) Log(ctx context.Context, entry audit.Entry) error {
	model := &models.AuditEntryModel{
		ID:         entry.ID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Before:     entry.Before,
		After:      entry.After,
		Actor:      entry.Actor,
		OccurredAt: entry.OccurredAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries that occurred before cutoff and reports
// how many rows were deleted.
func (s *GormSink) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&models.AuditEntryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

var (
	_ audit.Sink      = (*GormSink)(nil)
	_ audit.Retention = (*GormSink)(nil)
)
