package period

import (
	"context"

	"github.com/google/uuid"
)

// LockRepository persists period locks
type LockRepository interface {
	Save(ctx context.Context, lock *PeriodLock) error
	FindByID(ctx context.Context, id uuid.UUID) (*PeriodLock, error)
	// FindActive returns the active lock for (periodType, periodKey),
	// or nil when the period is open.
	FindActive(ctx context.Context, periodType PeriodType, periodKey string) (*PeriodLock, error)
	List(ctx context.Context, activeOnly bool) ([]*PeriodLock, error)
}
