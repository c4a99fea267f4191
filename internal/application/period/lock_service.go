package period

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/shared"
)

// LockService administers period locks
type LockService struct {
	locks  period.LockRepository
	sink   audit.Sink
	logger *zap.Logger
}

// NewLockService creates a lock service
func NewLockService(locks period.LockRepository, sink audit.Sink, logger *zap.Logger) *LockService {
	return &LockService{locks: locks, sink: sink, logger: logger}
}

// LockPeriod closes a period for mutations
func (s *LockService) LockPeriod(ctx context.Context, periodType period.PeriodType, periodKey, note, actor string) (*period.PeriodLock, error) {
	existing, err := s.locks.FindActive(ctx, periodType, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up period lock: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("period %s (%s) is already locked", periodKey, periodType))
	}

	lock, err := period.NewPeriodLock(periodType, periodKey, actor, note)
	if err != nil {
		return nil, err
	}
	if err := s.locks.Save(ctx, lock); err != nil {
		return nil, fmt.Errorf("failed to save period lock: %w", err)
	}

	entry, err := audit.NewEntry(audit.ActionPeriodLocked, "PeriodLock", lock.ID.String(), nil, lock, actor)
	if err != nil {
		return nil, err
	}
	if err := s.sink.Log(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to audit period lock: %w", err)
	}

	s.logger.Info("period locked",
		zap.String("period_key", periodKey),
		zap.String("period_type", string(periodType)),
		zap.String("actor", actor),
	)
	return lock, nil
}

// UnlockPeriod reopens a locked period; the reason is mandatory
func (s *LockService) UnlockPeriod(ctx context.Context, id uuid.UUID, reason, actor string) (*period.PeriodLock, error) {
	lock, err := s.locks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, shared.ErrNotFound
	}

	before := *lock
	if err := lock.Unlock(reason); err != nil {
		return nil, err
	}
	if err := s.locks.Save(ctx, lock); err != nil {
		return nil, fmt.Errorf("failed to save period unlock: %w", err)
	}

	entry, err := audit.NewEntry(audit.ActionPeriodUnlocked, "PeriodLock", lock.ID.String(), before, lock, actor)
	if err != nil {
		return nil, err
	}
	if err := s.sink.Log(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to audit period unlock: %w", err)
	}

	s.logger.Info("period unlocked",
		zap.String("period_key", lock.PeriodKey),
		zap.String("reason", reason),
		zap.String("actor", actor),
	)
	return lock, nil
}

// ListLocks returns period locks, optionally only active ones
func (s *LockService) ListLocks(ctx context.Context, activeOnly bool) ([]*period.PeriodLock, error) {
	return s.locks.List(ctx, activeOnly)
}
