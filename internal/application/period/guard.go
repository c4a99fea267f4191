package period

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/shared"
)

// Override is the caller's request to push through a locked period.
// An applied override is audited, never persisted as lock state.
type Override struct {
	Requested bool
	Reason    string
	Actor     string
}

// Guard decides whether a mutation with the given effective date may
// proceed. The caller passes the audit sink bound to its own transaction,
// so the OverrideApplied entry commits or rolls back with the mutation.
type Guard struct {
	locks  period.LockRepository
	logger *zap.Logger
}

// NewGuard creates a period lock guard
func NewGuard(locks period.LockRepository, logger *zap.Logger) *Guard {
	return &Guard{locks: locks, logger: logger}
}

// Check consults the lock store for the coarsest period covering the
// effective date. Absence of a lock is Allowed. A hit is converted to
// Allowed only by an override with a non-blank reason; a blank reason on a
// hit is a hard failure, never silently ignored.
func (g *Guard) Check(ctx context.Context, effectiveDate time.Time, override Override, sink audit.Sink) error {
	for _, periodType := range period.CoarsestFirst {
		key, err := period.KeyFor(periodType, effectiveDate)
		if err != nil {
			return err
		}

		lock, err := g.locks.FindActive(ctx, periodType, key)
		if err != nil {
			return fmt.Errorf("failed to look up period lock %s/%s: %w", periodType, key, err)
		}
		if lock == nil {
			continue
		}

		if !override.Requested {
			return shared.NewDomainError(shared.CodePeriodLocked,
				fmt.Sprintf("period %s (%s) is locked", key, periodType))
		}
		if strings.TrimSpace(override.Reason) == "" {
			return shared.NewDomainError(shared.CodeInvalidRequest,
				fmt.Sprintf("override of locked period %s requires a reason", key))
		}

		entry, err := audit.NewEntry(audit.ActionOverrideApplied, "PeriodLock", lock.ID.String(),
			nil,
			map[string]string{"period_key": key, "period_type": string(periodType), "reason": override.Reason},
			override.Actor)
		if err != nil {
			return fmt.Errorf("failed to build override audit entry: %w", err)
		}
		if err := sink.Log(ctx, entry); err != nil {
			return fmt.Errorf("failed to record period lock override: %w", err)
		}

		g.logger.Warn("period lock overridden",
			zap.String("period_key", key),
			zap.String("period_type", string(periodType)),
			zap.String("actor", override.Actor),
			zap.String("reason", override.Reason),
		)
		return nil
	}
	return nil
}
