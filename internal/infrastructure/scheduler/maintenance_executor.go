package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/application/reconcile"
	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
)

// BalanceReconciler is the slice of the reconciliation service the executor needs
type BalanceReconciler interface {
	Reconcile(ctx context.Context, applyChanges bool, maxItems int, tolerance decimal.Decimal) (*reconcile.Result, error)
}

// MaintenanceExecutorConfig carries the per-job parameters
type MaintenanceExecutorConfig struct {
	ReconcileBatchSize    int
	ReconcileTolerance    decimal.Decimal
	ReconcileApplyChanges bool
	AuditRetentionDays    int
}

// MaintenanceExecutor dispatches queued maintenance jobs to the owning
// service: balance reconciliation and audit log pruning. For the duration
// of a job it holds the maintenance gate so engine writes are rejected
// instead of racing the batch.
type MaintenanceExecutor struct {
	config      MaintenanceExecutorConfig
	reconciler  BalanceReconciler
	retention   audit.Retention
	maintenance *period.MaintenanceState
	logger      *zap.Logger
}

// NewMaintenanceExecutor creates a new executor
func NewMaintenanceExecutor(
	config MaintenanceExecutorConfig,
	reconciler BalanceReconciler,
	retention audit.Retention,
	maintenance *period.MaintenanceState,
	logger *zap.Logger,
) *MaintenanceExecutor {
	return &MaintenanceExecutor{
		config:      config,
		reconciler:  reconciler,
		retention:   retention,
		maintenance: maintenance,
		logger:      logger,
	}
}

// Execute runs one job to completion or error
func (e *MaintenanceExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeBalanceReconciliation:
		e.maintenance.Enter("scheduled balance reconciliation in progress")
		defer e.maintenance.Leave()
		return e.runReconciliation(ctx)
	case JobTypeAuditRetention:
		e.maintenance.Enter("audit log retention in progress")
		defer e.maintenance.Leave()
		return e.runAuditRetention(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobType, job.Type)
	}
}

func (e *MaintenanceExecutor) runReconciliation(ctx context.Context) error {
	result, err := e.reconciler.Reconcile(ctx,
		e.config.ReconcileApplyChanges,
		e.config.ReconcileBatchSize,
		e.config.ReconcileTolerance,
	)
	if err != nil {
		return fmt.Errorf("balance reconciliation failed: %w", err)
	}

	e.logger.Info("balance reconciliation finished",
		zap.Int("checked", result.CheckedCustomers),
		zap.Int("drifted", result.DriftedCustomers),
		zap.Int("updated", result.UpdatedCustomers),
		zap.String("total_absolute_drift", result.TotalAbsoluteDrift.String()),
		zap.String("max_absolute_drift", result.MaxAbsoluteDrift.String()),
	)
	return nil
}

func (e *MaintenanceExecutor) runAuditRetention(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -e.config.AuditRetentionDays)
	deleted, err := e.retention.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("audit retention failed: %w", err)
	}

	e.logger.Info("audit retention finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)
	return nil
}

var _ JobExecutor = (*MaintenanceExecutor)(nil)
