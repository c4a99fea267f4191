package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/shared"
)

// MaxBatchSize caps how many customers one reconciliation run may touch
const MaxBatchSize = 100

// Result summarizes one reconciliation run. TotalAbsoluteDrift includes
// drifts that were found but not applied.
type Result struct {
	CheckedCustomers   int             `json:"checked_customers"`
	DriftedCustomers   int             `json:"drifted_customers"`
	UpdatedCustomers   int             `json:"updated_customers"`
	FailedCustomers    int             `json:"failed_customers"`
	TotalAbsoluteDrift decimal.Decimal `json:"total_absolute_drift"`
	MaxAbsoluteDrift   decimal.Decimal `json:"max_absolute_drift"`
	ApplyChanges       bool            `json:"apply_changes"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         time.Time       `json:"finished_at"`
}

// Service recomputes each customer's running balance from ledger facts
// and corrects drift beyond a tolerance. Customers are processed
// independently: a conflict or failure on one never aborts the batch.
type Service struct {
	customers partner.CustomerRepository
	facts     partner.BalanceFactsReader
	sink      audit.Sink
	logger    *zap.Logger

	mu         sync.Mutex
	lastResult *Result
}

// NewService creates a reconciliation service
func NewService(customers partner.CustomerRepository, facts partner.BalanceFactsReader, sink audit.Sink, logger *zap.Logger) *Service {
	return &Service{
		customers: customers,
		facts:     facts,
		sink:      sink,
		logger:    logger,
	}
}

// Reconcile checks up to maxItems customers in deterministic tax code
// order. Re-running with applyChanges=true and no intervening mutations
// yields zero drift on the second run.
func (s *Service) Reconcile(ctx context.Context, applyChanges bool, maxItems int, tolerance decimal.Decimal) (*Result, error) {
	if maxItems <= 0 || maxItems > MaxBatchSize {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("maxItems must be between 1 and %d", MaxBatchSize))
	}
	if tolerance.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "tolerance must not be negative")
	}

	result := &Result{
		TotalAbsoluteDrift: decimal.Zero,
		MaxAbsoluteDrift:   decimal.Zero,
		ApplyChanges:       applyChanges,
		StartedAt:          time.Now(),
	}

	customers, err := s.customers.ListOrdered(ctx, maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	for _, customer := range customers {
		// Cooperative cancellation between customers; each customer's
		// update is a single atomic write, so stopping here never leaves
		// a balance half-updated.
		if err := ctx.Err(); err != nil {
			result.FinishedAt = time.Now()
			s.storeResult(result)
			return result, err
		}

		if err := s.reconcileCustomer(ctx, customer, applyChanges, tolerance, result); err != nil {
			result.FailedCustomers++
			s.logger.Warn("customer reconciliation failed",
				zap.String("tax_code", customer.TaxCode), zap.Error(err))
		}
		result.CheckedCustomers++
	}

	result.FinishedAt = time.Now()
	s.storeResult(result)
	s.logger.Info("balance reconciliation finished",
		zap.Int("checked", result.CheckedCustomers),
		zap.Int("drifted", result.DriftedCustomers),
		zap.Int("updated", result.UpdatedCustomers),
		zap.Int("failed", result.FailedCustomers),
		zap.String("total_drift", result.TotalAbsoluteDrift.String()),
		zap.Bool("apply_changes", applyChanges),
	)
	return result, nil
}

func (s *Service) reconcileCustomer(ctx context.Context, customer *partner.Customer, applyChanges bool, tolerance decimal.Decimal, result *Result) error {
	facts, err := s.facts.ReadBalanceFacts(ctx, customer.TaxCode)
	if err != nil {
		return fmt.Errorf("failed to read balance facts: %w", err)
	}

	expected := facts.ExpectedBalance()
	drift := customer.Drift(expected)
	if drift.LessThanOrEqual(tolerance) {
		return nil
	}

	result.DriftedCustomers++
	result.TotalAbsoluteDrift = result.TotalAbsoluteDrift.Add(drift)
	if drift.GreaterThan(result.MaxAbsoluteDrift) {
		result.MaxAbsoluteDrift = drift
	}

	if !applyChanges {
		return nil
	}

	before := customer.CurrentBalance
	expectedVersion := customer.Version
	customer.SettleBalance(expected)
	if err := s.customers.SaveWithLock(ctx, customer, expectedVersion); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.CodeConcurrencyConflict {
			// A concurrent allocation moved this customer; skip and let
			// the next run pick it up.
			s.logger.Debug("skipping customer on version conflict",
				zap.String("tax_code", customer.TaxCode))
			return nil
		}
		return err
	}

	entry, err := audit.NewEntry(audit.ActionBalanceSettled, "Customer", customer.TaxCode,
		map[string]string{"current_balance": before.String()},
		map[string]string{"current_balance": expected.String()},
		"reconciliation")
	if err != nil {
		return err
	}
	if err := s.sink.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to audit balance settlement: %w", err)
	}

	result.UpdatedCustomers++
	return nil
}

// LastResult returns the most recent run's summary, or nil before any run
func (s *Service) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *Service) storeResult(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = result
}
