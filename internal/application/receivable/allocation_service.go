package receivable

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appperiod "github.com/arledger/backend/internal/application/period"
	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// AllocationService is the allocation engine: it previews allocation
// plans and commits or reverses them under period locking and optimistic
// concurrency. Commit and reverse run inside one transaction scope so all
// touched rows mutate atomically. Post-commit side effects, including
// customer cache invalidation, ride on the published domain events.
type AllocationService struct {
	receipts    receivable.ReceiptRepository
	invoices    receivable.InvoiceRepository
	advances    receivable.AdvanceRepository
	txScope     TransactionScope
	guard       *appperiod.Guard
	maintenance *period.MaintenanceState
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewAllocationService creates the allocation engine service
func NewAllocationService(
	receipts receivable.ReceiptRepository,
	invoices receivable.InvoiceRepository,
	advances receivable.AdvanceRepository,
	txScope TransactionScope,
	guard *appperiod.Guard,
	maintenance *period.MaintenanceState,
	events shared.EventPublisher,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		receipts:    receipts,
		invoices:    invoices,
		advances:    advances,
		txScope:     txScope,
		guard:       guard,
		maintenance: maintenance,
		events:      events,
		logger:      logger,
	}
}

// Preview builds an allocation plan without persisting anything. The plan
// is deterministic for a given snapshot of open debts.
func (s *AllocationService) Preview(ctx context.Context, req PreviewRequest) (*receivable.AllocationPlan, error) {
	amount, err := valueobject.NewNonNegativeMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "preview amount must be positive")
	}
	if !req.Mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid allocation mode: %s", req.Mode))
	}

	strategy, err := receivable.NewAllocationStrategy(req.Priority)
	if err != nil {
		return nil, err
	}

	candidates, err := s.openPayables(ctx, req.SellerTaxCode, req.CustomerTaxCode)
	if err != nil {
		return nil, err
	}
	if req.AppliedPeriodStart != nil {
		eligible := make([]receivable.Payable, 0, len(candidates))
		for _, p := range candidates {
			if !p.GetEffectiveIssueDate().Before(*req.AppliedPeriodStart) {
				eligible = append(eligible, p)
			}
		}
		candidates = eligible
	}

	return strategy.BuildPlan(amount.RoundMinorUnit(), candidates, req.SelectedTargets)
}

// Approve commits an allocation plan on a draft receipt and advances it
// to APPROVED. The plan is re-validated against current store state inside
// the transaction; stale versions surface as CONCURRENCY_CONFLICT.
func (s *AllocationService) Approve(ctx context.Context, req ApproveReceiptRequest) (*receivable.Receipt, *receivable.AllocationPlan, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, nil, err
	}

	receipt, err := s.loadReceipt(ctx, req.ReceiptID, req.Version)
	if err != nil {
		return nil, nil, err
	}
	if receipt.Status != receivable.ReceiptStatusDraft {
		return nil, nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("receipt %s is %s, only drafts can be approved", receipt.ReceiptNumber, receipt.Status))
	}

	strategy, err := receivable.NewAllocationStrategy(receipt.AllocationPriority)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := s.openPayables(ctx, receipt.SellerTaxCode, receipt.CustomerTaxCode)
	if err != nil {
		return nil, nil, err
	}
	plan, err := strategy.BuildPlan(receipt.GetAmountMoney(), candidates, req.SelectedTargets)
	if err != nil {
		return nil, nil, err
	}

	before := snapshotReceipt(receipt)
	override := appperiod.Override{Requested: req.OverridePeriodLock, Reason: req.OverrideReason, Actor: req.Actor}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.guard.Check(ctx, receipt.EffectiveDate, override, repos.Audit); err != nil {
			return err
		}
		for _, line := range plan.Lines {
			if err := s.applyLine(ctx, repos, line, receipt.Currency, req.Actor); err != nil {
				return err
			}
		}
		if err := receipt.Approve(plan); err != nil {
			return err
		}
		if err := repos.Receipts.SaveWithLock(ctx, receipt, req.Version); err != nil {
			return err
		}
		return s.auditEntity(ctx, repos.Audit, audit.ActionReceiptApproved, "Receipt", receipt.ID, before, snapshotReceipt(receipt), req.Actor)
	})
	if err != nil {
		if shared.IsFatal(err) {
			s.logger.Error("allocation commit hit fatal invariant breach",
				zap.String("receipt_id", req.ReceiptID.String()), zap.Error(err))
		}
		return nil, nil, err
	}

	s.finish(ctx, receipt)
	return receipt, plan, nil
}

// Void reverses all allocations of an approved receipt, restoring each
// target's outstanding, and returns what was reversed.
func (s *AllocationService) Void(ctx context.Context, req VoidReceiptRequest) (*VoidReceiptResult, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, err
	}

	receipt, err := s.loadReceipt(ctx, req.ReceiptID, req.Version)
	if err != nil {
		return nil, err
	}
	if receipt.Status != receivable.ReceiptStatusApproved {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("receipt %s is %s, only approved receipts can be voided", receipt.ReceiptNumber, receipt.Status))
	}

	active := receipt.ActiveAllocations()
	before := snapshotReceipt(receipt)
	override := appperiod.Override{Requested: req.OverridePeriodLock, Reason: req.OverrideReason, Actor: req.Actor}

	reversedTotal := decimal.Zero
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.guard.Check(ctx, receipt.EffectiveDate, override, repos.Audit); err != nil {
			return err
		}
		for _, alloc := range active {
			if err := s.reverseLine(ctx, repos, alloc, receipt.Currency, req.Actor); err != nil {
				return err
			}
			reversedTotal = reversedTotal.Add(alloc.Amount)
		}
		if err := receipt.Void(req.Reason); err != nil {
			return err
		}
		if err := repos.Receipts.SaveWithLock(ctx, receipt, req.Version); err != nil {
			return err
		}
		return s.auditEntity(ctx, repos.Audit, audit.ActionReceiptVoided, "Receipt", receipt.ID, before, snapshotReceipt(receipt), req.Actor)
	})
	if err != nil {
		if shared.IsFatal(err) {
			s.logger.Error("allocation reversal hit fatal invariant breach",
				zap.String("receipt_id", req.ReceiptID.String()), zap.Error(err))
		}
		return nil, err
	}

	s.finish(ctx, receipt)
	return &VoidReceiptResult{
		ReceiptID:               receipt.ID,
		ReversedAmount:          reversedTotal,
		ReversedAllocationCount: len(active),
	}, nil
}

// Unvoid re-applies the retained allocation plan of a voided receipt. If
// any target no longer has sufficient outstanding the whole operation
// fails without partial effects.
func (s *AllocationService) Unvoid(ctx context.Context, req UnvoidReceiptRequest) (*receivable.Receipt, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, err
	}

	receipt, err := s.loadReceipt(ctx, req.ReceiptID, req.Version)
	if err != nil {
		return nil, err
	}
	plan, err := receipt.RetainedPlan()
	if err != nil {
		return nil, err
	}

	before := snapshotReceipt(receipt)
	override := appperiod.Override{Requested: req.OverridePeriodLock, Reason: req.OverrideReason, Actor: req.Actor}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.guard.Check(ctx, receipt.EffectiveDate, override, repos.Audit); err != nil {
			return err
		}
		for _, line := range plan.Lines {
			if err := s.applyLine(ctx, repos, line, receipt.Currency, req.Actor); err != nil {
				return err
			}
		}
		if err := receipt.Approve(plan); err != nil {
			return err
		}
		if err := repos.Receipts.SaveWithLock(ctx, receipt, req.Version); err != nil {
			return err
		}
		return s.auditEntity(ctx, repos.Audit, audit.ActionReceiptUnvoided, "Receipt", receipt.ID, before, snapshotReceipt(receipt), req.Actor)
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, receipt)
	return receipt, nil
}

// Cancel discards a draft receipt. Non-financial, so no period guard.
func (s *AllocationService) Cancel(ctx context.Context, receiptID uuid.UUID, version int) (*receivable.Receipt, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, err
	}

	receipt, err := s.loadReceipt(ctx, receiptID, version)
	if err != nil {
		return nil, err
	}
	if err := receipt.Cancel(); err != nil {
		return nil, err
	}
	if err := s.receipts.SaveWithLock(ctx, receipt, version); err != nil {
		return nil, err
	}

	s.finish(ctx, receipt)
	return receipt, nil
}

// applyLine re-fetches the target inside the transaction, re-checks its
// outstanding and writes through compare-and-swap on the version it was
// just read at.
func (s *AllocationService) applyLine(ctx context.Context, repos TransactionalRepositories, line receivable.PlanLine, currency valueobject.Currency, actor string) error {
	target, save, err := loadPayable(ctx, repos, line.TargetType, line.TargetID)
	if err != nil {
		return err
	}

	if target.GetOutstandingMoney().Amount().LessThan(line.Amount) {
		return shared.NewDomainError(shared.CodeInsufficientOutstanding,
			fmt.Sprintf("%s %s outstanding %s is below planned %s",
				line.TargetType, line.TargetID, target.GetOutstandingMoney().Amount(), line.Amount))
	}

	money, err := valueobject.NewMoney(line.Amount, currency)
	if err != nil {
		return err
	}

	expectedVersion := target.GetVersion()
	beforeState := snapshotPayable(target)
	if err := target.ApplyPayment(money); err != nil {
		return err
	}
	if err := save(ctx, expectedVersion); err != nil {
		return err
	}
	return s.auditEntity(ctx, repos.Audit, audit.ActionReceiptApproved, string(line.TargetType), line.TargetID, beforeState, snapshotPayable(target), actor)
}

// reverseLine restores one allocation's amount onto its target. Pushing
// outstanding above total aborts the whole transaction.
func (s *AllocationService) reverseLine(ctx context.Context, repos TransactionalRepositories, alloc receivable.ReceiptAllocation, currency valueobject.Currency, actor string) error {
	target, save, err := loadPayable(ctx, repos, alloc.TargetType, alloc.TargetID)
	if err != nil {
		return err
	}

	money, err := valueobject.NewMoney(alloc.Amount, currency)
	if err != nil {
		return err
	}

	expectedVersion := target.GetVersion()
	beforeState := snapshotPayable(target)
	if err := target.ReversePayment(money); err != nil {
		return err
	}
	if err := save(ctx, expectedVersion); err != nil {
		return err
	}
	return s.auditEntity(ctx, repos.Audit, audit.ActionReceiptVoided, string(alloc.TargetType), alloc.TargetID, beforeState, snapshotPayable(target), actor)
}

// loadPayable resolves the tagged target type to its repository and
// returns the aggregate plus a CAS save bound to the right store.
func loadPayable(ctx context.Context, repos TransactionalRepositories, targetType receivable.TargetType, id uuid.UUID) (receivable.Payable, func(context.Context, int) error, error) {
	switch targetType {
	case receivable.TargetTypeInvoice:
		inv, err := repos.Invoices.FindByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if inv == nil {
			return nil, nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("invoice %s not found", id))
		}
		return inv, func(ctx context.Context, expected int) error {
			return repos.Invoices.SaveWithLock(ctx, inv, expected)
		}, nil
	case receivable.TargetTypeAdvance:
		adv, err := repos.Advances.FindByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if adv == nil {
			return nil, nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("advance %s not found", id))
		}
		return adv, func(ctx context.Context, expected int) error {
			return repos.Advances.SaveWithLock(ctx, adv, expected)
		}, nil
	default:
		return nil, nil, shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid target type: %s", targetType))
	}
}

// openPayables collects the open debt snapshot for a (seller, customer)
// pair: invoices and advances, interleaved for the strategy to order.
func (s *AllocationService) openPayables(ctx context.Context, sellerTaxCode, customerTaxCode string) ([]receivable.Payable, error) {
	if sellerTaxCode == "" || customerTaxCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "seller and customer tax codes are required")
	}

	invoices, err := s.invoices.FindOpenByCustomer(ctx, sellerTaxCode, customerTaxCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load open invoices: %w", err)
	}
	advances, err := s.advances.FindOpenByCustomer(ctx, sellerTaxCode, customerTaxCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load open advances: %w", err)
	}

	payables := make([]receivable.Payable, 0, len(invoices)+len(advances))
	for _, inv := range invoices {
		payables = append(payables, inv)
	}
	for _, adv := range advances {
		payables = append(payables, adv)
	}
	return payables, nil
}

func (s *AllocationService) loadReceipt(ctx context.Context, id uuid.UUID, version int) (*receivable.Receipt, error) {
	receipt, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("receipt %s not found", id))
	}
	if receipt.Version != version {
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("receipt %s is at version %d, caller expected %d", id, receipt.Version, version))
	}
	return receipt, nil
}

func (s *AllocationService) checkMaintenance() error {
	if active, reason := s.maintenance.IsActive(); active {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("maintenance in progress, writes are suspended: %s", reason))
	}
	return nil
}

func (s *AllocationService) auditEntity(ctx context.Context, sink audit.Sink, action, entityType string, entityID uuid.UUID, before, after any, actor string) error {
	entry, err := audit.NewEntry(action, entityType, entityID.String(), before, after, actor)
	if err != nil {
		return fmt.Errorf("failed to build audit entry: %w", err)
	}
	if err := sink.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// finish publishes the receipt's domain events after the transaction
// committed. Subscribers carry the side effects (cache invalidation);
// failures here are logged, never surfaced, because the mutation has
// already committed.
func (s *AllocationService) finish(ctx context.Context, receipt *receivable.Receipt) {
	if events := receipt.GetDomainEvents(); len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("event publication failed", zap.Error(err))
		}
		receipt.ClearDomainEvents()
	}
}

// receiptSnapshot is the audited view of a receipt
type receiptSnapshot struct {
	ReceiptNumber     string          `json:"receipt_number"`
	Status            string          `json:"status"`
	AllocationStatus  string          `json:"allocation_status"`
	Amount            decimal.Decimal `json:"amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	AllocationCount   int             `json:"allocation_count"`
	Version           int             `json:"version"`
}

func snapshotReceipt(r *receivable.Receipt) receiptSnapshot {
	return receiptSnapshot{
		ReceiptNumber:     r.ReceiptNumber,
		Status:            string(r.Status),
		AllocationStatus:  string(r.AllocationStatus),
		Amount:            r.Amount,
		UnallocatedAmount: r.UnallocatedAmount,
		AllocationCount:   len(r.ActiveAllocations()),
		Version:           r.Version,
	}
}

// payableSnapshot is the audited view of a debt record
type payableSnapshot struct {
	TargetType        string          `json:"target_type"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Version           int             `json:"version"`
}

func snapshotPayable(p receivable.Payable) payableSnapshot {
	return payableSnapshot{
		TargetType:        string(p.GetTargetType()),
		OutstandingAmount: p.GetOutstandingMoney().Amount(),
		TotalAmount:       p.GetTotalMoney().Amount(),
		Version:           p.GetVersion(),
	}
}
