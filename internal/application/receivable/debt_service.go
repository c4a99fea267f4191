package receivable

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appperiod "github.com/arledger/backend/internal/application/period"
	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// DebtService records debt and receipt documents and handles the
// void/unvoid lifecycle of invoices and advances. Allocation itself is
// the AllocationService's job; this service never touches outstanding
// amounts except through the domain void policy.
type DebtService struct {
	invoices    receivable.InvoiceRepository
	advances    receivable.AdvanceRepository
	receipts    receivable.ReceiptRepository
	guard       *appperiod.Guard
	maintenance *period.MaintenanceState
	sink        audit.Sink
	invalidator CacheInvalidator
	logger      *zap.Logger
}

// NewDebtService creates a debt record service
func NewDebtService(
	invoices receivable.InvoiceRepository,
	advances receivable.AdvanceRepository,
	receipts receivable.ReceiptRepository,
	guard *appperiod.Guard,
	maintenance *period.MaintenanceState,
	sink audit.Sink,
	invalidator CacheInvalidator,
	logger *zap.Logger,
) *DebtService {
	return &DebtService{
		invoices:    invoices,
		advances:    advances,
		receipts:    receipts,
		guard:       guard,
		maintenance: maintenance,
		sink:        sink,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateInvoice records a new open invoice
func (s *DebtService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*receivable.Invoice, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, err
	}

	total, err := valueobject.NewNonNegativeMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	invoice, err := receivable.NewInvoice(req.InvoiceNumber, req.SellerTaxCode, req.CustomerTaxCode, req.IssueDate, total)
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.invalidate(ctx, invoice.CustomerTaxCode)
	return invoice, nil
}

// CreateAdvance records a new open advance
func (s *DebtService) CreateAdvance(ctx context.Context, req CreateAdvanceRequest) (*receivable.Advance, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, err
	}

	total, err := valueobject.NewNonNegativeMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	advance, err := receivable.NewAdvance(req.AdvanceNumber, req.SellerTaxCode, req.CustomerTaxCode, req.AdvanceDate, total)
	if err != nil {
		return nil, err
	}
	if err := s.advances.Save(ctx, advance); err != nil {
		return nil, fmt.Errorf("failed to save advance: %w", err)
	}

	s.invalidate(ctx, advance.CustomerTaxCode)
	return advance, nil
}

// CreateReceipt records a draft receipt with nothing allocated
func (s *DebtService) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*receivable.Receipt, error) {
	if err := s.checkMaintenance(); err != nil {
		return nil, err
	}

	amount, err := valueobject.NewNonNegativeMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}
	receipt, err := receivable.NewReceipt(req.ReceiptNumber, req.SellerTaxCode, req.CustomerTaxCode, amount, req.Mode, req.Priority, req.EffectiveDate)
	if err != nil {
		return nil, err
	}
	if err := s.receipts.Save(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	return receipt, nil
}

// GetInvoice loads one invoice
func (s *DebtService) GetInvoice(ctx context.Context, id uuid.UUID) (*receivable.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("invoice %s not found", id))
	}
	return invoice, nil
}

// GetAdvance loads one advance
func (s *DebtService) GetAdvance(ctx context.Context, id uuid.UUID) (*receivable.Advance, error) {
	advance, err := s.advances.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if advance == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("advance %s not found", id))
	}
	return advance, nil
}

// GetReceipt loads one receipt with its allocation lines
func (s *DebtService) GetReceipt(ctx context.Context, id uuid.UUID) (*receivable.Receipt, error) {
	receipt, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("receipt %s not found", id))
	}
	return receipt, nil
}

// ListInvoices returns invoices matching the filter
func (s *DebtService) ListInvoices(ctx context.Context, filter receivable.DebtFilter) ([]*receivable.Invoice, int64, error) {
	return s.invoices.List(ctx, filter)
}

// ListAdvances returns advances matching the filter
func (s *DebtService) ListAdvances(ctx context.Context, filter receivable.DebtFilter) ([]*receivable.Advance, int64, error) {
	return s.advances.List(ctx, filter)
}

// ListReceipts returns receipts matching the filter
func (s *DebtService) ListReceipts(ctx context.Context, filter receivable.ReceiptFilter) ([]*receivable.Receipt, int64, error) {
	return s.receipts.List(ctx, filter)
}

// VoidDebt soft-voids an invoice or advance. Only permitted while no
// approved allocation points at the record.
func (s *DebtService) VoidDebt(ctx context.Context, req VoidDebtRequest) error {
	if err := s.checkMaintenance(); err != nil {
		return err
	}

	override := appperiod.Override{Requested: req.OverridePeriodLock, Reason: req.OverrideReason, Actor: req.Actor}

	switch req.TargetType {
	case receivable.TargetTypeInvoice:
		invoice, err := s.GetInvoice(ctx, req.TargetID)
		if err != nil {
			return err
		}
		if invoice.Version != req.Version {
			return shared.ErrConcurrencyConflict
		}
		if err := s.guard.Check(ctx, invoice.IssueDate, override, s.sink); err != nil {
			return err
		}
		before := snapshotPayable(invoice)
		if err := invoice.Void(req.Reason); err != nil {
			return err
		}
		if err := s.invoices.SaveWithLock(ctx, invoice, req.Version); err != nil {
			return err
		}
		if err := s.auditDebt(ctx, audit.ActionDebtVoided, invoice, before, req.Actor); err != nil {
			return err
		}
		s.invalidate(ctx, invoice.CustomerTaxCode)
		return nil
	case receivable.TargetTypeAdvance:
		advance, err := s.GetAdvance(ctx, req.TargetID)
		if err != nil {
			return err
		}
		if advance.Version != req.Version {
			return shared.ErrConcurrencyConflict
		}
		if err := s.guard.Check(ctx, advance.AdvanceDate, override, s.sink); err != nil {
			return err
		}
		before := snapshotPayable(advance)
		if err := advance.Void(req.Reason); err != nil {
			return err
		}
		if err := s.advances.SaveWithLock(ctx, advance, req.Version); err != nil {
			return err
		}
		if err := s.auditDebt(ctx, audit.ActionDebtVoided, advance, before, req.Actor); err != nil {
			return err
		}
		s.invalidate(ctx, advance.CustomerTaxCode)
		return nil
	default:
		return shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid target type: %s", req.TargetType))
	}
}

// UnvoidDebt restores a voided invoice or advance
func (s *DebtService) UnvoidDebt(ctx context.Context, req UnvoidDebtRequest) error {
	if err := s.checkMaintenance(); err != nil {
		return err
	}

	override := appperiod.Override{Requested: req.OverridePeriodLock, Reason: req.OverrideReason, Actor: req.Actor}

	switch req.TargetType {
	case receivable.TargetTypeInvoice:
		invoice, err := s.GetInvoice(ctx, req.TargetID)
		if err != nil {
			return err
		}
		if invoice.Version != req.Version {
			return shared.ErrConcurrencyConflict
		}
		if err := s.guard.Check(ctx, invoice.IssueDate, override, s.sink); err != nil {
			return err
		}
		before := snapshotPayable(invoice)
		if err := invoice.Unvoid(); err != nil {
			return err
		}
		if err := s.invoices.SaveWithLock(ctx, invoice, req.Version); err != nil {
			return err
		}
		if err := s.auditDebt(ctx, audit.ActionDebtUnvoided, invoice, before, req.Actor); err != nil {
			return err
		}
		s.invalidate(ctx, invoice.CustomerTaxCode)
		return nil
	case receivable.TargetTypeAdvance:
		advance, err := s.GetAdvance(ctx, req.TargetID)
		if err != nil {
			return err
		}
		if advance.Version != req.Version {
			return shared.ErrConcurrencyConflict
		}
		if err := s.guard.Check(ctx, advance.AdvanceDate, override, s.sink); err != nil {
			return err
		}
		before := snapshotPayable(advance)
		if err := advance.Unvoid(); err != nil {
			return err
		}
		if err := s.advances.SaveWithLock(ctx, advance, req.Version); err != nil {
			return err
		}
		if err := s.auditDebt(ctx, audit.ActionDebtUnvoided, advance, before, req.Actor); err != nil {
			return err
		}
		s.invalidate(ctx, advance.CustomerTaxCode)
		return nil
	default:
		return shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid target type: %s", req.TargetType))
	}
}

func (s *DebtService) auditDebt(ctx context.Context, action string, target receivable.Payable, before payableSnapshot, actor string) error {
	entry, err := audit.NewEntry(action, string(target.GetTargetType()), target.GetID().String(), before, snapshotPayable(target), actor)
	if err != nil {
		return fmt.Errorf("failed to build audit entry: %w", err)
	}
	if err := s.sink.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (s *DebtService) checkMaintenance() error {
	if active, reason := s.maintenance.IsActive(); active {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("maintenance in progress, writes are suspended: %s", reason))
	}
	return nil
}

func (s *DebtService) invalidate(ctx context.Context, customerTaxCode string) {
	if err := s.invalidator.InvalidateCustomer(ctx, customerTaxCode); err != nil {
		s.logger.Warn("cache invalidation failed",
			zap.String("customer_tax_code", customerTaxCode), zap.Error(err))
	}
}
