package receivable

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// Invoice is a debt record created on import or manual entry. It is mutated
// only by the allocation engine (decreasing outstanding) or by void/unvoid;
// it is never physically deleted.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber     string
	SellerTaxCode     string
	CustomerTaxCode   string
	IssueDate         time.Time
	Currency          valueobject.Currency
	TotalAmount       decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            DebtStatus
	VoidedAt          *time.Time
	VoidReason        string
}

// NewInvoice creates a new open invoice with outstanding equal to total
func NewInvoice(invoiceNumber, sellerTaxCode, customerTaxCode string, issueDate time.Time, total valueobject.Money) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "invoice number is required")
	}
	if sellerTaxCode == "" || customerTaxCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "seller and customer tax codes are required")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "invoice total must be positive")
	}
	total = total.RoundMinorUnit()

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		SellerTaxCode:     sellerTaxCode,
		CustomerTaxCode:   customerTaxCode,
		IssueDate:         issueDate,
		Currency:          total.Currency(),
		TotalAmount:       total.Amount(),
		OutstandingAmount: total.Amount(),
		Status:            DebtStatusOpen,
	}
	return inv, nil
}

// GetTargetType identifies the invoice as an allocation target
func (i *Invoice) GetTargetType() TargetType {
	return TargetTypeInvoice
}

// GetEffectiveIssueDate returns the date used for oldest-first ordering
func (i *Invoice) GetEffectiveIssueDate() time.Time {
	return i.IssueDate
}

// GetTotalMoney returns the total amount as Money
func (i *Invoice) GetTotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(i.TotalAmount, i.Currency)
	return m
}

// GetOutstandingMoney returns the outstanding amount as Money
func (i *Invoice) GetOutstandingMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(i.OutstandingAmount, i.Currency)
	return m
}

// IsVoid returns true if the invoice has been soft-voided
func (i *Invoice) IsVoid() bool {
	return i.VoidedAt != nil
}

// ApplyPayment decreases outstanding by amount. The caller supplies an
// amount already rounded at minor-unit precision.
func (i *Invoice) ApplyPayment(amount valueobject.Money) error {
	if i.IsVoid() {
		return shared.NewDomainError(shared.CodeInvalidState, "cannot apply payment to a void invoice")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "payment amount must be positive")
	}
	if amount.Currency() != i.Currency {
		return shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("currency mismatch: invoice is %s, payment is %s", i.Currency, amount.Currency()))
	}
	if amount.Amount().GreaterThan(i.OutstandingAmount) {
		return shared.NewDomainError(shared.CodeInsufficientOutstanding,
			fmt.Sprintf("payment %s exceeds outstanding %s on invoice %s", amount.Amount(), i.OutstandingAmount, i.InvoiceNumber))
	}

	i.OutstandingAmount = i.OutstandingAmount.Sub(amount.Amount())
	i.refreshStatus()
	i.IncrementVersion()
	i.UpdatedAt = time.Now()
	return nil
}

// ReversePayment restores outstanding by amount. Exceeding the total is a
// fatal invariant breach, not a recoverable error.
func (i *Invoice) ReversePayment(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "reversal amount must be positive")
	}
	restored := i.OutstandingAmount.Add(amount.Amount())
	if restored.GreaterThan(i.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvariantViolation,
			fmt.Sprintf("reversal would push outstanding %s above total %s on invoice %s", restored, i.TotalAmount, i.InvoiceNumber))
	}

	i.OutstandingAmount = restored
	i.refreshStatus()
	i.IncrementVersion()
	i.UpdatedAt = time.Now()
	return nil
}

// Void soft-voids the invoice. Voiding is only permitted while no approved
// allocation points at it, i.e. outstanding still equals total.
func (i *Invoice) Void(reason string) error {
	if i.IsVoid() {
		return shared.NewDomainError(shared.CodeInvalidState, "invoice is already void")
	}
	if !i.OutstandingAmount.Equal(i.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvalidState,
			"invoice has approved allocations; void the receipts first")
	}

	now := time.Now()
	i.VoidedAt = &now
	i.VoidReason = reason
	i.refreshStatus()
	i.IncrementVersion()
	i.UpdatedAt = now

	i.AddDomainEvent(NewDebtVoidedEvent(i.ID, TargetTypeInvoice, i.CustomerTaxCode, reason))
	return nil
}

// Unvoid restores a voided invoice to its pre-void state. Because void
// requires outstanding == total, the restored outstanding is the total.
func (i *Invoice) Unvoid() error {
	if !i.IsVoid() {
		return shared.NewDomainError(shared.CodeInvalidState, "invoice is not void")
	}

	i.VoidedAt = nil
	i.VoidReason = ""
	i.OutstandingAmount = i.TotalAmount
	i.refreshStatus()
	i.IncrementVersion()
	i.UpdatedAt = time.Now()
	return nil
}

// CheckInvariant verifies 0 <= outstanding <= total
func (i *Invoice) CheckInvariant() error {
	if i.OutstandingAmount.IsNegative() || i.OutstandingAmount.GreaterThan(i.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvariantViolation,
			fmt.Sprintf("invoice %s outstanding %s out of range [0, %s]", i.InvoiceNumber, i.OutstandingAmount, i.TotalAmount))
	}
	return nil
}

// refreshStatus recomputes the derived status. Status is never assigned
// anywhere else.
func (i *Invoice) refreshStatus() {
	switch {
	case i.VoidedAt != nil:
		i.Status = DebtStatusVoid
	case i.OutstandingAmount.IsZero():
		i.Status = DebtStatusPaid
	case i.OutstandingAmount.LessThan(i.TotalAmount):
		i.Status = DebtStatusPartial
	default:
		i.Status = DebtStatusOpen
	}
}

var _ Payable = (*Invoice)(nil)

// compile-time guard that Invoice stays an aggregate root
var _ shared.AggregateRoot = (*Invoice)(nil)

// ReconstructInvoice rebuilds an invoice from persisted state without
// touching version or events. Used by the persistence layer only.
func ReconstructInvoice(
	id uuid.UUID,
	invoiceNumber, sellerTaxCode, customerTaxCode string,
	issueDate time.Time,
	currency valueobject.Currency,
	total, outstanding decimal.Decimal,
	status DebtStatus,
	voidedAt *time.Time,
	voidReason string,
	version int,
	createdAt, updatedAt time.Time,
) *Invoice {
	return &Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
			Version:    version,
		},
		InvoiceNumber:     invoiceNumber,
		SellerTaxCode:     sellerTaxCode,
		CustomerTaxCode:   customerTaxCode,
		IssueDate:         issueDate,
		Currency:          currency,
		TotalAmount:       total,
		OutstandingAmount: outstanding,
		Status:            status,
		VoidedAt:          voidedAt,
		VoidReason:        voidReason,
	}
}
