package receivable

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// Advance is a cash-advance obligation. It behaves like an invoice for
// allocation purposes: the advance date plays the role of the issue date.
type Advance struct {
	shared.BaseAggregateRoot
	AdvanceNumber     string
	SellerTaxCode     string
	CustomerTaxCode   string
	AdvanceDate       time.Time
	Currency          valueobject.Currency
	TotalAmount       decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            DebtStatus
	VoidedAt          *time.Time
	VoidReason        string
}

// NewAdvance creates a new open advance with outstanding equal to total
func NewAdvance(advanceNumber, sellerTaxCode, customerTaxCode string, advanceDate time.Time, total valueobject.Money) (*Advance, error) {
	if advanceNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "advance number is required")
	}
	if sellerTaxCode == "" || customerTaxCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "seller and customer tax codes are required")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "advance total must be positive")
	}
	total = total.RoundMinorUnit()

	return &Advance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AdvanceNumber:     advanceNumber,
		SellerTaxCode:     sellerTaxCode,
		CustomerTaxCode:   customerTaxCode,
		AdvanceDate:       advanceDate,
		Currency:          total.Currency(),
		TotalAmount:       total.Amount(),
		OutstandingAmount: total.Amount(),
		Status:            DebtStatusOpen,
	}, nil
}

// GetTargetType identifies the advance as an allocation target
func (a *Advance) GetTargetType() TargetType {
	return TargetTypeAdvance
}

// GetEffectiveIssueDate returns the advance date for oldest-first ordering
func (a *Advance) GetEffectiveIssueDate() time.Time {
	return a.AdvanceDate
}

// GetTotalMoney returns the total amount as Money
func (a *Advance) GetTotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(a.TotalAmount, a.Currency)
	return m
}

// GetOutstandingMoney returns the outstanding amount as Money
func (a *Advance) GetOutstandingMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(a.OutstandingAmount, a.Currency)
	return m
}

// IsVoid returns true if the advance has been soft-voided
func (a *Advance) IsVoid() bool {
	return a.VoidedAt != nil
}

// ApplyPayment decreases outstanding by amount
func (a *Advance) ApplyPayment(amount valueobject.Money) error {
	if a.IsVoid() {
		return shared.NewDomainError(shared.CodeInvalidState, "cannot apply payment to a void advance")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "payment amount must be positive")
	}
	if amount.Currency() != a.Currency {
		return shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("currency mismatch: advance is %s, payment is %s", a.Currency, amount.Currency()))
	}
	if amount.Amount().GreaterThan(a.OutstandingAmount) {
		return shared.NewDomainError(shared.CodeInsufficientOutstanding,
			fmt.Sprintf("payment %s exceeds outstanding %s on advance %s", amount.Amount(), a.OutstandingAmount, a.AdvanceNumber))
	}

	a.OutstandingAmount = a.OutstandingAmount.Sub(amount.Amount())
	a.refreshStatus()
	a.IncrementVersion()
	a.UpdatedAt = time.Now()
	return nil
}

// ReversePayment restores outstanding by amount; overflow is fatal
func (a *Advance) ReversePayment(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "reversal amount must be positive")
	}
	restored := a.OutstandingAmount.Add(amount.Amount())
	if restored.GreaterThan(a.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvariantViolation,
			fmt.Sprintf("reversal would push outstanding %s above total %s on advance %s", restored, a.TotalAmount, a.AdvanceNumber))
	}

	a.OutstandingAmount = restored
	a.refreshStatus()
	a.IncrementVersion()
	a.UpdatedAt = time.Now()
	return nil
}

// Void soft-voids the advance; only permitted with no approved allocations
func (a *Advance) Void(reason string) error {
	if a.IsVoid() {
		return shared.NewDomainError(shared.CodeInvalidState, "advance is already void")
	}
	if !a.OutstandingAmount.Equal(a.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvalidState,
			"advance has approved allocations; void the receipts first")
	}

	now := time.Now()
	a.VoidedAt = &now
	a.VoidReason = reason
	a.refreshStatus()
	a.IncrementVersion()
	a.UpdatedAt = now

	a.AddDomainEvent(NewDebtVoidedEvent(a.ID, TargetTypeAdvance, a.CustomerTaxCode, reason))
	return nil
}

// Unvoid restores a voided advance
func (a *Advance) Unvoid() error {
	if !a.IsVoid() {
		return shared.NewDomainError(shared.CodeInvalidState, "advance is not void")
	}

	a.VoidedAt = nil
	a.VoidReason = ""
	a.OutstandingAmount = a.TotalAmount
	a.refreshStatus()
	a.IncrementVersion()
	a.UpdatedAt = time.Now()
	return nil
}

// CheckInvariant verifies 0 <= outstanding <= total
func (a *Advance) CheckInvariant() error {
	if a.OutstandingAmount.IsNegative() || a.OutstandingAmount.GreaterThan(a.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvariantViolation,
			fmt.Sprintf("advance %s outstanding %s out of range [0, %s]", a.AdvanceNumber, a.OutstandingAmount, a.TotalAmount))
	}
	return nil
}

func (a *Advance) refreshStatus() {
	switch {
	case a.VoidedAt != nil:
		a.Status = DebtStatusVoid
	case a.OutstandingAmount.IsZero():
		a.Status = DebtStatusPaid
	case a.OutstandingAmount.LessThan(a.TotalAmount):
		a.Status = DebtStatusPartial
	default:
		a.Status = DebtStatusOpen
	}
}

var _ Payable = (*Advance)(nil)

// ReconstructAdvance rebuilds an advance from persisted state without
// touching version or events. Used by the persistence layer only.
func ReconstructAdvance(
	id uuid.UUID,
	advanceNumber, sellerTaxCode, customerTaxCode string,
	advanceDate time.Time,
	currency valueobject.Currency,
	total, outstanding decimal.Decimal,
	status DebtStatus,
	voidedAt *time.Time,
	voidReason string,
	version int,
	createdAt, updatedAt time.Time,
) *Advance {
	return &Advance{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
			Version:    version,
		},
		AdvanceNumber:     advanceNumber,
		SellerTaxCode:     sellerTaxCode,
		CustomerTaxCode:   customerTaxCode,
		AdvanceDate:       advanceDate,
		Currency:          currency,
		TotalAmount:       total,
		OutstandingAmount: outstanding,
		Status:            status,
		VoidedAt:          voidedAt,
		VoidReason:        voidReason,
	}
}
