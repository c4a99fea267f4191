package receivable

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// ReceiptStatus represents the lifecycle state of a receipt
type ReceiptStatus string

const (
	ReceiptStatusDraft     ReceiptStatus = "DRAFT"     // Created, no financial effect yet
	ReceiptStatusApproved  ReceiptStatus = "APPROVED"  // Allocation plan committed
	ReceiptStatusVoid      ReceiptStatus = "VOID"      // Allocations reversed, can be unvoided
	ReceiptStatusCancelled ReceiptStatus = "CANCELLED" // Draft discarded, terminal
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusDraft, ReceiptStatusApproved, ReceiptStatusVoid, ReceiptStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusCancelled
}

// AllocationMode distinguishes automatic from manual distribution
type AllocationMode string

const (
	AllocationModeAuto   AllocationMode = "AUTO"
	AllocationModeManual AllocationMode = "MANUAL"
)

// IsValid checks if the allocation mode is valid
func (m AllocationMode) IsValid() bool {
	return m == AllocationModeAuto || m == AllocationModeManual
}

// AllocationPriority selects the plan-building rule
type AllocationPriority string

const (
	AllocationPriorityIssueDate       AllocationPriority = "ISSUE_DATE"
	AllocationPriorityManualSelection AllocationPriority = "MANUAL_SELECTION"
)

// IsValid checks if the allocation priority is valid
func (p AllocationPriority) IsValid() bool {
	return p == AllocationPriorityIssueDate || p == AllocationPriorityManualSelection
}

// AllocationStatus summarizes how much of the receipt is allocated
type AllocationStatus string

const (
	AllocationStatusUnallocated AllocationStatus = "UNALLOCATED"
	AllocationStatusPartial     AllocationStatus = "PARTIAL"
	AllocationStatusAllocated   AllocationStatus = "ALLOCATED"
)

// ReceiptAllocation is a monetary link from a receipt to one debt record.
// Reversed lines are retained so an unvoid can re-apply the same plan.
type ReceiptAllocation struct {
	ID         uuid.UUID
	ReceiptID  uuid.UUID
	TargetType TargetType
	TargetID   uuid.UUID
	Amount     decimal.Decimal
	Reversed   bool
	CreatedAt  time.Time
}

// Receipt is a payment record. Created in DRAFT, it gains financial effect
// only when an allocation plan is committed on approve.
type Receipt struct {
	shared.BaseAggregateRoot
	ReceiptNumber      string
	SellerTaxCode      string
	CustomerTaxCode    string
	Currency           valueobject.Currency
	Amount             decimal.Decimal
	UnallocatedAmount  decimal.Decimal
	AllocationMode     AllocationMode
	AllocationPriority AllocationPriority
	AllocationStatus   AllocationStatus
	Status             ReceiptStatus
	EffectiveDate      time.Time
	VoidReason         string
	VoidedAt           *time.Time
	Allocations        []ReceiptAllocation
}

// NewReceipt creates a draft receipt with nothing allocated
func NewReceipt(receiptNumber, sellerTaxCode, customerTaxCode string, amount valueobject.Money, mode AllocationMode, priority AllocationPriority, effectiveDate time.Time) (*Receipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "receipt number is required")
	}
	if sellerTaxCode == "" || customerTaxCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "seller and customer tax codes are required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "receipt amount must be positive")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid allocation mode: %s", mode))
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid allocation priority: %s", priority))
	}
	amount = amount.RoundMinorUnit()

	return &Receipt{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		ReceiptNumber:      receiptNumber,
		SellerTaxCode:      sellerTaxCode,
		CustomerTaxCode:    customerTaxCode,
		Currency:           amount.Currency(),
		Amount:             amount.Amount(),
		UnallocatedAmount:  amount.Amount(),
		AllocationMode:     mode,
		AllocationPriority: priority,
		AllocationStatus:   AllocationStatusUnallocated,
		Status:             ReceiptStatusDraft,
		EffectiveDate:      effectiveDate,
	}, nil
}

// GetAmountMoney returns the receipt amount as Money
func (r *Receipt) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.Amount, r.Currency)
	return m
}

// GetUnallocatedMoney returns the unallocated amount as Money
func (r *Receipt) GetUnallocatedMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.UnallocatedAmount, r.Currency)
	return m
}

// ActiveAllocations returns the non-reversed allocation lines
func (r *Receipt) ActiveAllocations() []ReceiptAllocation {
	active := make([]ReceiptAllocation, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		if !a.Reversed {
			active = append(active, a)
		}
	}
	return active
}

// allocatedTotal sums the non-reversed allocation amounts
func (r *Receipt) allocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Allocations {
		if !a.Reversed {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// CheckConservation verifies the standing invariant
// sum(active allocations) == amount - unallocated
func (r *Receipt) CheckConservation() error {
	if !r.allocatedTotal().Equal(r.Amount.Sub(r.UnallocatedAmount)) {
		return shared.NewDomainError(shared.CodeInvariantViolation,
			fmt.Sprintf("receipt %s allocation sum %s != amount %s - unallocated %s",
				r.ReceiptNumber, r.allocatedTotal(), r.Amount, r.UnallocatedAmount))
	}
	return nil
}

// Approve commits an allocation plan and advances the receipt to APPROVED.
// Plan lines are written in the deterministic order the strategy fixed.
func (r *Receipt) Approve(plan *AllocationPlan) error {
	if r.Status != ReceiptStatusDraft && r.Status != ReceiptStatusVoid {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("receipt %s cannot be approved from status %s", r.ReceiptNumber, r.Status))
	}
	if plan == nil {
		return shared.NewDomainError(shared.CodeInvalidRequest, "allocation plan is required")
	}

	allocated := decimal.Zero
	allocations := make([]ReceiptAllocation, 0, len(plan.Lines))
	now := time.Now()
	for _, line := range plan.Lines {
		if !line.Amount.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidRequest, "plan lines must carry positive amounts")
		}
		allocated = allocated.Add(line.Amount)
		allocations = append(allocations, ReceiptAllocation{
			ID:         uuid.New(),
			ReceiptID:  r.ID,
			TargetType: line.TargetType,
			TargetID:   line.TargetID,
			Amount:     line.Amount,
			CreatedAt:  now,
		})
	}
	if allocated.GreaterThan(r.Amount) {
		return shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("plan total %s exceeds receipt amount %s", allocated, r.Amount))
	}

	r.Allocations = allocations
	r.UnallocatedAmount = r.Amount.Sub(allocated)
	r.refreshAllocationStatus()
	r.Status = ReceiptStatusApproved
	r.VoidedAt = nil
	r.VoidReason = ""
	r.IncrementVersion()
	r.UpdatedAt = now

	r.AddDomainEvent(NewReceiptApprovedEvent(r.ID, r.CustomerTaxCode, allocated, len(allocations)))
	return r.CheckConservation()
}

// Void reverses the financial effect of the receipt. Allocation lines are
// marked reversed rather than deleted so Unvoid can re-apply them.
func (r *Receipt) Void(reason string) error {
	if r.Status != ReceiptStatusApproved {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("receipt %s cannot be voided from status %s", r.ReceiptNumber, r.Status))
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidRequest, "void reason is required")
	}

	now := time.Now()
	for idx := range r.Allocations {
		r.Allocations[idx].Reversed = true
	}
	r.UnallocatedAmount = r.Amount
	r.AllocationStatus = AllocationStatusUnallocated
	r.Status = ReceiptStatusVoid
	r.VoidReason = reason
	r.VoidedAt = &now
	r.IncrementVersion()
	r.UpdatedAt = now

	r.AddDomainEvent(NewReceiptVoidedEvent(r.ID, r.CustomerTaxCode, reason))
	return r.CheckConservation()
}

// RetainedPlan rebuilds the allocation plan from the reversed lines of a
// voided receipt, in their original order.
func (r *Receipt) RetainedPlan() (*AllocationPlan, error) {
	if r.Status != ReceiptStatusVoid {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "receipt is not void")
	}
	lines := make([]PlanLine, 0, len(r.Allocations))
	total := decimal.Zero
	for _, a := range r.Allocations {
		lines = append(lines, PlanLine{TargetType: a.TargetType, TargetID: a.TargetID, Amount: a.Amount})
		total = total.Add(a.Amount)
	}
	return &AllocationPlan{
		Lines:             lines,
		UnallocatedAmount: r.Amount.Sub(total),
		Currency:          r.Currency,
	}, nil
}

// Cancel discards a draft that never touched any allocation. This is a
// non-financial terminal path, distinct from void.
func (r *Receipt) Cancel() error {
	if r.Status != ReceiptStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("only draft receipts can be cancelled, receipt %s is %s", r.ReceiptNumber, r.Status))
	}
	if len(r.Allocations) > 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "receipt has allocation history and cannot be cancelled")
	}

	r.Status = ReceiptStatusCancelled
	r.IncrementVersion()
	r.UpdatedAt = time.Now()

	r.AddDomainEvent(NewReceiptCancelledEvent(r.ID, r.CustomerTaxCode))
	return nil
}

func (r *Receipt) refreshAllocationStatus() {
	switch {
	case r.UnallocatedAmount.Equal(r.Amount):
		r.AllocationStatus = AllocationStatusUnallocated
	case r.UnallocatedAmount.IsZero():
		r.AllocationStatus = AllocationStatusAllocated
	default:
		r.AllocationStatus = AllocationStatusPartial
	}
}

// ReconstructReceipt rebuilds a receipt from persisted state without
// touching version or events. Used by the persistence layer only.
func ReconstructReceipt(
	id uuid.UUID,
	receiptNumber, sellerTaxCode, customerTaxCode string,
	currency valueobject.Currency,
	amount, unallocated decimal.Decimal,
	mode AllocationMode,
	priority AllocationPriority,
	allocationStatus AllocationStatus,
	status ReceiptStatus,
	effectiveDate time.Time,
	voidReason string,
	voidedAt *time.Time,
	allocations []ReceiptAllocation,
	version int,
	createdAt, updatedAt time.Time,
) *Receipt {
	return &Receipt{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
			Version:    version,
		},
		ReceiptNumber:      receiptNumber,
		SellerTaxCode:      sellerTaxCode,
		CustomerTaxCode:    customerTaxCode,
		Currency:           currency,
		Amount:             amount,
		UnallocatedAmount:  unallocated,
		AllocationMode:     mode,
		AllocationPriority: priority,
		AllocationStatus:   allocationStatus,
		Status:             status,
		EffectiveDate:      effectiveDate,
		VoidReason:         voidReason,
		VoidedAt:           voidedAt,
		Allocations:        allocations,
	}
}
