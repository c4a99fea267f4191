package receivable

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// Event types for the receivable context
const (
	EventTypeReceiptApproved  = "receivable.receipt.approved"
	EventTypeReceiptVoided    = "receivable.receipt.voided"
	EventTypeReceiptCancelled = "receivable.receipt.cancelled"
	EventTypeDebtVoided       = "receivable.debt.voided"
)

// ReceiptApprovedEvent is raised when an allocation plan is committed
type ReceiptApprovedEvent struct {
	shared.BaseDomainEvent
	CustomerTaxCode string          `json:"customer_tax_code"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	AllocationCount int             `json:"allocation_count"`
}

// NewReceiptApprovedEvent creates a new receipt approved event
func NewReceiptApprovedEvent(receiptID uuid.UUID, customerTaxCode string, allocated decimal.Decimal, count int) *ReceiptApprovedEvent {
	return &ReceiptApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptApproved, "Receipt", receiptID),
		CustomerTaxCode: customerTaxCode,
		AllocatedAmount: allocated,
		AllocationCount: count,
	}
}

// ReceiptVoidedEvent is raised when a receipt's allocations are reversed
type ReceiptVoidedEvent struct {
	shared.BaseDomainEvent
	CustomerTaxCode string `json:"customer_tax_code"`
	Reason          string `json:"reason"`
}

// NewReceiptVoidedEvent creates a new receipt voided event
func NewReceiptVoidedEvent(receiptID uuid.UUID, customerTaxCode, reason string) *ReceiptVoidedEvent {
	return &ReceiptVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptVoided, "Receipt", receiptID),
		CustomerTaxCode: customerTaxCode,
		Reason:          reason,
	}
}

// ReceiptCancelledEvent is raised when a draft receipt is discarded
type ReceiptCancelledEvent struct {
	shared.BaseDomainEvent
	CustomerTaxCode string `json:"customer_tax_code"`
}

// NewReceiptCancelledEvent creates a new receipt cancelled event
func NewReceiptCancelledEvent(receiptID uuid.UUID, customerTaxCode string) *ReceiptCancelledEvent {
	return &ReceiptCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptCancelled, "Receipt", receiptID),
		CustomerTaxCode: customerTaxCode,
	}
}

// DebtVoidedEvent is raised when an invoice or advance is soft-voided
type DebtVoidedEvent struct {
	shared.BaseDomainEvent
	TargetType      TargetType `json:"target_type"`
	CustomerTaxCode string     `json:"customer_tax_code"`
	Reason          string     `json:"reason"`
}

// NewDebtVoidedEvent creates a new debt voided event
func NewDebtVoidedEvent(debtID uuid.UUID, targetType TargetType, customerTaxCode, reason string) *DebtVoidedEvent {
	return &DebtVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDebtVoided, string(targetType), debtID),
		TargetType:      targetType,
		CustomerTaxCode: customerTaxCode,
		Reason:          reason,
	}
}
