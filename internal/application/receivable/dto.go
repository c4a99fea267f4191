package receivable

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// PreviewRequest asks for an allocation plan without persisting anything.
// AppliedPeriodStart, when set, restricts candidates to debts dated on or
// after it.
type PreviewRequest struct {
	SellerTaxCode      string
	CustomerTaxCode    string
	Amount             decimal.Decimal
	Currency           valueobject.Currency
	Mode               receivable.AllocationMode
	Priority           receivable.AllocationPriority
	AppliedPeriodStart *time.Time
	SelectedTargets    []receivable.SelectedTarget
}

// ApproveReceiptRequest commits an allocation plan on a draft receipt
type ApproveReceiptRequest struct {
	ReceiptID          uuid.UUID
	Version            int
	SelectedTargets    []receivable.SelectedTarget
	OverridePeriodLock bool
	OverrideReason     string
	Actor              string
}

// VoidReceiptRequest reverses an approved receipt
type VoidReceiptRequest struct {
	ReceiptID          uuid.UUID
	Reason             string
	Version            int
	OverridePeriodLock bool
	OverrideReason     string
	Actor              string
}

// VoidReceiptResult summarizes what a void reversed
type VoidReceiptResult struct {
	ReceiptID               uuid.UUID
	ReversedAmount          decimal.Decimal
	ReversedAllocationCount int
}

// UnvoidReceiptRequest re-applies the retained plan of a voided receipt
type UnvoidReceiptRequest struct {
	ReceiptID          uuid.UUID
	Version            int
	OverridePeriodLock bool
	OverrideReason     string
	Actor              string
}

// CreateReceiptRequest records a draft receipt
type CreateReceiptRequest struct {
	ReceiptNumber   string
	SellerTaxCode   string
	CustomerTaxCode string
	Amount          decimal.Decimal
	Currency        valueobject.Currency
	Mode            receivable.AllocationMode
	Priority        receivable.AllocationPriority
	EffectiveDate   time.Time
}

// CreateInvoiceRequest records an imported or manually entered invoice
type CreateInvoiceRequest struct {
	InvoiceNumber   string
	SellerTaxCode   string
	CustomerTaxCode string
	IssueDate       time.Time
	Amount          decimal.Decimal
	Currency        valueobject.Currency
}

// CreateAdvanceRequest records a cash-advance obligation
type CreateAdvanceRequest struct {
	AdvanceNumber   string
	SellerTaxCode   string
	CustomerTaxCode string
	AdvanceDate     time.Time
	Amount          decimal.Decimal
	Currency        valueobject.Currency
}

// VoidDebtRequest soft-voids an invoice or advance
type VoidDebtRequest struct {
	TargetType         receivable.TargetType
	TargetID           uuid.UUID
	Reason             string
	Version            int
	OverridePeriodLock bool
	OverrideReason     string
	Actor              string
}

// UnvoidDebtRequest restores a voided invoice or advance
type UnvoidDebtRequest struct {
	TargetType         receivable.TargetType
	TargetID           uuid.UUID
	Version            int
	OverridePeriodLock bool
	OverrideReason     string
	Actor              string
}
