package receivable

import (
	"time"

	"github.com/google/uuid"

	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// TargetType tags the kind of debt record an allocation points at
type TargetType string

const (
	TargetTypeInvoice TargetType = "INVOICE"
	TargetTypeAdvance TargetType = "ADVANCE"
)

// IsValid checks if the target type is valid
func (t TargetType) IsValid() bool {
	return t == TargetTypeInvoice || t == TargetTypeAdvance
}

// String returns the string representation of TargetType
func (t TargetType) String() string {
	return string(t)
}

// DebtStatus represents the status of a debt record (invoice or advance).
// It is a pure function of outstanding vs total vs the void flag and is
// never set independently.
type DebtStatus string

const (
	DebtStatusOpen    DebtStatus = "OPEN"    // Untouched, outstanding == total
	DebtStatusPartial DebtStatus = "PARTIAL" // 0 < outstanding < total
	DebtStatusPaid    DebtStatus = "PAID"    // Fully settled, outstanding == 0
	DebtStatusVoid    DebtStatus = "VOID"    // Soft-voided, excluded from allocation
)

// IsValid checks if the status is a valid DebtStatus
func (s DebtStatus) IsValid() bool {
	switch s {
	case DebtStatusOpen, DebtStatusPartial, DebtStatusPaid, DebtStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of DebtStatus
func (s DebtStatus) String() string {
	return string(s)
}

// IsOpen returns true if the debt can still receive allocations
func (s DebtStatus) IsOpen() bool {
	return s == DebtStatusOpen || s == DebtStatusPartial
}

// Payable is the capability the allocation engine operates against.
// Invoice and Advance both satisfy it; the engine never depends on the
// concrete record type.
type Payable interface {
	GetID() uuid.UUID
	GetTargetType() TargetType
	GetVersion() int
	// GetEffectiveIssueDate is the date used for oldest-first ordering
	GetEffectiveIssueDate() time.Time
	GetTotalMoney() valueobject.Money
	GetOutstandingMoney() valueobject.Money
	IsVoid() bool
	// ApplyPayment decreases outstanding by amount and recomputes status
	ApplyPayment(amount valueobject.Money) error
	// ReversePayment restores outstanding by amount; pushing outstanding
	// above total is a fatal invariant breach
	ReversePayment(amount valueobject.Money) error
}
