package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the receivable engine
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeNotFound                = "NOT_FOUND"
	CodePeriodLocked            = "PERIOD_LOCKED"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeInvariantViolation      = "INVARIANT_VIOLATION"
	CodeInsufficientOutstanding = "INSUFFICIENT_OUTSTANDING"
	CodeInvalidState            = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound                = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidRequest          = NewDomainError(CodeInvalidRequest, "Invalid request")
	ErrInvalidAmount           = NewDomainError(CodeInvalidAmount, "Amount must not be negative")
	ErrPeriodLocked            = NewDomainError(CodePeriodLocked, "Accounting period is locked")
	ErrConcurrencyConflict     = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvariantViolation      = NewDomainError(CodeInvariantViolation, "Monetary invariant violated")
	ErrInsufficientOutstanding = NewDomainError(CodeInsufficientOutstanding, "Allocation exceeds outstanding amount")
	ErrInvalidState            = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// IsFatal reports whether the error indicates corrupted state rather than a
// recoverable caller mistake. Fatal errors abort the whole operation and are
// surfaced distinctly so operators can alert on them.
func IsFatal(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == CodeInvariantViolation
}
