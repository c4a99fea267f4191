package dto

import "net/http"

// Error code constants exposed on the wire.
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed or semantically invalid requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request field validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidAmount is used when a monetary amount is malformed or negative
	ErrCodeInvalidAmount = "ERR_INVALID_AMOUNT"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodePeriodLocked is used when the effective date falls in a locked period
	ErrCodePeriodLocked = "ERR_PERIOD_LOCKED"
	// ErrCodeInsufficientOutstanding is used when an allocation exceeds a debt's outstanding
	ErrCodeInsufficientOutstanding = "ERR_INSUFFICIENT_OUTSTANDING"
	// ErrCodeInvalidState is used when an operation is invalid for the current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInvariantViolation is used when a ledger invariant check fails
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"
)

// Request admission error codes
const (
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodePayloadTooLarge is used when a request body exceeds the size limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeInvalidAmount: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodePeriodLocked:            http.StatusLocked,
	ErrCodeInsufficientOutstanding: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:            http.StatusUnprocessableEntity,
	ErrCodeInvariantViolation:      http.StatusInternalServerError,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to wire codes
var DomainErrorCodeMapping = map[string]string{
	"INVALID_REQUEST":          ErrCodeBadRequest,
	"INVALID_AMOUNT":           ErrCodeInvalidAmount,
	"NOT_FOUND":                ErrCodeNotFound,
	"PERIOD_LOCKED":            ErrCodePeriodLocked,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"INVARIANT_VIOLATION":      ErrCodeInvariantViolation,
	"INSUFFICIENT_OUTSTANDING": ErrCodeInsufficientOutstanding,
	"INVALID_STATE":            ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to its wire format.
// Codes already in wire format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
