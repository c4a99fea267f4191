package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeInvalidAmount, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodePeriodLocked, http.StatusLocked},
		{ErrCodeInsufficientOutstanding, http.StatusUnprocessableEntity},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvariantViolation, http.StatusInternalServerError},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"INVALID_REQUEST", ErrCodeBadRequest},
		{"INVALID_AMOUNT", ErrCodeInvalidAmount},
		{"NOT_FOUND", ErrCodeNotFound},
		{"PERIOD_LOCKED", ErrCodePeriodLocked},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"INVARIANT_VIOLATION", ErrCodeInvariantViolation},
		{"INSUFFICIENT_OUTSTANDING", ErrCodeInsufficientOutstanding},
		{"INVALID_STATE", ErrCodeInvalidState},
		// Wire-format codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodePeriodLocked, ErrCodePeriodLocked},
		// Unknown codes pass through unchanged
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "receipt not found", "req-123")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "receipt not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "This field is required"},
		{Field: "currency", Message: "Must be exactly 3 characters"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-456", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
}

func TestErrorResponse_JSONShape(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodePeriodLocked, "period 2026-08 is locked", "req-789")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodePeriodLocked, decoded.Error.Code)
	assert.Equal(t, "req-789", decoded.Error.RequestID)
	assert.Nil(t, decoded.Data)
}
