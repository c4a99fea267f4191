package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/application/reconcile"
	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// ReconciliationHandler handles balance-reconciliation API endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciler *reconcile.Service
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciler *reconcile.Service) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciler: reconciler,
	}
}

// RunReconciliationRequest represents a request to run a reconciliation pass
type RunReconciliationRequest struct {
	ApplyChanges bool   `json:"apply_changes"`
	MaxItems     int    `json:"max_items" binding:"omitempty,gte=1,lte=100"`
	Tolerance    string `json:"tolerance" binding:"omitempty"`
}

// ReconciliationResultResponse represents the outcome of a reconciliation pass
type ReconciliationResultResponse struct {
	CheckedCustomers   int    `json:"checked_customers"`
	DriftedCustomers   int    `json:"drifted_customers"`
	UpdatedCustomers   int    `json:"updated_customers"`
	FailedCustomers    int    `json:"failed_customers"`
	TotalAbsoluteDrift string `json:"total_absolute_drift"`
	MaxAbsoluteDrift   string `json:"max_absolute_drift"`
	ApplyChanges       bool   `json:"apply_changes"`
	StartedAt          string `json:"started_at"`
	FinishedAt         string `json:"finished_at"`
}

func newReconciliationResultResponse(result *reconcile.Result) ReconciliationResultResponse {
	return ReconciliationResultResponse{
		CheckedCustomers:   result.CheckedCustomers,
		DriftedCustomers:   result.DriftedCustomers,
		UpdatedCustomers:   result.UpdatedCustomers,
		FailedCustomers:    result.FailedCustomers,
		TotalAbsoluteDrift: result.TotalAbsoluteDrift.String(),
		MaxAbsoluteDrift:   result.MaxAbsoluteDrift.String(),
		ApplyChanges:       result.ApplyChanges,
		StartedAt:          result.StartedAt.Format(time.RFC3339),
		FinishedAt:         result.FinishedAt.Format(time.RFC3339),
	}
}

// Run executes a reconciliation pass synchronously
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req RunReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.MaxItems == 0 {
		req.MaxItems = reconcile.MaxBatchSize
	}

	tolerance := decimal.Zero
	if req.Tolerance != "" {
		parsed, err := parseAmount(req.Tolerance)
		if err != nil {
			h.Error(c, 400, dto.ErrCodeInvalidAmount, err.Error())
			return
		}
		if parsed.IsNegative() {
			h.Error(c, 400, dto.ErrCodeInvalidAmount, "tolerance must not be negative")
			return
		}
		tolerance = parsed
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), req.ApplyChanges, req.MaxItems, tolerance)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newReconciliationResultResponse(result))
}

// LastResult returns the outcome of the most recent reconciliation pass
func (h *ReconciliationHandler) LastResult(c *gin.Context) {
	result := h.reconciler.LastResult()
	if result == nil {
		h.NotFound(c, "No reconciliation has run yet")
		return
	}

	h.Success(c, newReconciliationResultResponse(result))
}
