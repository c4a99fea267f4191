package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreceivable "github.com/arledger/backend/internal/application/receivable"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// ReceiptHandler handles receipt-related API endpoints
type ReceiptHandler struct {
	BaseHandler
	allocations *appreceivable.AllocationService
	debts       *appreceivable.DebtService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(allocations *appreceivable.AllocationService, debts *appreceivable.DebtService) *ReceiptHandler {
	return &ReceiptHandler{
		allocations: allocations,
		debts:       debts,
	}
}

// SelectedTargetRequest is a caller-chosen allocation target with an explicit amount
type SelectedTargetRequest struct {
	TargetType string `json:"target_type" binding:"required,oneof=INVOICE ADVANCE"`
	TargetID   string `json:"target_id" binding:"required,uuid"`
	Amount     string `json:"amount" binding:"required"`
}

func toSelectedTargets(reqs []SelectedTargetRequest) ([]receivable.SelectedTarget, error) {
	targets := make([]receivable.SelectedTarget, 0, len(reqs))
	for _, r := range reqs {
		id, err := uuid.Parse(r.TargetID)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(r.Amount)
		if err != nil {
			return nil, err
		}
		targets = append(targets, receivable.SelectedTarget{
			TargetType: receivable.TargetType(r.TargetType),
			TargetID:   id,
			Amount:     amount,
		})
	}
	return targets, nil
}

// CreateReceiptRequest represents a request to record a draft receipt
type CreateReceiptRequest struct {
	ReceiptNumber      string `json:"receipt_number" binding:"required,min=1,max=50"`
	SellerTaxCode      string `json:"seller_tax_code" binding:"required,max=50"`
	CustomerTaxCode    string `json:"customer_tax_code" binding:"required,max=50"`
	Amount             string `json:"amount" binding:"required"`
	Currency           string `json:"currency" binding:"required,len=3"`
	AllocationMode     string `json:"allocation_mode" binding:"required,oneof=AUTO MANUAL"`
	AllocationPriority string `json:"allocation_priority" binding:"required,oneof=ISSUE_DATE MANUAL_SELECTION"`
	EffectiveDate      string `json:"effective_date" binding:"required"`
}

// Create records a new draft receipt with no financial effect
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidAmount, err.Error())
		return
	}
	effectiveDate, err := time.Parse(time.RFC3339, req.EffectiveDate)
	if err != nil {
		h.BadRequest(c, "effective_date must be RFC3339")
		return
	}

	receipt, err := h.debts.CreateReceipt(c.Request.Context(), appreceivable.CreateReceiptRequest{
		ReceiptNumber:   req.ReceiptNumber,
		SellerTaxCode:   req.SellerTaxCode,
		CustomerTaxCode: req.CustomerTaxCode,
		Amount:          amount,
		Currency:        valueobject.Currency(req.Currency),
		Mode:            receivable.AllocationMode(req.AllocationMode),
		Priority:        receivable.AllocationPriority(req.AllocationPriority),
		EffectiveDate:   effectiveDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, newReceiptResponse(receipt))
}

// GetByID retrieves a receipt with its allocation lines
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := h.debts.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newReceiptResponse(receipt))
}

// List returns receipts matching the query filters
func (h *ReceiptHandler) List(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := receivable.ReceiptFilter{
		SellerTaxCode:   c.Query("seller_tax_code"),
		CustomerTaxCode: c.Query("customer_tax_code"),
		Limit:           listReq.PageSize,
		Offset:          (listReq.Page - 1) * listReq.PageSize,
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := receivable.ReceiptStatus(statusParam)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid receipt status filter")
			return
		}
		filter.Status = &status
	}

	receipts, total, err := h.debts.ListReceipts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, newReceiptListResponse(receipts), total, listReq.Page, listReq.PageSize)
}

// PreviewAllocationRequest asks for an allocation plan without persisting anything
type PreviewAllocationRequest struct {
	SellerTaxCode      string                  `json:"seller_tax_code" binding:"required,max=50"`
	CustomerTaxCode    string                  `json:"customer_tax_code" binding:"required,max=50"`
	Amount             string                  `json:"amount" binding:"required"`
	Currency           string                  `json:"currency" binding:"required,len=3"`
	AllocationMode     string                  `json:"allocation_mode" binding:"required,oneof=AUTO MANUAL"`
	AllocationPriority string                  `json:"allocation_priority" binding:"required,oneof=ISSUE_DATE MANUAL_SELECTION"`
	AppliedPeriodStart string                  `json:"applied_period_start" binding:"omitempty"`
	SelectedTargets    []SelectedTargetRequest `json:"selected_targets" binding:"omitempty,dive"`
}

// Preview computes an allocation plan against the current open debts
// without touching any record
func (h *ReceiptHandler) Preview(c *gin.Context) {
	var req PreviewAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidAmount, err.Error())
		return
	}
	targets, err := toSelectedTargets(req.SelectedTargets)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var periodStart *time.Time
	if req.AppliedPeriodStart != "" {
		parsed, err := time.Parse(time.RFC3339, req.AppliedPeriodStart)
		if err != nil {
			h.BadRequest(c, "applied_period_start must be RFC3339")
			return
		}
		periodStart = &parsed
	}

	plan, err := h.allocations.Preview(c.Request.Context(), appreceivable.PreviewRequest{
		SellerTaxCode:      req.SellerTaxCode,
		CustomerTaxCode:    req.CustomerTaxCode,
		Amount:             amount,
		Currency:           valueobject.Currency(req.Currency),
		Mode:               receivable.AllocationMode(req.AllocationMode),
		Priority:           receivable.AllocationPriority(req.AllocationPriority),
		AppliedPeriodStart: periodStart,
		SelectedTargets:    targets,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newAllocationPlanResponse(plan))
}

// ApproveReceiptRequest represents a request to commit a draft receipt's plan
type ApproveReceiptRequest struct {
	Version            int                     `json:"version" binding:"required,gte=1"`
	SelectedTargets    []SelectedTargetRequest `json:"selected_targets" binding:"omitempty,dive"`
	OverridePeriodLock bool                    `json:"override_period_lock"`
	OverrideReason     string                  `json:"override_reason" binding:"max=500"`
}

// Approve commits the allocation plan of a draft receipt
func (h *ReceiptHandler) Approve(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req ApproveReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	targets, err := toSelectedTargets(req.SelectedTargets)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, plan, err := h.allocations.Approve(c.Request.Context(), appreceivable.ApproveReceiptRequest{
		ReceiptID:          id,
		Version:            req.Version,
		SelectedTargets:    targets,
		OverridePeriodLock: req.OverridePeriodLock,
		OverrideReason:     req.OverrideReason,
		Actor:              getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ApproveReceiptResponse{
		Receipt: newReceiptResponse(receipt),
		Plan:    newAllocationPlanResponse(plan),
	})
}

// VoidReceiptRequest represents a request to reverse an approved receipt
type VoidReceiptRequest struct {
	Reason             string `json:"reason" binding:"required,min=1,max=500"`
	Version            int    `json:"version" binding:"required,gte=1"`
	OverridePeriodLock bool   `json:"override_period_lock"`
	OverrideReason     string `json:"override_reason" binding:"max=500"`
}

// Void reverses every active allocation of an approved receipt
func (h *ReceiptHandler) Void(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req VoidReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.allocations.Void(c.Request.Context(), appreceivable.VoidReceiptRequest{
		ReceiptID:          id,
		Reason:             req.Reason,
		Version:            req.Version,
		OverridePeriodLock: req.OverridePeriodLock,
		OverrideReason:     req.OverrideReason,
		Actor:              getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, VoidReceiptResponse{
		ReceiptID:               result.ReceiptID.String(),
		ReversedAmount:          result.ReversedAmount.String(),
		ReversedAllocationCount: result.ReversedAllocationCount,
	})
}

// UnvoidReceiptRequest represents a request to re-apply a voided receipt's plan
type UnvoidReceiptRequest struct {
	Version            int    `json:"version" binding:"required,gte=1"`
	OverridePeriodLock bool   `json:"override_period_lock"`
	OverrideReason     string `json:"override_reason" binding:"max=500"`
}

// Unvoid re-applies the retained allocation plan of a voided receipt
func (h *ReceiptHandler) Unvoid(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req UnvoidReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.allocations.Unvoid(c.Request.Context(), appreceivable.UnvoidReceiptRequest{
		ReceiptID:          id,
		Version:            req.Version,
		OverridePeriodLock: req.OverridePeriodLock,
		OverrideReason:     req.OverrideReason,
		Actor:              getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newReceiptResponse(receipt))
}

// CancelReceiptRequest represents a request to discard a draft receipt
type CancelReceiptRequest struct {
	Version int `json:"version" binding:"required,gte=1"`
}

// Cancel discards a draft receipt. Cancelled receipts are terminal.
func (h *ReceiptHandler) Cancel(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req CancelReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.allocations.Cancel(c.Request.Context(), id, req.Version)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newReceiptResponse(receipt))
}
