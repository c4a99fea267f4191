package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appreceivable "github.com/arledger/backend/internal/application/receivable"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// DebtHandler handles invoice and advance API endpoints
type DebtHandler struct {
	BaseHandler
	debts *appreceivable.DebtService
}

// NewDebtHandler creates a new DebtHandler
func NewDebtHandler(debts *appreceivable.DebtService) *DebtHandler {
	return &DebtHandler{
		debts: debts,
	}
}

// CreateInvoiceRequest represents a request to record an invoice
type CreateInvoiceRequest struct {
	InvoiceNumber   string `json:"invoice_number" binding:"required,min=1,max=50"`
	SellerTaxCode   string `json:"seller_tax_code" binding:"required,max=50"`
	CustomerTaxCode string `json:"customer_tax_code" binding:"required,max=50"`
	IssueDate       string `json:"issue_date" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	Currency        string `json:"currency" binding:"required,len=3"`
}

// CreateInvoice records a new open invoice
func (h *DebtHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidAmount, err.Error())
		return
	}
	issueDate, err := time.Parse(time.RFC3339, req.IssueDate)
	if err != nil {
		h.BadRequest(c, "issue_date must be RFC3339")
		return
	}

	invoice, err := h.debts.CreateInvoice(c.Request.Context(), appreceivable.CreateInvoiceRequest{
		InvoiceNumber:   req.InvoiceNumber,
		SellerTaxCode:   req.SellerTaxCode,
		CustomerTaxCode: req.CustomerTaxCode,
		IssueDate:       issueDate,
		Amount:          amount,
		Currency:        valueobject.Currency(req.Currency),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, newInvoiceResponse(invoice))
}

// GetInvoice retrieves an invoice by ID
func (h *DebtHandler) GetInvoice(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.debts.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newInvoiceResponse(invoice))
}

// ListInvoices returns invoices matching the query filters
func (h *DebtHandler) ListInvoices(c *gin.Context) {
	filter, listReq, ok := h.bindDebtFilter(c)
	if !ok {
		return
	}

	invoices, total, err := h.debts.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, newInvoiceListResponse(invoices), total, listReq.Page, listReq.PageSize)
}

// CreateAdvanceRequest represents a request to record a cash-advance obligation
type CreateAdvanceRequest struct {
	AdvanceNumber   string `json:"advance_number" binding:"required,min=1,max=50"`
	SellerTaxCode   string `json:"seller_tax_code" binding:"required,max=50"`
	CustomerTaxCode string `json:"customer_tax_code" binding:"required,max=50"`
	AdvanceDate     string `json:"advance_date" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	Currency        string `json:"currency" binding:"required,len=3"`
}

// CreateAdvance records a new open cash-advance obligation
func (h *DebtHandler) CreateAdvance(c *gin.Context) {
	var req CreateAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidAmount, err.Error())
		return
	}
	advanceDate, err := time.Parse(time.RFC3339, req.AdvanceDate)
	if err != nil {
		h.BadRequest(c, "advance_date must be RFC3339")
		return
	}

	advance, err := h.debts.CreateAdvance(c.Request.Context(), appreceivable.CreateAdvanceRequest{
		AdvanceNumber:   req.AdvanceNumber,
		SellerTaxCode:   req.SellerTaxCode,
		CustomerTaxCode: req.CustomerTaxCode,
		AdvanceDate:     advanceDate,
		Amount:          amount,
		Currency:        valueobject.Currency(req.Currency),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, newAdvanceResponse(advance))
}

// GetAdvance retrieves an advance by ID
func (h *DebtHandler) GetAdvance(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid advance ID")
		return
	}

	advance, err := h.debts.GetAdvance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newAdvanceResponse(advance))
}

// ListAdvances returns advances matching the query filters
func (h *DebtHandler) ListAdvances(c *gin.Context) {
	filter, listReq, ok := h.bindDebtFilter(c)
	if !ok {
		return
	}

	advances, total, err := h.debts.ListAdvances(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, newAdvanceListResponse(advances), total, listReq.Page, listReq.PageSize)
}

// VoidDebtRequest represents a request to soft-void a debt record
type VoidDebtRequest struct {
	Reason             string `json:"reason" binding:"required,min=1,max=500"`
	Version            int    `json:"version" binding:"required,gte=1"`
	OverridePeriodLock bool   `json:"override_period_lock"`
	OverrideReason     string `json:"override_reason" binding:"max=500"`
}

// VoidInvoice soft-voids an invoice that has nothing allocated against it
func (h *DebtHandler) VoidInvoice(c *gin.Context) {
	h.voidDebt(c, receivable.TargetTypeInvoice)
}

// VoidAdvance soft-voids an advance that has nothing allocated against it
func (h *DebtHandler) VoidAdvance(c *gin.Context) {
	h.voidDebt(c, receivable.TargetTypeAdvance)
}

func (h *DebtHandler) voidDebt(c *gin.Context, targetType receivable.TargetType) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ID")
		return
	}

	var req VoidDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.debts.VoidDebt(c.Request.Context(), appreceivable.VoidDebtRequest{
		TargetType:         targetType,
		TargetID:           id,
		Reason:             req.Reason,
		Version:            req.Version,
		OverridePeriodLock: req.OverridePeriodLock,
		OverrideReason:     req.OverrideReason,
		Actor:              getActor(c),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// UnvoidDebtRequest represents a request to restore a voided debt record
type UnvoidDebtRequest struct {
	Version            int    `json:"version" binding:"required,gte=1"`
	OverridePeriodLock bool   `json:"override_period_lock"`
	OverrideReason     string `json:"override_reason" binding:"max=500"`
}

// UnvoidInvoice restores a voided invoice to fully outstanding
func (h *DebtHandler) UnvoidInvoice(c *gin.Context) {
	h.unvoidDebt(c, receivable.TargetTypeInvoice)
}

// UnvoidAdvance restores a voided advance to fully outstanding
func (h *DebtHandler) UnvoidAdvance(c *gin.Context) {
	h.unvoidDebt(c, receivable.TargetTypeAdvance)
}

func (h *DebtHandler) unvoidDebt(c *gin.Context, targetType receivable.TargetType) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid ID")
		return
	}

	var req UnvoidDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.debts.UnvoidDebt(c.Request.Context(), appreceivable.UnvoidDebtRequest{
		TargetType:         targetType,
		TargetID:           id,
		Version:            req.Version,
		OverridePeriodLock: req.OverridePeriodLock,
		OverrideReason:     req.OverrideReason,
		Actor:              getActor(c),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *DebtHandler) bindDebtFilter(c *gin.Context) (receivable.DebtFilter, dto.ListRequest, bool) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return receivable.DebtFilter{}, listReq, false
	}

	filter := receivable.DebtFilter{
		SellerTaxCode:   c.Query("seller_tax_code"),
		CustomerTaxCode: c.Query("customer_tax_code"),
		Limit:           listReq.PageSize,
		Offset:          (listReq.Page - 1) * listReq.PageSize,
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := receivable.DebtStatus(statusParam)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid debt status filter")
			return receivable.DebtFilter{}, listReq, false
		}
		filter.Status = &status
	}
	return filter, listReq, true
}
