package handler

import (
	"time"

	"github.com/arledger/backend/internal/domain/receivable"
)

// ReceiptAllocationResponse represents one allocation line in API responses
type ReceiptAllocationResponse struct {
	ID         string `json:"id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Amount     string `json:"amount"`
	Reversed   bool   `json:"reversed"`
	CreatedAt  string `json:"created_at"`
}

// ReceiptResponse represents a receipt in API responses
type ReceiptResponse struct {
	ID                 string                      `json:"id"`
	ReceiptNumber      string                      `json:"receipt_number"`
	SellerTaxCode      string                      `json:"seller_tax_code"`
	CustomerTaxCode    string                      `json:"customer_tax_code"`
	Currency           string                      `json:"currency"`
	Amount             string                      `json:"amount"`
	UnallocatedAmount  string                      `json:"unallocated_amount"`
	AllocationMode     string                      `json:"allocation_mode"`
	AllocationPriority string                      `json:"allocation_priority"`
	AllocationStatus   string                      `json:"allocation_status"`
	Status             string                      `json:"status"`
	EffectiveDate      string                      `json:"effective_date"`
	VoidReason         string                      `json:"void_reason,omitempty"`
	VoidedAt           string                      `json:"voided_at,omitempty"`
	Allocations        []ReceiptAllocationResponse `json:"allocations"`
	CreatedAt          string                      `json:"created_at"`
	UpdatedAt          string                      `json:"updated_at"`
	Version            int                         `json:"version"`
}

func newReceiptResponse(r *receivable.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		ID:                 r.ID.String(),
		ReceiptNumber:      r.ReceiptNumber,
		SellerTaxCode:      r.SellerTaxCode,
		CustomerTaxCode:    r.CustomerTaxCode,
		Currency:           string(r.Currency),
		Amount:             r.Amount.String(),
		UnallocatedAmount:  r.UnallocatedAmount.String(),
		AllocationMode:     string(r.AllocationMode),
		AllocationPriority: string(r.AllocationPriority),
		AllocationStatus:   string(r.AllocationStatus),
		Status:             string(r.Status),
		EffectiveDate:      r.EffectiveDate.Format(time.RFC3339),
		VoidReason:         r.VoidReason,
		Allocations:        make([]ReceiptAllocationResponse, 0, len(r.Allocations)),
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
		Version:            r.Version,
	}
	if r.VoidedAt != nil {
		resp.VoidedAt = r.VoidedAt.Format(time.RFC3339)
	}
	for _, alloc := range r.Allocations {
		resp.Allocations = append(resp.Allocations, ReceiptAllocationResponse{
			ID:         alloc.ID.String(),
			TargetType: string(alloc.TargetType),
			TargetID:   alloc.TargetID.String(),
			Amount:     alloc.Amount.String(),
			Reversed:   alloc.Reversed,
			CreatedAt:  alloc.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func newReceiptListResponse(receipts []*receivable.Receipt) []ReceiptResponse {
	out := make([]ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, newReceiptResponse(r))
	}
	return out
}

// PlanLineResponse represents one computed allocation line
type PlanLineResponse struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Amount     string `json:"amount"`
}

// AllocationPlanResponse represents a computed allocation plan
type AllocationPlanResponse struct {
	Lines             []PlanLineResponse `json:"lines"`
	AllocatedTotal    string             `json:"allocated_total"`
	UnallocatedAmount string             `json:"unallocated_amount"`
	Currency          string             `json:"currency"`
}

func newAllocationPlanResponse(plan *receivable.AllocationPlan) AllocationPlanResponse {
	resp := AllocationPlanResponse{
		Lines:             make([]PlanLineResponse, 0, len(plan.Lines)),
		AllocatedTotal:    plan.AllocatedTotal().String(),
		UnallocatedAmount: plan.UnallocatedAmount.String(),
		Currency:          string(plan.Currency),
	}
	for _, line := range plan.Lines {
		resp.Lines = append(resp.Lines, PlanLineResponse{
			TargetType: string(line.TargetType),
			TargetID:   line.TargetID.String(),
			Amount:     line.Amount.String(),
		})
	}
	return resp
}

// ApproveReceiptResponse pairs the approved receipt with its committed plan
type ApproveReceiptResponse struct {
	Receipt ReceiptResponse        `json:"receipt"`
	Plan    AllocationPlanResponse `json:"plan"`
}

// VoidReceiptResponse summarizes what a void reversed
type VoidReceiptResponse struct {
	ReceiptID               string `json:"receipt_id"`
	ReversedAmount          string `json:"reversed_amount"`
	ReversedAllocationCount int    `json:"reversed_allocation_count"`
}
