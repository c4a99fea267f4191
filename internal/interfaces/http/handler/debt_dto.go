package handler

import (
	"time"

	"github.com/arledger/backend/internal/domain/receivable"
)

// InvoiceResponse represents an invoice debt record in API responses
type InvoiceResponse struct {
	ID                string `json:"id"`
	InvoiceNumber     string `json:"invoice_number"`
	SellerTaxCode     string `json:"seller_tax_code"`
	CustomerTaxCode   string `json:"customer_tax_code"`
	IssueDate         string `json:"issue_date"`
	Currency          string `json:"currency"`
	TotalAmount       string `json:"total_amount"`
	OutstandingAmount string `json:"outstanding_amount"`
	Status            string `json:"status"`
	VoidedAt          string `json:"voided_at,omitempty"`
	VoidReason        string `json:"void_reason,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	Version           int    `json:"version"`
}

func newInvoiceResponse(inv *receivable.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:                inv.ID.String(),
		InvoiceNumber:     inv.InvoiceNumber,
		SellerTaxCode:     inv.SellerTaxCode,
		CustomerTaxCode:   inv.CustomerTaxCode,
		IssueDate:         inv.IssueDate.Format(time.RFC3339),
		Currency:          string(inv.Currency),
		TotalAmount:       inv.TotalAmount.String(),
		OutstandingAmount: inv.OutstandingAmount.String(),
		Status:            string(inv.Status),
		VoidReason:        inv.VoidReason,
		CreatedAt:         inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         inv.UpdatedAt.Format(time.RFC3339),
		Version:           inv.Version,
	}
	if inv.VoidedAt != nil {
		resp.VoidedAt = inv.VoidedAt.Format(time.RFC3339)
	}
	return resp
}

func newInvoiceListResponse(invoices []*receivable.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, newInvoiceResponse(inv))
	}
	return out
}

// AdvanceResponse represents a cash-advance debt record in API responses
type AdvanceResponse struct {
	ID                string `json:"id"`
	AdvanceNumber     string `json:"advance_number"`
	SellerTaxCode     string `json:"seller_tax_code"`
	CustomerTaxCode   string `json:"customer_tax_code"`
	AdvanceDate       string `json:"advance_date"`
	Currency          string `json:"currency"`
	TotalAmount       string `json:"total_amount"`
	OutstandingAmount string `json:"outstanding_amount"`
	Status            string `json:"status"`
	VoidedAt          string `json:"voided_at,omitempty"`
	VoidReason        string `json:"void_reason,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	Version           int    `json:"version"`
}

func newAdvanceResponse(adv *receivable.Advance) AdvanceResponse {
	resp := AdvanceResponse{
		ID:                adv.ID.String(),
		AdvanceNumber:     adv.AdvanceNumber,
		SellerTaxCode:     adv.SellerTaxCode,
		CustomerTaxCode:   adv.CustomerTaxCode,
		AdvanceDate:       adv.AdvanceDate.Format(time.RFC3339),
		Currency:          string(adv.Currency),
		TotalAmount:       adv.TotalAmount.String(),
		OutstandingAmount: adv.OutstandingAmount.String(),
		Status:            string(adv.Status),
		VoidReason:        adv.VoidReason,
		CreatedAt:         adv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         adv.UpdatedAt.Format(time.RFC3339),
		Version:           adv.Version,
	}
	if adv.VoidedAt != nil {
		resp.VoidedAt = adv.VoidedAt.Format(time.RFC3339)
	}
	return resp
}

func newAdvanceListResponse(advances []*receivable.Advance) []AdvanceResponse {
	out := make([]AdvanceResponse, 0, len(advances))
	for _, adv := range advances {
		out = append(out, newAdvanceResponse(adv))
	}
	return out
}
