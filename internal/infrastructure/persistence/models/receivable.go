package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/partner"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for invoice debt records
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber     string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	SellerTaxCode     string          `gorm:"type:varchar(32);not null;index:idx_invoices_pair"`
	CustomerTaxCode   string          `gorm:"type:varchar(32);not null;index:idx_invoices_pair"`
	IssueDate         time.Time       `gorm:"not null;index"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status            string          `gorm:"type:varchar(16);not null;index"`
	VoidedAt          *time.Time
	VoidReason        string `gorm:"type:text"`
}

// TableName specifies the table name
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain invoice
func (m *InvoiceModel) ToDomain() *receivable.Invoice {
	return receivable.ReconstructInvoice(
		m.ID, m.InvoiceNumber, m.SellerTaxCode, m.CustomerTaxCode,
		m.IssueDate, valueobject.Currency(m.Currency),
		m.TotalAmount, m.OutstandingAmount,
		receivable.DebtStatus(m.Status), m.VoidedAt, m.VoidReason,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
}

// InvoiceModelFromDomain converts a domain invoice to its model
func InvoiceModelFromDomain(inv *receivable.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber:     inv.InvoiceNumber,
		SellerTaxCode:     inv.SellerTaxCode,
		CustomerTaxCode:   inv.CustomerTaxCode,
		IssueDate:         inv.IssueDate,
		Currency:          string(inv.Currency),
		TotalAmount:       inv.TotalAmount,
		OutstandingAmount: inv.OutstandingAmount,
		Status:            string(inv.Status),
		VoidedAt:          inv.VoidedAt,
		VoidReason:        inv.VoidReason,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}

// AdvanceModel is the persistence model for advance debt records
type AdvanceModel struct {
	AggregateModel
	AdvanceNumber     string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	SellerTaxCode     string          `gorm:"type:varchar(32);not null;index:idx_advances_pair"`
	CustomerTaxCode   string          `gorm:"type:varchar(32);not null;index:idx_advances_pair"`
	AdvanceDate       time.Time       `gorm:"not null;index"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status            string          `gorm:"type:varchar(16);not null;index"`
	VoidedAt          *time.Time
	VoidReason        string `gorm:"type:text"`
}

// TableName specifies the table name
func (AdvanceModel) TableName() string {
	return "advances"
}

// ToDomain converts the model to a domain advance
func (m *AdvanceModel) ToDomain() *receivable.Advance {
	return receivable.ReconstructAdvance(
		m.ID, m.AdvanceNumber, m.SellerTaxCode, m.CustomerTaxCode,
		m.AdvanceDate, valueobject.Currency(m.Currency),
		m.TotalAmount, m.OutstandingAmount,
		receivable.DebtStatus(m.Status), m.VoidedAt, m.VoidReason,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
}

// AdvanceModelFromDomain converts a domain advance to its model
func AdvanceModelFromDomain(adv *receivable.Advance) *AdvanceModel {
	m := &AdvanceModel{
		AdvanceNumber:     adv.AdvanceNumber,
		SellerTaxCode:     adv.SellerTaxCode,
		CustomerTaxCode:   adv.CustomerTaxCode,
		AdvanceDate:       adv.AdvanceDate,
		Currency:          string(adv.Currency),
		TotalAmount:       adv.TotalAmount,
		OutstandingAmount: adv.OutstandingAmount,
		Status:            string(adv.Status),
		VoidedAt:          adv.VoidedAt,
		VoidReason:        adv.VoidReason,
	}
	m.FromDomainAggregateRoot(adv.BaseAggregateRoot)
	return m
}

// ReceiptAllocationModel is the child table linking a receipt to one debt
type ReceiptAllocationModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	TargetType string          `gorm:"type:varchar(16);not null"`
	TargetID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reversed   bool            `gorm:"not null;default:false"`
	CreatedAt  time.Time       `gorm:"not null"`
}

// TableName specifies the table name
func (ReceiptAllocationModel) TableName() string {
	return "receipt_allocations"
}

// ToDomain converts the model to a domain allocation line
func (m *ReceiptAllocationModel) ToDomain() receivable.ReceiptAllocation {
	return receivable.ReceiptAllocation{
		ID:         m.ID,
		ReceiptID:  m.ReceiptID,
		TargetType: receivable.TargetType(m.TargetType),
		TargetID:   m.TargetID,
		Amount:     m.Amount,
		Reversed:   m.Reversed,
		CreatedAt:  m.CreatedAt,
	}
}

// ReceiptModel is the persistence model for receipts
type ReceiptModel struct {
	AggregateModel
	ReceiptNumber      string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	SellerTaxCode      string          `gorm:"type:varchar(32);not null;index:idx_receipts_pair"`
	CustomerTaxCode    string          `gorm:"type:varchar(32);not null;index:idx_receipts_pair"`
	Currency           string          `gorm:"type:varchar(3);not null"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocationMode     string          `gorm:"type:varchar(16);not null"`
	AllocationPriority string          `gorm:"type:varchar(32);not null"`
	AllocationStatus   string          `gorm:"type:varchar(16);not null;index"`
	Status             string          `gorm:"type:varchar(16);not null;index"`
	EffectiveDate      time.Time       `gorm:"not null;index"`
	VoidReason         string          `gorm:"type:text"`
	VoidedAt           *time.Time

	Allocations []ReceiptAllocationModel `gorm:"foreignKey:ReceiptID"`
}

// TableName specifies the table name
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the model to a domain receipt
func (m *ReceiptModel) ToDomain() *receivable.Receipt {
	allocations := make([]receivable.ReceiptAllocation, 0, len(m.Allocations))
	for idx := range m.Allocations {
		allocations = append(allocations, m.Allocations[idx].ToDomain())
	}
	return receivable.ReconstructReceipt(
		m.ID, m.ReceiptNumber, m.SellerTaxCode, m.CustomerTaxCode,
		valueobject.Currency(m.Currency),
		m.Amount, m.UnallocatedAmount,
		receivable.AllocationMode(m.AllocationMode),
		receivable.AllocationPriority(m.AllocationPriority),
		receivable.AllocationStatus(m.AllocationStatus),
		receivable.ReceiptStatus(m.Status),
		m.EffectiveDate, m.VoidReason, m.VoidedAt,
		allocations,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
}

// ReceiptModelFromDomain converts a domain receipt to its model
func ReceiptModelFromDomain(r *receivable.Receipt) *ReceiptModel {
	allocations := make([]ReceiptAllocationModel, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		allocations = append(allocations, ReceiptAllocationModel{
			ID:         a.ID,
			ReceiptID:  a.ReceiptID,
			TargetType: string(a.TargetType),
			TargetID:   a.TargetID,
			Amount:     a.Amount,
			Reversed:   a.Reversed,
			CreatedAt:  a.CreatedAt,
		})
	}

	m := &ReceiptModel{
		ReceiptNumber:      r.ReceiptNumber,
		SellerTaxCode:      r.SellerTaxCode,
		CustomerTaxCode:    r.CustomerTaxCode,
		Currency:           string(r.Currency),
		Amount:             r.Amount,
		UnallocatedAmount:  r.UnallocatedAmount,
		AllocationMode:     string(r.AllocationMode),
		AllocationPriority: string(r.AllocationPriority),
		AllocationStatus:   string(r.AllocationStatus),
		Status:             string(r.Status),
		EffectiveDate:      r.EffectiveDate,
		VoidReason:         r.VoidReason,
		VoidedAt:           r.VoidedAt,
		Allocations:        allocations,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}

// CustomerModel is the persistence model for customer balance caches
type CustomerModel struct {
	AggregateModel
	TaxCode        string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name           string          `gorm:"type:varchar(255);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LastReconciled *time.Time
}

// TableName specifies the table name
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain customer
func (m *CustomerModel) ToDomain() *partner.Customer {
	return partner.ReconstructCustomer(
		m.ID, m.TaxCode, m.Name, m.CurrentBalance, m.LastReconciled,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
}

// CustomerModelFromDomain converts a domain customer to its model
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{
		TaxCode:        c.TaxCode,
		Name:           c.Name,
		CurrentBalance: c.CurrentBalance,
		LastReconciled: c.LastReconciled,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

// PeriodLockModel is the persistence model for period locks
type PeriodLockModel struct {
	AggregateModel
	PeriodType   string    `gorm:"type:varchar(16);not null;index:idx_period_locks_key"`
	PeriodKey    string    `gorm:"type:varchar(16);not null;index:idx_period_locks_key"`
	LockedAt     time.Time `gorm:"not null"`
	LockedBy     string    `gorm:"type:varchar(64);not null"`
	Note         string    `gorm:"type:text"`
	Active       bool      `gorm:"not null;default:true;index"`
	UnlockedAt   *time.Time
	UnlockReason string `gorm:"type:text"`
}

// TableName specifies the table name
func (PeriodLockModel) TableName() string {
	return "period_locks"
}

// ToDomain converts the model to a domain period lock
func (m *PeriodLockModel) ToDomain() *period.PeriodLock {
	lock := &period.PeriodLock{
		PeriodType:   period.PeriodType(m.PeriodType),
		PeriodKey:    m.PeriodKey,
		LockedAt:     m.LockedAt,
		LockedBy:     m.LockedBy,
		Note:         m.Note,
		Active:       m.Active,
		UnlockedAt:   m.UnlockedAt,
		UnlockReason: m.UnlockReason,
	}
	lock.ID = m.ID
	lock.CreatedAt = m.CreatedAt
	lock.UpdatedAt = m.UpdatedAt
	lock.Version = m.Version
	return lock
}

// PeriodLockModelFromDomain converts a domain period lock to its model
func PeriodLockModelFromDomain(l *period.PeriodLock) *PeriodLockModel {
	m := &PeriodLockModel{
		PeriodType:   string(l.PeriodType),
		PeriodKey:    l.PeriodKey,
		LockedAt:     l.LockedAt,
		LockedBy:     l.LockedBy,
		Note:         l.Note,
		Active:       l.Active,
		UnlockedAt:   l.UnlockedAt,
		UnlockReason: l.UnlockReason,
	}
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	return m
}

// AuditEntryModel is the persistence model for audit log entries
type AuditEntryModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Action     string    `gorm:"type:varchar(32);not null;index"`
	EntityType string    `gorm:"type:varchar(32);not null;index:idx_audit_entity"`
	EntityID   string    `gorm:"type:varchar(64);not null;index:idx_audit_entity"`
	Before     []byte    `gorm:"type:jsonb"`
	After      []byte    `gorm:"type:jsonb"`
	Actor      string    `gorm:"type:varchar(64);not null"`
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}
