package partner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// Customer carries the cached running balance for one (seller, customer)
// pair. CurrentBalance is a materialized view, never a source of truth:
// it must always be reproducible from debt and receipt facts, and only the
// reconciliation job writes it.
type Customer struct {
	shared.BaseAggregateRoot
	TaxCode        string
	Name           string
	CurrentBalance decimal.Decimal
	LastReconciled *time.Time
}

// NewCustomer creates a customer with a zero cached balance
func NewCustomer(taxCode, name string) (*Customer, error) {
	if taxCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "customer tax code is required")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "customer name is required")
	}

	return &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TaxCode:           taxCode,
		Name:              name,
		CurrentBalance:    decimal.Zero,
	}, nil
}

// SettleBalance overwrites the cached balance with the recomputed value.
// Called only by the reconciliation job.
func (c *Customer) SettleBalance(expected decimal.Decimal) {
	now := time.Now()
	c.CurrentBalance = expected
	c.LastReconciled = &now
	c.IncrementVersion()
	c.UpdatedAt = now
}

// Drift is the absolute difference between the cached balance and the
// balance recomputed from ledger facts.
func (c *Customer) Drift(expected decimal.Decimal) decimal.Decimal {
	return expected.Sub(c.CurrentBalance).Abs()
}

// ReconstructCustomer rebuilds a customer from persisted state.
// Used by the persistence layer only.
func ReconstructCustomer(id uuid.UUID, taxCode, name string, balance decimal.Decimal, lastReconciled *time.Time, version int, createdAt, updatedAt time.Time) *Customer {
	return &Customer{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
			Version:    version,
		},
		TaxCode:        taxCode,
		Name:           name,
		CurrentBalance: balance,
		LastReconciled: lastReconciled,
	}
}

// String identifies the customer in logs
func (c *Customer) String() string {
	return fmt.Sprintf("Customer(%s)", c.TaxCode)
}
