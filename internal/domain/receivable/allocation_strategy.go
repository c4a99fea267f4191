package receivable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

// PlanLine distributes part of a receipt's amount onto one debt record.
// Lines never exceed the target's outstanding at plan time; zero-amount
// lines are omitted entirely.
type PlanLine struct {
	TargetType TargetType      `json:"target_type"`
	TargetID   uuid.UUID       `json:"target_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// AllocationPlan is the computed distribution of a receipt amount across
// open debts. It carries no persistence side effects; committing it is the
// application layer's job.
type AllocationPlan struct {
	Lines             []PlanLine           `json:"lines"`
	UnallocatedAmount decimal.Decimal      `json:"unallocated_amount"`
	Currency          valueobject.Currency `json:"currency"`
}

// AllocatedTotal sums the plan line amounts
func (p *AllocationPlan) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Amount)
	}
	return total
}

// SelectedTarget is a caller-chosen target with an explicit amount,
// used with MANUAL_SELECTION priority.
type SelectedTarget struct {
	TargetType TargetType      `json:"target_type"`
	TargetID   uuid.UUID       `json:"target_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// AllocationStrategy builds an allocation plan for a receipt amount over a
// snapshot of open payables. Strategies are pure: given the same snapshot
// and input they produce the same plan.
type AllocationStrategy interface {
	Priority() AllocationPriority
	BuildPlan(amount valueobject.Money, candidates []Payable, selected []SelectedTarget) (*AllocationPlan, error)
}

// NewAllocationStrategy returns the strategy for the given priority
func NewAllocationStrategy(priority AllocationPriority) (AllocationStrategy, error) {
	switch priority {
	case AllocationPriorityIssueDate:
		return &IssueDateStrategy{}, nil
	case AllocationPriorityManualSelection:
		return &ManualSelectionStrategy{}, nil
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("unknown allocation priority: %s", priority))
	}
}

// IssueDateStrategy consumes the amount greedily, oldest debt first.
// Ties on the issue date are broken by id so the ordering is reproducible
// for any snapshot.
type IssueDateStrategy struct{}

// Priority returns ISSUE_DATE
func (s *IssueDateStrategy) Priority() AllocationPriority {
	return AllocationPriorityIssueDate
}

// BuildPlan distributes amount oldest-first until it is exhausted or the
// candidates run out. The remainder stays unallocated.
func (s *IssueDateStrategy) BuildPlan(amount valueobject.Money, candidates []Payable, _ []SelectedTarget) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "allocation amount must be positive")
	}

	open := openCandidates(candidates)
	sort.SliceStable(open, func(i, j int) bool {
		di, dj := open[i].GetEffectiveIssueDate(), open[j].GetEffectiveIssueDate()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return strings.Compare(open[i].GetID().String(), open[j].GetID().String()) < 0
	})

	remaining := amount.Amount()
	lines := make([]PlanLine, 0, len(open))
	for _, target := range open {
		if !remaining.IsPositive() {
			break
		}
		outstanding := target.GetOutstandingMoney().Amount()
		portion := decimal.Min(remaining, outstanding).Round(valueobject.MinorUnitPlaces)
		if !portion.IsPositive() {
			continue
		}
		lines = append(lines, PlanLine{
			TargetType: target.GetTargetType(),
			TargetID:   target.GetID(),
			Amount:     portion,
		})
		remaining = remaining.Sub(portion)
	}

	return &AllocationPlan{
		Lines:             lines,
		UnallocatedAmount: remaining,
		Currency:          amount.Currency(),
	}, nil
}

// ManualSelectionStrategy allocates exactly the caller-specified amount to
// each selected target. A selected total above the receipt amount, or any
// amount carrying precision beyond the currency minor unit, is rejected.
type ManualSelectionStrategy struct{}

// Priority returns MANUAL_SELECTION
func (s *ManualSelectionStrategy) Priority() AllocationPriority {
	return AllocationPriorityManualSelection
}

// BuildPlan validates each selection against the snapshot and produces one
// line per selected target, in the caller's order.
func (s *ManualSelectionStrategy) BuildPlan(amount valueobject.Money, candidates []Payable, selected []SelectedTarget) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "allocation amount must be positive")
	}
	if len(selected) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "manual selection requires at least one target")
	}

	byKey := make(map[string]Payable, len(candidates))
	for _, c := range openCandidates(candidates) {
		byKey[targetKey(c.GetTargetType(), c.GetID())] = c
	}

	lines := make([]PlanLine, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	total := decimal.Zero
	for _, sel := range selected {
		key := targetKey(sel.TargetType, sel.TargetID)
		if seen[key] {
			return nil, shared.NewDomainError(shared.CodeInvalidRequest,
				fmt.Sprintf("target %s selected more than once", sel.TargetID))
		}
		seen[key] = true

		target, ok := byKey[key]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("selected %s %s is not an open debt for this customer", sel.TargetType, sel.TargetID))
		}
		if sel.Amount.IsZero() {
			continue
		}
		if sel.Amount.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidAmount,
				fmt.Sprintf("selected amount for %s must not be negative", sel.TargetID))
		}
		if !sel.Amount.Equal(sel.Amount.Round(valueobject.MinorUnitPlaces)) {
			return nil, shared.NewDomainError(shared.CodeInvalidRequest,
				fmt.Sprintf("selected amount %s for %s exceeds minor-unit precision", sel.Amount, sel.TargetID))
		}
		if sel.Amount.GreaterThan(target.GetOutstandingMoney().Amount()) {
			return nil, shared.NewDomainError(shared.CodeInsufficientOutstanding,
				fmt.Sprintf("selected amount %s exceeds outstanding %s on %s %s",
					sel.Amount, target.GetOutstandingMoney().Amount(), sel.TargetType, sel.TargetID))
		}

		lines = append(lines, PlanLine{
			TargetType: sel.TargetType,
			TargetID:   sel.TargetID,
			Amount:     sel.Amount,
		})
		total = total.Add(sel.Amount)
	}

	if total.GreaterThan(amount.Amount()) {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest,
			fmt.Sprintf("selected total %s exceeds receipt amount %s", total, amount.Amount()))
	}

	return &AllocationPlan{
		Lines:             lines,
		UnallocatedAmount: amount.Amount().Sub(total),
		Currency:          amount.Currency(),
	}, nil
}

// openCandidates filters out voided and fully-paid records
func openCandidates(candidates []Payable) []Payable {
	open := make([]Payable, 0, len(candidates))
	for _, c := range candidates {
		if c.IsVoid() {
			continue
		}
		if !c.GetOutstandingMoney().IsPositive() {
			continue
		}
		open = append(open, c)
	}
	return open
}

func targetKey(t TargetType, id uuid.UUID) string {
	return string(t) + ":" + id.String()
}
