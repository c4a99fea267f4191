package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
)

// PeriodType is the granularity of an accounting period
type PeriodType string

const (
	PeriodTypeMonth   PeriodType = "MONTH"
	PeriodTypeQuarter PeriodType = "QUARTER"
	PeriodTypeYear    PeriodType = "YEAR"
)

// IsValid checks if the period type is valid
func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodTypeMonth, PeriodTypeQuarter, PeriodTypeYear:
		return true
	}
	return false
}

// String returns the string representation of PeriodType
func (t PeriodType) String() string {
	return string(t)
}

// CoarsestFirst lists period types from widest to narrowest; the guard
// checks them in this order so the coarsest matching lock wins.
var CoarsestFirst = []PeriodType{PeriodTypeYear, PeriodTypeQuarter, PeriodTypeMonth}

// KeyFor computes the canonical period key covering a date:
// YEAR "2026", QUARTER "2026-Q3", MONTH "2026-08".
func KeyFor(t PeriodType, date time.Time) (string, error) {
	switch t {
	case PeriodTypeYear:
		return fmt.Sprintf("%04d", date.Year()), nil
	case PeriodTypeQuarter:
		quarter := (int(date.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", date.Year(), quarter), nil
	case PeriodTypeMonth:
		return fmt.Sprintf("%04d-%02d", date.Year(), int(date.Month())), nil
	default:
		return "", shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid period type: %s", t))
	}
}

// PeriodLock freezes mutations whose effective date falls inside the
// period. Overrides are audited but never persisted as lock state.
type PeriodLock struct {
	shared.BaseAggregateRoot
	PeriodType   PeriodType
	PeriodKey    string
	LockedAt     time.Time
	LockedBy     string
	Note         string
	Active       bool
	UnlockedAt   *time.Time
	UnlockReason string
}

// NewPeriodLock creates an active lock for the given period
func NewPeriodLock(periodType PeriodType, periodKey, lockedBy, note string) (*PeriodLock, error) {
	if !periodType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, fmt.Sprintf("invalid period type: %s", periodType))
	}
	if periodKey == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "period key is required")
	}
	if lockedBy == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidRequest, "locked-by actor is required")
	}

	return &PeriodLock{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PeriodType:        periodType,
		PeriodKey:         periodKey,
		LockedAt:          time.Now(),
		LockedBy:          lockedBy,
		Note:              note,
		Active:            true,
	}, nil
}

// Unlock deactivates the lock; the reason is mandatory
func (l *PeriodLock) Unlock(reason string) error {
	if !l.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "period lock is not active")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError(shared.CodeInvalidRequest, "unlock reason is required")
	}

	now := time.Now()
	l.Active = false
	l.UnlockedAt = &now
	l.UnlockReason = reason
	l.IncrementVersion()
	l.UpdatedAt = now
	return nil
}

// Covers reports whether the lock's period contains the given date
func (l *PeriodLock) Covers(date time.Time) bool {
	key, err := KeyFor(l.PeriodType, date)
	if err != nil {
		return false
	}
	return l.Active && key == l.PeriodKey
}
