package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the engine
const (
	ActionReceiptApproved = "RECEIPT_APPROVED"
	ActionReceiptVoided   = "RECEIPT_VOIDED"
	ActionReceiptUnvoided = "RECEIPT_UNVOIDED"
	ActionDebtVoided      = "DEBT_VOIDED"
	ActionDebtUnvoided    = "DEBT_UNVOIDED"
	ActionPeriodLocked    = "PERIOD_LOCKED"
	ActionPeriodUnlocked  = "PERIOD_UNLOCKED"
	ActionOverrideApplied = "OVERRIDE_APPLIED"
	ActionBalanceSettled  = "BALANCE_SETTLED"
)

// Entry is one before/after snapshot written to the audit sink
type Entry struct {
	ID         uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Before     json.RawMessage
	After      json.RawMessage
	Actor      string
	OccurredAt time.Time
}

// NewEntry builds an entry, marshaling the snapshots. A nil snapshot is
// stored as JSON null.
func NewEntry(action, entityType, entityID string, before, after any, actor string) (Entry, error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return Entry{}, err
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     beforeJSON,
		After:      afterJSON,
		Actor:      actor,
		OccurredAt: time.Now(),
	}, nil
}

// Sink is the write-only audit path. The engine treats it as
// fire-and-forget semantically, but the write must succeed before the
// surrounding operation is considered committed.
type Sink interface {
	Log(ctx context.Context, entry Entry) error
}

// Retention deletes entries past the configured retention window
type Retention interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
