package receivable

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arledger/backend/internal/domain/shared"
)

func newTestReceipt(t *testing.T, amount string) *Receipt {
	t.Helper()
	r, err := NewReceipt("RCP-001", "0100000001", "0312345678",
		vnd(t, amount), AllocationModeAuto, AllocationPriorityIssueDate,
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return r
}

func planOf(lines ...PlanLine) *AllocationPlan {
	return &AllocationPlan{Lines: lines}
}

func TestNewReceipt(t *testing.T) {
	t.Run("starts as unallocated draft", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")

		assert.Equal(t, ReceiptStatusDraft, r.Status)
		assert.Equal(t, AllocationStatusUnallocated, r.AllocationStatus)
		assert.True(t, r.UnallocatedAmount.Equal(r.Amount))
		assert.Empty(t, r.Allocations)
	})

	t.Run("rejects invalid mode", func(t *testing.T) {
		_, err := NewReceipt("RCP-002", "0100000001", "0312345678",
			vnd(t, "100"), AllocationMode("HYBRID"), AllocationPriorityIssueDate, time.Now())
		assertDomainCode(t, err, shared.CodeInvalidRequest)
	})

	t.Run("rejects invalid priority", func(t *testing.T) {
		_, err := NewReceipt("RCP-003", "0100000001", "0312345678",
			vnd(t, "100"), AllocationModeAuto, AllocationPriority("NEWEST"), time.Now())
		assertDomainCode(t, err, shared.CodeInvalidRequest)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewReceipt("RCP-004", "0100000001", "0312345678",
			vnd(t, "0"), AllocationModeAuto, AllocationPriorityIssueDate, time.Now())
		assertDomainCode(t, err, shared.CodeInvalidAmount)
	})
}

func TestReceiptApprove(t *testing.T) {
	t.Run("commits plan lines and conserves money", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		plan := planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: uuid.New(), Amount: decimal.RequireFromString("600.00")},
			PlanLine{TargetType: TargetTypeAdvance, TargetID: uuid.New(), Amount: decimal.RequireFromString("250.00")},
		)

		require.NoError(t, r.Approve(plan))

		assert.Equal(t, ReceiptStatusApproved, r.Status)
		assert.Equal(t, AllocationStatusPartial, r.AllocationStatus)
		assert.True(t, r.UnallocatedAmount.Equal(decimal.RequireFromString("150.00")))
		assert.Len(t, r.ActiveAllocations(), 2)
		assert.NoError(t, r.CheckConservation())
	})

	t.Run("fully allocated plan", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		plan := planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: uuid.New(), Amount: decimal.RequireFromString("1000.00")},
		)

		require.NoError(t, r.Approve(plan))
		assert.Equal(t, AllocationStatusAllocated, r.AllocationStatus)
		assert.True(t, r.UnallocatedAmount.IsZero())
	})

	t.Run("empty plan leaves receipt unallocated", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")

		require.NoError(t, r.Approve(planOf()))
		assert.Equal(t, ReceiptStatusApproved, r.Status)
		assert.Equal(t, AllocationStatusUnallocated, r.AllocationStatus)
	})

	t.Run("rejects plan exceeding receipt amount", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		plan := planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: uuid.New(), Amount: decimal.RequireFromString("1000.01")},
		)
		assertDomainCode(t, r.Approve(plan), shared.CodeInvalidRequest)
	})

	t.Run("rejects non-positive plan lines", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		plan := planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: uuid.New(), Amount: decimal.Zero},
		)
		assertDomainCode(t, r.Approve(plan), shared.CodeInvalidRequest)
	})

	t.Run("rejects approve from cancelled", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		require.NoError(t, r.Cancel())
		assertDomainCode(t, r.Approve(planOf()), shared.CodeInvalidState)
	})

	t.Run("emits approved event", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		require.NoError(t, r.Approve(planOf()))
		events := r.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeReceiptApproved, events[0].EventType())
	})
}

func TestReceiptVoid(t *testing.T) {
	t.Run("marks lines reversed and frees the amount", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		target := uuid.New()
		require.NoError(t, r.Approve(planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: target, Amount: decimal.RequireFromString("700.00")},
		)))

		require.NoError(t, r.Void("paid into wrong account"))

		assert.Equal(t, ReceiptStatusVoid, r.Status)
		assert.Equal(t, AllocationStatusUnallocated, r.AllocationStatus)
		assert.True(t, r.UnallocatedAmount.Equal(r.Amount))
		assert.Empty(t, r.ActiveAllocations())
		assert.Len(t, r.Allocations, 1)
		assert.True(t, r.Allocations[0].Reversed)
		assert.NoError(t, r.CheckConservation())
	})

	t.Run("requires a reason", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		require.NoError(t, r.Approve(planOf()))
		assertDomainCode(t, r.Void(""), shared.CodeInvalidRequest)
	})

	t.Run("only approved receipts can be voided", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		assertDomainCode(t, r.Void("reason"), shared.CodeInvalidState)
	})
}

func TestReceiptRetainedPlan(t *testing.T) {
	t.Run("rebuilds the reversed plan in original order", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		first, second := uuid.New(), uuid.New()
		require.NoError(t, r.Approve(planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: first, Amount: decimal.RequireFromString("600.00")},
			PlanLine{TargetType: TargetTypeAdvance, TargetID: second, Amount: decimal.RequireFromString("300.00")},
		)))
		require.NoError(t, r.Void("wrong customer"))

		plan, err := r.RetainedPlan()
		require.NoError(t, err)
		require.Len(t, plan.Lines, 2)
		assert.Equal(t, first, plan.Lines[0].TargetID)
		assert.Equal(t, second, plan.Lines[1].TargetID)
		assert.True(t, plan.UnallocatedAmount.Equal(decimal.RequireFromString("100.00")))
	})

	t.Run("only void receipts carry a retained plan", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		_, err := r.RetainedPlan()
		assertDomainCode(t, err, shared.CodeInvalidState)
	})

	t.Run("unvoid re-applies the retained plan through approve", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		target := uuid.New()
		require.NoError(t, r.Approve(planOf(
			PlanLine{TargetType: TargetTypeInvoice, TargetID: target, Amount: decimal.RequireFromString("400.00")},
		)))
		require.NoError(t, r.Void("bank rejected"))

		plan, err := r.RetainedPlan()
		require.NoError(t, err)
		require.NoError(t, r.Approve(plan))

		assert.Equal(t, ReceiptStatusApproved, r.Status)
		assert.Nil(t, r.VoidedAt)
		assert.Empty(t, r.VoidReason)
		assert.True(t, r.UnallocatedAmount.Equal(decimal.RequireFromString("600.00")))
		assert.NoError(t, r.CheckConservation())
	})
}

func TestReceiptCancel(t *testing.T) {
	t.Run("cancels an untouched draft", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		require.NoError(t, r.Cancel())
		assert.Equal(t, ReceiptStatusCancelled, r.Status)
		assert.True(t, r.Status.IsTerminal())
	})

	t.Run("approved receipts cannot be cancelled", func(t *testing.T) {
		r := newTestReceipt(t, "1000.00")
		require.NoError(t, r.Approve(planOf()))
		assertDomainCode(t, r.Cancel(), shared.CodeInvalidState)
	})
}

func TestReceiptStatusValues(t *testing.T) {
	assert.True(t, ReceiptStatusDraft.IsValid())
	assert.True(t, ReceiptStatusApproved.IsValid())
	assert.True(t, ReceiptStatusVoid.IsValid())
	assert.True(t, ReceiptStatusCancelled.IsValid())
	assert.False(t, ReceiptStatus("PENDING").IsValid())

	assert.False(t, ReceiptStatusDraft.IsTerminal())
	assert.True(t, ReceiptStatusCancelled.IsTerminal())
}
