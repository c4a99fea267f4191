package receivable

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appperiod "github.com/arledger/backend/internal/application/period"
	"github.com/arledger/backend/internal/domain/audit"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/domain/shared/valueobject"
)

const (
	testSeller   = "0100000001"
	testCustomer = "0312345678"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

type fixture struct {
	invoices    *memInvoiceRepo
	advances    *memAdvanceRepo
	receipts    *memReceiptRepo
	locks       *memLockRepo
	sink        *recordingSink
	events      *recordingPublisher
	maintenance *period.MaintenanceState
	alloc       *AllocationService
	debts       *DebtService
}

func newFixture() *fixture {
	f := &fixture{
		invoices:    newMemInvoiceRepo(),
		advances:    newMemAdvanceRepo(),
		receipts:    newMemReceiptRepo(),
		locks:       newMemLockRepo(),
		sink:        &recordingSink{},
		events:      &recordingPublisher{},
		maintenance: period.NewMaintenanceState(),
	}
	logger := zap.NewNop()
	guard := appperiod.NewGuard(f.locks, logger)
	txScope := &NoOpTransactionScope{Repos: TransactionalRepositories{
		Invoices: f.invoices,
		Advances: f.advances,
		Receipts: f.receipts,
		Audit:    f.sink,
	}}
	f.alloc = NewAllocationService(f.receipts, f.invoices, f.advances, txScope, guard, f.maintenance, f.events, logger)
	f.debts = NewDebtService(f.invoices, f.advances, f.receipts, guard, f.maintenance, f.sink, NoOpCacheInvalidator{}, logger)
	return f
}

func (f *fixture) seedInvoice(t *testing.T, number, amount string, issueDate time.Time) *receivable.Invoice {
	t.Helper()
	total, err := valueobject.NewMoney(dec(t, amount), valueobject.VND)
	require.NoError(t, err)
	invoice, err := receivable.NewInvoice(number, testSeller, testCustomer, issueDate, total)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Save(context.Background(), invoice))
	return invoice
}

func (f *fixture) seedAdvance(t *testing.T, number, amount string, advanceDate time.Time) *receivable.Advance {
	t.Helper()
	total, err := valueobject.NewMoney(dec(t, amount), valueobject.VND)
	require.NoError(t, err)
	advance, err := receivable.NewAdvance(number, testSeller, testCustomer, advanceDate, total)
	require.NoError(t, err)
	require.NoError(t, f.advances.Save(context.Background(), advance))
	return advance
}

func (f *fixture) seedReceipt(t *testing.T, number, amount string, priority receivable.AllocationPriority, effectiveDate time.Time) *receivable.Receipt {
	t.Helper()
	money, err := valueobject.NewMoney(dec(t, amount), valueobject.VND)
	require.NoError(t, err)
	mode := receivable.AllocationModeAuto
	if priority == receivable.AllocationPriorityManualSelection {
		mode = receivable.AllocationModeManual
	}
	receipt, err := receivable.NewReceipt(number, testSeller, testCustomer, money, mode, priority, effectiveDate)
	require.NoError(t, err)
	require.NoError(t, f.receipts.Save(context.Background(), receipt))
	return receipt
}

func (f *fixture) lockMonth(t *testing.T, date time.Time) *period.PeriodLock {
	t.Helper()
	key, err := period.KeyFor(period.PeriodTypeMonth, date)
	require.NoError(t, err)
	lock, err := period.NewPeriodLock(period.PeriodTypeMonth, key, "cfo", "month closed")
	require.NoError(t, err)
	require.NoError(t, f.locks.Save(context.Background(), lock))
	return lock
}

var (
	january  = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	february = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	march    = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
)

func TestAllocationService_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("issue date priority splits oldest first", func(t *testing.T) {
		f := newFixture()
		inv1 := f.seedInvoice(t, "INV-001", "300.00", january)
		inv2 := f.seedInvoice(t, "INV-002", "500.00", february)

		plan, err := f.alloc.Preview(ctx, PreviewRequest{
			SellerTaxCode:   testSeller,
			CustomerTaxCode: testCustomer,
			Amount:          dec(t, "400.00"),
			Currency:        valueobject.VND,
			Mode:            receivable.AllocationModeAuto,
			Priority:        receivable.AllocationPriorityIssueDate,
		})
		require.NoError(t, err)
		require.Len(t, plan.Lines, 2)
		assert.Equal(t, inv1.ID, plan.Lines[0].TargetID)
		assert.True(t, plan.Lines[0].Amount.Equal(dec(t, "300.00")))
		assert.Equal(t, inv2.ID, plan.Lines[1].TargetID)
		assert.True(t, plan.Lines[1].Amount.Equal(dec(t, "100.00")))
		assert.True(t, plan.UnallocatedAmount.IsZero())
	})

	t.Run("applied period start excludes older debts", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "300.00", january)
		inv2 := f.seedInvoice(t, "INV-002", "500.00", february)

		plan, err := f.alloc.Preview(ctx, PreviewRequest{
			SellerTaxCode:      testSeller,
			CustomerTaxCode:    testCustomer,
			Amount:             dec(t, "400.00"),
			Currency:           valueobject.VND,
			Mode:               receivable.AllocationModeAuto,
			Priority:           receivable.AllocationPriorityIssueDate,
			AppliedPeriodStart: &february,
		})
		require.NoError(t, err)
		require.Len(t, plan.Lines, 1)
		assert.Equal(t, inv2.ID, plan.Lines[0].TargetID)
		assert.True(t, plan.Lines[0].Amount.Equal(dec(t, "400.00")))
		assert.True(t, plan.UnallocatedAmount.IsZero())
	})

	t.Run("preview persists nothing", func(t *testing.T) {
		f := newFixture()
		inv := f.seedInvoice(t, "INV-001", "300.00", january)

		_, err := f.alloc.Preview(ctx, PreviewRequest{
			SellerTaxCode:   testSeller,
			CustomerTaxCode: testCustomer,
			Amount:          dec(t, "200.00"),
			Currency:        valueobject.VND,
			Mode:            receivable.AllocationModeAuto,
			Priority:        receivable.AllocationPriorityIssueDate,
		})
		require.NoError(t, err)

		stored, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, stored.OutstandingAmount.Equal(dec(t, "300.00")))
		assert.Equal(t, 1, stored.Version)
		assert.Empty(t, f.sink.entries)
	})

	t.Run("non positive amount rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.alloc.Preview(ctx, PreviewRequest{
			SellerTaxCode:   testSeller,
			CustomerTaxCode: testCustomer,
			Amount:          decimal.Zero,
			Currency:        valueobject.VND,
			Mode:            receivable.AllocationModeAuto,
			Priority:        receivable.AllocationPriorityIssueDate,
		})
		assertDomainCode(t, err, shared.CodeInvalidAmount)

		_, err = f.alloc.Preview(ctx, PreviewRequest{
			SellerTaxCode:   testSeller,
			CustomerTaxCode: testCustomer,
			Amount:          dec(t, "-10"),
			Currency:        valueobject.VND,
			Mode:            receivable.AllocationModeAuto,
			Priority:        receivable.AllocationPriorityIssueDate,
		})
		assertDomainCode(t, err, shared.CodeInvalidAmount)
	})

	t.Run("invalid mode rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.alloc.Preview(ctx, PreviewRequest{
			SellerTaxCode:   testSeller,
			CustomerTaxCode: testCustomer,
			Amount:          dec(t, "100"),
			Currency:        valueobject.VND,
			Mode:            receivable.AllocationMode("BULK"),
			Priority:        receivable.AllocationPriorityIssueDate,
		})
		assertDomainCode(t, err, shared.CodeInvalidRequest)
	})

	t.Run("missing tax codes rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.alloc.Preview(ctx, PreviewRequest{
			CustomerTaxCode: testCustomer,
			Amount:          dec(t, "100"),
			Currency:        valueobject.VND,
			Mode:            receivable.AllocationModeAuto,
			Priority:        receivable.AllocationPriorityIssueDate,
		})
		assertDomainCode(t, err, shared.CodeInvalidRequest)
	})
}

func TestAllocationService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("commits plan across invoice and advance", func(t *testing.T) {
		f := newFixture()
		inv := f.seedInvoice(t, "INV-001", "300.00", january)
		adv := f.seedAdvance(t, "ADV-001", "200.00", february)
		receipt := f.seedReceipt(t, "RCP-001", "400.00", receivable.AllocationPriorityIssueDate, march)

		approved, plan, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)
		require.Len(t, plan.Lines, 2)

		assert.Equal(t, receivable.ReceiptStatusApproved, approved.Status)
		assert.Equal(t, receivable.AllocationStatusAllocated, approved.AllocationStatus)
		assert.True(t, approved.UnallocatedAmount.IsZero())

		storedInv, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, storedInv.OutstandingAmount.IsZero())
		assert.Equal(t, receivable.DebtStatusPaid, storedInv.Status)
		assert.Equal(t, 2, storedInv.Version)

		storedAdv, err := f.advances.FindByID(ctx, adv.ID)
		require.NoError(t, err)
		assert.True(t, storedAdv.OutstandingAmount.Equal(dec(t, "100.00")))
		assert.Equal(t, receivable.DebtStatusPartial, storedAdv.Status)

		storedReceipt, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusApproved, storedReceipt.Status)
		assert.Len(t, storedReceipt.ActiveAllocations(), 2)

		// one audit entry per applied line plus the receipt itself
		assert.Equal(t, 3, f.sink.countByAction(audit.ActionReceiptApproved))
		assert.Contains(t, f.events.eventTypes(), receivable.EventTypeReceiptApproved)
	})

	t.Run("partial allocation keeps remainder unallocated", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "250.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "400.00", receivable.AllocationPriorityIssueDate, march)

		approved, plan, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)
		assert.True(t, plan.UnallocatedAmount.Equal(dec(t, "150.00")))
		assert.Equal(t, receivable.AllocationStatusPartial, approved.AllocationStatus)
		assert.True(t, approved.UnallocatedAmount.Equal(dec(t, "150.00")))
		require.NoError(t, approved.CheckConservation())
	})

	t.Run("manual selection follows caller order", func(t *testing.T) {
		f := newFixture()
		inv1 := f.seedInvoice(t, "INV-001", "300.00", january)
		inv2 := f.seedInvoice(t, "INV-002", "500.00", february)
		receipt := f.seedReceipt(t, "RCP-001", "400.00", receivable.AllocationPriorityManualSelection, march)

		_, plan, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			SelectedTargets: []receivable.SelectedTarget{
				{TargetType: receivable.TargetTypeInvoice, TargetID: inv2.ID, Amount: dec(t, "350.00")},
				{TargetType: receivable.TargetTypeInvoice, TargetID: inv1.ID, Amount: dec(t, "50.00")},
			},
			Actor: "accountant-1",
		})
		require.NoError(t, err)
		require.Len(t, plan.Lines, 2)
		assert.Equal(t, inv2.ID, plan.Lines[0].TargetID)
		assert.Equal(t, inv1.ID, plan.Lines[1].TargetID)

		storedInv1, err := f.invoices.FindByID(ctx, inv1.ID)
		require.NoError(t, err)
		assert.True(t, storedInv1.OutstandingAmount.Equal(dec(t, "250.00")))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		f := newFixture()
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)

		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version + 10,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeConcurrencyConflict)
	})

	t.Run("competing writer wins the target compare-and-swap", func(t *testing.T) {
		f := newFixture()
		inv := f.seedInvoice(t, "INV-001", "500.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "300.00", receivable.AllocationPriorityIssueDate, march)

		// Another approval committed against the same invoice between this
		// transaction's read and its write: outstanding moved, version bumped.
		f.invoices.beforeLockedSave = func() {
			stored := f.invoices.items[inv.ID]
			stored.OutstandingAmount = stored.OutstandingAmount.Sub(dec(t, "200.00"))
			stored.Version++
		}

		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeConcurrencyConflict)

		storedInv, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, storedInv.OutstandingAmount.Equal(dec(t, "300.00")),
			"loser must not stack its decrement on the winner's")
		assert.Equal(t, 2, storedInv.Version)

		storedReceipt, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusDraft, storedReceipt.Status)
		assert.Empty(t, storedReceipt.Allocations)
	})

	t.Run("unknown receipt not found", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: uuid.New(),
			Version:   1,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeNotFound)
	})

	t.Run("approved receipt cannot be approved again", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "100.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)

		approved, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)

		_, _, err = f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   approved.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeInvalidState)
	})

	t.Run("locked period blocks approval", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "100.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)
		f.lockMonth(t, march)

		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodePeriodLocked)
	})

	t.Run("override with blank reason rejected", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "100.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)
		f.lockMonth(t, march)

		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID:          receipt.ID,
			Version:            receipt.Version,
			OverridePeriodLock: true,
			OverrideReason:     "   ",
			Actor:              "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeInvalidRequest)
	})

	t.Run("override with reason proceeds and is audited", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "100.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)
		f.lockMonth(t, march)

		approved, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID:          receipt.ID,
			Version:            receipt.Version,
			OverridePeriodLock: true,
			OverrideReason:     "late correction approved by CFO",
			Actor:              "accountant-1",
		})
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusApproved, approved.Status)
		assert.Equal(t, 1, f.sink.countByAction(audit.ActionOverrideApplied))
	})

	t.Run("maintenance mode suspends writes", func(t *testing.T) {
		f := newFixture()
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)
		f.maintenance.Enter("rebuilding balances")

		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeInvalidState)

		f.maintenance.Leave()
		_, _, err = f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)
	})
}

func TestAllocationService_Void(t *testing.T) {
	ctx := context.Background()

	approve := func(t *testing.T, f *fixture, receipt *receivable.Receipt) *receivable.Receipt {
		t.Helper()
		approved, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)
		return approved
	}

	t.Run("reverses every allocation and restores outstanding", func(t *testing.T) {
		f := newFixture()
		inv := f.seedInvoice(t, "INV-001", "300.00", january)
		adv := f.seedAdvance(t, "ADV-001", "200.00", february)
		receipt := f.seedReceipt(t, "RCP-001", "400.00", receivable.AllocationPriorityIssueDate, march)
		approved := approve(t, f, receipt)

		result, err := f.alloc.Void(ctx, VoidReceiptRequest{
			ReceiptID: receipt.ID,
			Reason:    "entered against wrong customer",
			Version:   approved.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.ReversedAllocationCount)
		assert.True(t, result.ReversedAmount.Equal(dec(t, "400.00")))

		storedInv, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, storedInv.OutstandingAmount.Equal(dec(t, "300.00")))
		assert.Equal(t, receivable.DebtStatusOpen, storedInv.Status)

		storedAdv, err := f.advances.FindByID(ctx, adv.ID)
		require.NoError(t, err)
		assert.True(t, storedAdv.OutstandingAmount.Equal(dec(t, "200.00")))

		storedReceipt, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusVoid, storedReceipt.Status)
		assert.Equal(t, "entered against wrong customer", storedReceipt.VoidReason)
		assert.Empty(t, storedReceipt.ActiveAllocations())
		assert.Len(t, storedReceipt.Allocations, 2)
	})

	t.Run("draft receipt cannot be voided", func(t *testing.T) {
		f := newFixture()
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)

		_, err := f.alloc.Void(ctx, VoidReceiptRequest{
			ReceiptID: receipt.ID,
			Reason:    "mistake",
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeInvalidState)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "100.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)
		approve(t, f, receipt)

		_, err := f.alloc.Void(ctx, VoidReceiptRequest{
			ReceiptID: receipt.ID,
			Reason:    "mistake",
			Version:   1, // approval bumped it
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeConcurrencyConflict)
	})
}

func TestAllocationService_Unvoid(t *testing.T) {
	ctx := context.Background()

	setupVoided := func(t *testing.T, f *fixture, invoiceAmount, receiptAmount string) (*receivable.Invoice, *receivable.Receipt) {
		t.Helper()
		inv := f.seedInvoice(t, "INV-001", invoiceAmount, january)
		receipt := f.seedReceipt(t, "RCP-001", receiptAmount, receivable.AllocationPriorityIssueDate, march)
		approved, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID, Version: receipt.Version, Actor: "accountant-1",
		})
		require.NoError(t, err)
		_, err = f.alloc.Void(ctx, VoidReceiptRequest{
			ReceiptID: receipt.ID, Reason: "duplicate entry", Version: approved.Version, Actor: "accountant-1",
		})
		require.NoError(t, err)
		return inv, receipt
	}

	t.Run("re-applies the retained plan", func(t *testing.T) {
		f := newFixture()
		inv, receipt := setupVoided(t, f, "300.00", "200.00")

		stored, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)

		unvoided, err := f.alloc.Unvoid(ctx, UnvoidReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   stored.Version,
			Actor:     "accountant-1",
		})
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusApproved, unvoided.Status)
		assert.Empty(t, unvoided.VoidReason)
		assert.Nil(t, unvoided.VoidedAt)

		storedInv, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, storedInv.OutstandingAmount.Equal(dec(t, "100.00")))
		assert.Equal(t, 1, f.sink.countByAction(audit.ActionReceiptUnvoided))
	})

	t.Run("fails when the target no longer has outstanding", func(t *testing.T) {
		f := newFixture()
		inv, receipt := setupVoided(t, f, "300.00", "200.00")

		// another receipt consumes the invoice in the meantime
		other := f.seedReceipt(t, "RCP-002", "300.00", receivable.AllocationPriorityIssueDate, march)
		_, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: other.ID, Version: other.Version, Actor: "accountant-2",
		})
		require.NoError(t, err)

		stored, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)

		_, err = f.alloc.Unvoid(ctx, UnvoidReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   stored.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeInsufficientOutstanding)

		storedInv, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, storedInv.OutstandingAmount.IsZero())
		storedReceipt, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusVoid, storedReceipt.Status)
	})

	t.Run("only voided receipts can be unvoided", func(t *testing.T) {
		f := newFixture()
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)

		_, err := f.alloc.Unvoid(ctx, UnvoidReceiptRequest{
			ReceiptID: receipt.ID,
			Version:   receipt.Version,
			Actor:     "accountant-1",
		})
		assertDomainCode(t, err, shared.CodeInvalidState)
	})
}

func TestAllocationService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a draft", func(t *testing.T) {
		f := newFixture()
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)

		cancelled, err := f.alloc.Cancel(ctx, receipt.ID, receipt.Version)
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusCancelled, cancelled.Status)

		stored, err := f.receipts.FindByID(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receivable.ReceiptStatusCancelled, stored.Status)
	})

	t.Run("approved receipt cannot be cancelled", func(t *testing.T) {
		f := newFixture()
		f.seedInvoice(t, "INV-001", "100.00", january)
		receipt := f.seedReceipt(t, "RCP-001", "100.00", receivable.AllocationPriorityIssueDate, march)
		approved, _, err := f.alloc.Approve(ctx, ApproveReceiptRequest{
			ReceiptID: receipt.ID, Version: receipt.Version, Actor: "accountant-1",
		})
		require.NoError(t, err)

		_, err = f.alloc.Cancel(ctx, receipt.ID, approved.Version)
		assertDomainCode(t, err, shared.CodeInvalidState)
	})

	t.Run("unknown receipt not found", func(t *testing.T) {
		f := newFixture()
		_, err := f.alloc.Cancel(ctx, uuid.New(), 1)
		assertDomainCode(t, err, shared.CodeNotFound)
	})
}
