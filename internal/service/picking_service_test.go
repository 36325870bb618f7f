package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistique-service/internal/lifecycle"
	"logistique-service/internal/models"
	"logistique-service/internal/store"
)

func singleLot(string, int) int { return 1 }
func doubleLot(string, int) int { return 2 }

// newFixture seeds a confirmed order, moves it into preparation and
// returns the service together with the created task id. Redis and the
// event publisher stay nil so tests exercise the domain logic alone.
func newFixture(t *testing.T, planner LotPlanner, items ...models.LineItem) (*PickingService, *store.Store, string) {
	t.Helper()
	if len(items) == 0 {
		items = []models.LineItem{{ProductID: "PRD-A", Quantity: 10}}
	}
	st := store.NewStore()
	require.NoError(t, st.PutSalesOrder(&models.SalesOrder{
		ID:           "BC-1",
		Number:       "BC-2024-0001",
		Client:       "Boulangerie Martin",
		DeliveryDate: time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC),
		Items:        items,
		Status:       models.SalesOrderConfirmed,
		CreatedAt:    time.Now(),
	}))

	svc := NewPickingService(st, nil, nil, 0, 0, planner)
	taskID, err := svc.PrepareSalesOrder(context.Background(), "BC-1")
	require.NoError(t, err)
	return svc, st, taskID
}

func TestPrepareSalesOrder(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)

	order, err := st.GetSalesOrder("BC-1")
	require.NoError(t, err)
	assert.Equal(t, models.SalesOrderInPreparation, order.Status)

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingPending, task.Status)
	assert.Equal(t, "BC-1", task.SalesOrderID)
	assert.Equal(t, order.Items, task.Lines)

	// the order already left CONFIRMED, a second prepare is illegal
	_, err = svc.PrepareSalesOrder(context.Background(), "BC-1")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestPrepareUnknownOrder(t *testing.T) {
	svc := NewPickingService(store.NewStore(), nil, nil, 0, 0, singleLot)
	_, err := svc.PrepareSalesOrder(context.Background(), "BC-GHOST")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFirstScanStartsTask(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)

	lot, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "LOT-42", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, lot.Quantity, "a single planned lot takes the full requirement")
	assert.Equal(t, "LOT-42", lot.LotNumber)

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingInProgress, task.Status)
	require.Len(t, task.ScannedLots, 1)
}

func TestSecondScanOfSingleLotProductRejected(t *testing.T) {
	svc, _, taskID := newFixture(t, singleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)

	_, err = svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	assert.ErrorIs(t, err, ErrLotLimit)
	assert.ErrorIs(t, err, ErrScanPolicy)
}

func TestTwoLotPlanEnforcesExactRemainder(t *testing.T) {
	svc, st, taskID := newFixture(t, doubleLot)

	// first lot: any strict subset of the requirement
	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 4)
	require.NoError(t, err)

	// second lot is final: 5 of the remaining 6 is not acceptable
	_, err = svc.ScanLot(context.Background(), taskID, "PRD-A", "", 5)
	assert.ErrorIs(t, err, ErrLotQuantity)

	lot, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, lot.Quantity)

	// the plan is exhausted
	_, err = svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	assert.ErrorIs(t, err, ErrLotLimit)

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.True(t, task.FullyScanned())
}

func TestTwoLotDerivedQuantities(t *testing.T) {
	svc, _, taskID := newFixture(t, doubleLot)

	first, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Quantity)

	second, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, second.Quantity)
}

func TestFirstLotMayNotTakeEverything(t *testing.T) {
	svc, _, taskID := newFixture(t, doubleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 10)
	assert.ErrorIs(t, err, ErrLotQuantity)
}

func TestScanUnknownProduct(t *testing.T) {
	svc, _, taskID := newFixture(t, singleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-GHOST", "", 0)
	assert.ErrorIs(t, err, ErrProductNotOnTask)
}

func TestScannerAutoPicksNextLine(t *testing.T) {
	svc, _, taskID := newFixture(t, singleLot,
		models.LineItem{ProductID: "PRD-A", Quantity: 4},
		models.LineItem{ProductID: "PRD-B", Quantity: 6},
	)

	first, err := svc.ScanLot(context.Background(), taskID, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "PRD-A", first.ProductID)

	second, err := svc.ScanLot(context.Background(), taskID, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "PRD-B", second.ProductID)

	_, err = svc.ScanLot(context.Background(), taskID, "", "", 0)
	assert.ErrorIs(t, err, ErrAllPrepared)
}

func TestScanGeneratesLotNumber(t *testing.T) {
	svc, _, taskID := newFixture(t, singleLot)

	lot, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, lot.LotNumber)
}

func TestCancelledContextAbortsBeforeMutation(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)
	svc.scanDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ScanLot(ctx, taskID, "PRD-A", "", 0)
	assert.ErrorIs(t, err, context.Canceled)

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingPending, task.Status)
	assert.Empty(t, task.ScannedLots)
}

func TestCompleteRequiresFullScan(t *testing.T) {
	svc, _, taskID := newFixture(t, doubleLot)

	// still PENDING
	_, err := svc.CompletePickingTask(context.Background(), taskID)
	assert.ErrorIs(t, err, ErrTaskNotReady)

	_, err = svc.ScanLot(context.Background(), taskID, "PRD-A", "", 4)
	require.NoError(t, err)

	// in progress but 6 units short
	_, err = svc.CompletePickingTask(context.Background(), taskID)
	assert.ErrorIs(t, err, ErrTaskNotReady)
}

func TestCompleteCreatesDeliveryNote(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "LOT-1", 0)
	require.NoError(t, err)

	noteID, err := svc.CompletePickingTask(context.Background(), taskID)
	require.NoError(t, err)

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingCompleted, task.Status)
	assert.Equal(t, noteID, task.DeliveryNoteID)

	note, err := st.GetDeliveryNote(noteID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryReadyToShip, note.Status)
	assert.Equal(t, taskID, note.PickingTaskID)
	assert.Equal(t, "Boulangerie Martin", note.Client)
	assert.Equal(t, task.Lines, note.Lines)
	assert.Equal(t, task.ScannedLots, note.ScannedLots)
	assert.Nil(t, note.ShippedAt)
}

func TestScanAfterCompletionRejected(t *testing.T) {
	svc, _, taskID := newFixture(t, singleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	_, err = svc.CompletePickingTask(context.Background(), taskID)
	require.NoError(t, err)

	_, err = svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

// shipFixture drives a task to a READY_TO_SHIP delivery note
func shipFixture(t *testing.T) (*PickingService, *store.Store, string) {
	t.Helper()
	svc, st, taskID := newFixture(t, singleLot)
	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	noteID, err := svc.CompletePickingTask(context.Background(), taskID)
	require.NoError(t, err)
	return svc, st, noteID
}

func TestShipSignInvoiceFlow(t *testing.T) {
	svc, st, noteID := shipFixture(t)

	shipped, err := svc.ShipDeliveryNote(context.Background(), noteID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	order, err := st.GetSalesOrder("BC-1")
	require.NoError(t, err)
	assert.Equal(t, models.SalesOrderShipped, order.Status)

	signed, err := svc.SignDeliveryNote(context.Background(), noteID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliverySigned, signed.Status)

	invoiced, err := svc.InvoiceDeliveryNote(context.Background(), noteID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryInvoiced, invoiced.Status)
	require.NotNil(t, invoiced.InvoicedAt)

	order, err = st.GetSalesOrder("BC-1")
	require.NoError(t, err)
	assert.Equal(t, models.SalesOrderInvoiced, order.Status)
}

func TestInvoiceIsTerminal(t *testing.T) {
	svc, _, noteID := shipFixture(t)

	_, err := svc.ShipDeliveryNote(context.Background(), noteID)
	require.NoError(t, err)
	_, err = svc.InvoiceDeliveryNote(context.Background(), noteID)
	require.NoError(t, err)

	_, err = svc.InvoiceDeliveryNote(context.Background(), noteID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	_, err = svc.ShipDeliveryNote(context.Background(), noteID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestInvoiceBeforeShipRejected(t *testing.T) {
	svc, _, noteID := shipFixture(t)

	_, err := svc.InvoiceDeliveryNote(context.Background(), noteID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestSignBeforeShipRejected(t *testing.T) {
	svc, _, noteID := shipFixture(t)

	_, err := svc.SignDeliveryNote(context.Background(), noteID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCancelPickingTask(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)

	require.NoError(t, svc.CancelPickingTask(context.Background(), taskID, "client called it off"))

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingCancelled, task.Status)

	// terminal: cannot cancel twice
	err = svc.CancelPickingTask(context.Background(), taskID, "again")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCancelSalesOrderCancelsActiveTask(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)

	require.NoError(t, svc.CancelSalesOrder(context.Background(), "BC-1", "credit hold"))

	order, err := st.GetSalesOrder("BC-1")
	require.NoError(t, err)
	assert.Equal(t, models.SalesOrderCancelled, order.Status)

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingCancelled, task.Status)
}

func TestCancelOrderLeavesCompletedTaskAlone(t *testing.T) {
	svc, st, taskID := newFixture(t, singleLot)
	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	_, err = svc.CompletePickingTask(context.Background(), taskID)
	require.NoError(t, err)

	// no active task remains; only the order transition happens
	require.NoError(t, svc.CancelSalesOrder(context.Background(), "BC-1", "too late"))

	task, err := st.GetPickingTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.PickingCompleted, task.Status)
}

func TestDefaultLotPlannerBounds(t *testing.T) {
	always := DefaultLotPlanner(1.0)
	never := DefaultLotPlanner(0.0)

	assert.Equal(t, 2, always("PRD-A", 10))
	assert.Equal(t, 1, never("PRD-A", 10))
	// a single unit can never split
	assert.Equal(t, 1, always("PRD-A", 1))
}

func TestLotPlanIsFixedPerTaskAndProduct(t *testing.T) {
	calls := 0
	planner := func(string, int) int {
		calls++
		return 2
	}
	svc, _, taskID := newFixture(t, planner)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 4)
	require.NoError(t, err)
	_, err = svc.ScanLot(context.Background(), taskID, "PRD-A", "", 6)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "the plan is decided once on first scan")
}

// injectScannedLot plants a lot on the task directly, modelling state
// imported from elsewhere rather than produced through ScanLot.
func injectScannedLot(t *testing.T, st *store.Store, taskID, productID string, quantity int) {
	t.Helper()
	_, err := st.UpdatePickingTask(taskID, func(task *models.PickingTask) error {
		task.ScannedLots = append(task.ScannedLots, models.ScannedLot{
			ProductID: productID,
			LotNumber: "LOT-SEED",
			Quantity:  quantity,
			ScannedAt: time.Now(),
		})
		task.Status = models.PickingInProgress
		return nil
	})
	require.NoError(t, err)
}

func TestScanRejectedWhenQuantityAlreadyMet(t *testing.T) {
	svc, st, taskID := newFixture(t, doubleLot)

	// one imported lot covers the line while the two-lot plan still has
	// a slot open, so the quantity check is what rejects the scan
	injectScannedLot(t, st, taskID, "PRD-A", 10)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	assert.ErrorIs(t, err, ErrQuantityMet)
	assert.ErrorIs(t, err, ErrScanPolicy)
}

func TestLotLimitRejectionWinsOverQuantityMet(t *testing.T) {
	svc, st, taskID := newFixture(t, doubleLot)

	// both rejection conditions hold: the plan is exhausted and the
	// quantity is met. The lot limit is reported.
	injectScannedLot(t, st, taskID, "PRD-A", 4)
	injectScannedLot(t, st, taskID, "PRD-A", 6)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	assert.ErrorIs(t, err, ErrLotLimit)
	assert.NotErrorIs(t, err, ErrQuantityMet)
}

func plansLen(svc *PickingService) int {
	svc.plansMu.Lock()
	defer svc.plansMu.Unlock()
	return len(svc.plans)
}

func TestCompletionDropsLotPlans(t *testing.T) {
	svc, _, taskID := newFixture(t, singleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 0)
	require.NoError(t, err)
	require.Equal(t, 1, plansLen(svc))

	_, err = svc.CompletePickingTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, 0, plansLen(svc), "a completed task keeps no lot plans")
}

func TestCancellationDropsLotPlans(t *testing.T) {
	svc, _, taskID := newFixture(t, doubleLot)

	_, err := svc.ScanLot(context.Background(), taskID, "PRD-A", "", 4)
	require.NoError(t, err)
	require.Equal(t, 1, plansLen(svc))

	require.NoError(t, svc.CancelPickingTask(context.Background(), taskID, "client called it off"))
	assert.Equal(t, 0, plansLen(svc), "a cancelled task keeps no lot plans")
}
