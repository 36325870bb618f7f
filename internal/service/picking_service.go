package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"logistique-service/internal/broker"
	"logistique-service/internal/lifecycle"
	"logistique-service/internal/models"
	"logistique-service/internal/redisclient"
	"logistique-service/internal/store"
	"logistique-service/internal/util"
)

var (
	// ErrScanPolicy is the parent of all user-correctable scan rejections
	ErrScanPolicy = errors.New("scan policy violation")

	ErrQuantityMet      = fmt.Errorf("%w: quantity already met", ErrScanPolicy)
	ErrAllPrepared      = fmt.Errorf("%w: all products already prepared", ErrScanPolicy)
	ErrLotLimit         = fmt.Errorf("%w: lot limit reached", ErrScanPolicy)
	ErrLotQuantity      = fmt.Errorf("%w: lot quantity does not match the lot plan", ErrScanPolicy)
	ErrProductNotOnTask = fmt.Errorf("%w: product is not on this task", ErrScanPolicy)

	// ErrTaskNotReady is returned when validation is attempted before
	// every line is fully scanned, or outside IN_PROGRESS.
	ErrTaskNotReady = errors.New("task not ready")

	// ErrScanInFlight is returned when another scan session holds the
	// task lock.
	ErrScanInFlight = errors.New("another scan is in flight for this task")
)

// LotPlanner decides, on a product's first scan within a task, whether
// its requirement will be fulfilled in 1 or 2 lots. The decision is
// fixed for the rest of the task.
type LotPlanner func(productID string, required int) int

// DefaultLotPlanner splits a product across two lots with probability p.
// A requirement of a single unit always collapses to one lot.
func DefaultLotPlanner(p float64) LotPlanner {
	return func(productID string, required int) int {
		if required <= 1 {
			return 1
		}
		if rand.Float64() < p {
			return 2
		}
		return 1
	}
}

// PickingService drives the scanning workflow: lot scans against a
// picking task, task validation into a delivery note, and the shipping
// and invoicing of delivery notes.
type PickingService struct {
	store     *store.Store
	redis     *redisclient.Client
	events    *broker.EventPublisher
	logger    *zap.Logger
	scanDelay time.Duration
	lockTTL   time.Duration
	planner   LotPlanner

	plansMu sync.Mutex
	plans   map[string]int // taskID+productID -> planned lot count
}

// NewPickingService creates a picking service. redis and events may be
// nil; locking and publishing are then skipped.
func NewPickingService(
	st *store.Store,
	redis *redisclient.Client,
	events *broker.EventPublisher,
	scanDelay time.Duration,
	lockTTL time.Duration,
	planner LotPlanner,
) *PickingService {
	if planner == nil {
		planner = DefaultLotPlanner(0.4)
	}
	return &PickingService{
		store:     st,
		redis:     redis,
		events:    events,
		logger:    util.GetLogger(),
		scanDelay: scanDelay,
		lockTTL:   lockTTL,
		planner:   planner,
		plans:     make(map[string]int),
	}
}

func planKey(taskID, productID string) string {
	return taskID + "|" + productID
}

// lotPlan returns the fixed lot count for the product within the task,
// deciding it on first use.
func (s *PickingService) lotPlan(taskID, productID string, required int) int {
	s.plansMu.Lock()
	defer s.plansMu.Unlock()
	key := planKey(taskID, productID)
	if plan, ok := s.plans[key]; ok {
		return plan
	}
	plan := s.planner(productID, required)
	if plan < 1 || plan > 2 {
		plan = 1
	}
	if required <= 1 {
		plan = 1
	}
	s.plans[key] = plan
	return plan
}

// dropPlans releases a task's lot-plan entries once the task reaches a
// terminal status; plans would otherwise accumulate for the process
// lifetime.
func (s *PickingService) dropPlans(taskID string) {
	prefix := taskID + "|"
	s.plansMu.Lock()
	defer s.plansMu.Unlock()
	for key := range s.plans {
		if strings.HasPrefix(key, prefix) {
			delete(s.plans, key)
		}
	}
}

// simulateScanDelay waits out the scanner latency. A cancelled context
// aborts before any mutation occurs.
func (s *PickingService) simulateScanDelay(ctx context.Context) error {
	if s.scanDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.scanDelay):
		return nil
	}
}

// ScanLot records one lot against a picking task. A quantity of zero
// asks the service to derive the quantity from the lot plan, modelling
// the scanner; a positive quantity is validated against the plan. The
// first successful scan moves the task PENDING -> IN_PROGRESS.
func (s *PickingService) ScanLot(ctx context.Context, taskID, productID, lotNumber string, quantity int) (*models.ScannedLot, error) {
	ctx, span := util.StartSpan(ctx, "PickingService.ScanLot")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ScanLatency.Observe(time.Since(start).Seconds())
	}()

	if s.redis != nil {
		acquired, err := s.redis.AcquireTaskLock(ctx, taskID, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire scan lock: %w", err)
		}
		if !acquired {
			util.ScansRejectedTotal.WithLabelValues("lock_held").Inc()
			return nil, ErrScanInFlight
		}
		defer func() {
			if err := s.redis.ReleaseTaskLock(context.Background(), taskID); err != nil {
				s.logger.Error("Failed to release scan lock",
					zap.String("picking_task_id", taskID), zap.Error(err))
			}
		}()
	}

	if err := s.simulateScanDelay(ctx); err != nil {
		return nil, err
	}

	if lotNumber == "" {
		lotNumber = fmt.Sprintf("LOT-%s", uuid.New().String()[:8])
	}

	var recorded models.ScannedLot
	_, err := s.store.UpdatePickingTask(taskID, func(task *models.PickingTask) error {
		if task.Status != models.PickingPending && task.Status != models.PickingInProgress {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindPickingTask)).Inc()
			return fmt.Errorf("%w: %s %s -> %s",
				lifecycle.ErrInvalidTransition, models.KindPickingTask, task.Status, models.PickingInProgress)
		}

		// An empty product id models the scanner choosing the next
		// under-fulfilled line itself.
		if productID == "" {
			for _, line := range task.Lines {
				if task.ScannedQuantity(line.ProductID) < task.RequiredQuantity(line.ProductID) {
					productID = line.ProductID
					break
				}
			}
			if productID == "" {
				util.ScansRejectedTotal.WithLabelValues("all_prepared").Inc()
				return ErrAllPrepared
			}
		}

		required := task.RequiredQuantity(productID)
		if required == 0 {
			util.ScansRejectedTotal.WithLabelValues("unknown_product").Inc()
			return ErrProductNotOnTask
		}

		plan := s.lotPlan(taskID, productID, required)
		lotIndex := task.LotCount(productID)
		if lotIndex >= plan {
			util.ScansRejectedTotal.WithLabelValues("lot_limit").Inc()
			return ErrLotLimit
		}

		scanned := task.ScannedQuantity(productID)
		if scanned >= required {
			util.ScansRejectedTotal.WithLabelValues("quantity_met").Inc()
			return ErrQuantityMet
		}

		remaining := required - scanned
		qty := quantity
		if qty <= 0 {
			qty = s.plannedQuantity(plan, lotIndex, required, remaining)
		}
		if err := validateLotQuantity(plan, lotIndex, remaining, qty); err != nil {
			util.ScansRejectedTotal.WithLabelValues("bad_quantity").Inc()
			return err
		}

		recorded = models.ScannedLot{
			ProductID: productID,
			LotNumber: lotNumber,
			Quantity:  qty,
			ScannedAt: time.Now(),
		}
		task.ScannedLots = append(task.ScannedLots, recorded)

		if task.Status == models.PickingPending {
			if err := lifecycle.AssertTransition(models.KindPickingTask, task.Status, models.PickingInProgress); err != nil {
				return err
			}
			task.Status = models.PickingInProgress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.LotsScannedTotal.Inc()
	s.logger.Info("Lot scanned",
		zap.String("picking_task_id", taskID),
		zap.String("product_id", productID),
		zap.String("lot_number", recorded.LotNumber),
		zap.Int("quantity", recorded.Quantity))

	s.publishLotScanned(ctx, taskID, recorded)
	s.invalidateSnapshots(ctx)
	return &recorded, nil
}

// plannedQuantity derives a scan quantity from the lot plan: a single
// planned lot takes everything remaining; the first of two lots takes
// roughly 30% (at least one unit, never all of it) and the second takes
// the exact remainder.
func (s *PickingService) plannedQuantity(plan, lotIndex, required, remaining int) int {
	if plan == 1 || lotIndex == plan-1 {
		return remaining
	}
	qty := required * 3 / 10
	if qty < 1 {
		qty = 1
	}
	if qty >= remaining {
		qty = remaining - 1
	}
	return qty
}

// validateLotQuantity enforces the plan contract on a caller-supplied
// quantity: the final planned lot covers exactly the remainder, an
// earlier lot covers a strict subset of it.
func validateLotQuantity(plan, lotIndex, remaining, qty int) error {
	if qty <= 0 {
		return ErrLotQuantity
	}
	final := lotIndex == plan-1
	if final && qty != remaining {
		return ErrLotQuantity
	}
	if !final && qty >= remaining {
		return ErrLotQuantity
	}
	return nil
}

// CompletePickingTask validates a fully scanned task, moving it to
// COMPLETED and atomically creating its delivery note in READY_TO_SHIP.
// Returns the new delivery note id.
func (s *PickingService) CompletePickingTask(ctx context.Context, taskID string) (string, error) {
	ctx, span := util.StartSpan(ctx, "PickingService.CompletePickingTask")
	defer span.End()

	// Resolve the parent order up front for the note header fields; the
	// parent reference on a task never changes.
	task, err := s.store.GetPickingTask(taskID)
	if err != nil {
		return "", err
	}
	order, err := s.store.GetSalesOrder(task.SalesOrderID)
	if err != nil {
		return "", fmt.Errorf("task %s has no parent order: %w", taskID, err)
	}

	note, err := s.store.CompletePickingAndCreateNote(taskID, func(task *models.PickingTask) (*models.DeliveryNote, error) {
		if task.Status != models.PickingInProgress || !task.FullyScanned() {
			return nil, fmt.Errorf("%w: task %s", ErrTaskNotReady, taskID)
		}
		if err := lifecycle.AssertTransition(models.KindPickingTask, task.Status, models.PickingCompleted); err != nil {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindPickingTask)).Inc()
			return nil, err
		}

		now := time.Now()
		note := &models.DeliveryNote{
			ID:            fmt.Sprintf("BL-%s", uuid.New().String()[:8]),
			PickingTaskID: task.ID,
			Number:        fmt.Sprintf("BL-%s", order.Number),
			Client:        order.Client,
			DeliveryDate:  order.DeliveryDate,
			Lines:         append([]models.LineItem(nil), task.Lines...),
			ScannedLots:   append([]models.ScannedLot(nil), task.ScannedLots...),
			Status:        models.DeliveryReadyToShip,
			CreatedAt:     now,
		}
		task.Status = models.PickingCompleted
		task.DeliveryNoteID = note.ID
		return note, nil
	})
	if err != nil {
		return "", err
	}

	s.dropPlans(taskID)
	util.PickingCompletedTotal.Inc()
	s.logger.Info("Picking task completed",
		zap.String("picking_task_id", taskID),
		zap.String("delivery_note_id", note.ID))

	s.publishPickingCompleted(ctx, taskID, note.ID)
	s.invalidateSnapshots(ctx)
	return note.ID, nil
}

// ShipDeliveryNote moves a note READY_TO_SHIP -> SHIPPED and stamps
// shippedAt. The real stock deduction is applied by the stock worker
// when it consumes the published event.
func (s *PickingService) ShipDeliveryNote(ctx context.Context, noteID string) (*models.DeliveryNote, error) {
	ctx, span := util.StartSpan(ctx, "PickingService.ShipDeliveryNote")
	defer span.End()

	note, err := s.store.UpdateDeliveryNote(noteID, func(note *models.DeliveryNote) error {
		if err := lifecycle.AssertTransition(models.KindDeliveryNote, note.Status, models.DeliveryShipped); err != nil {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindDeliveryNote)).Inc()
			return err
		}
		now := time.Now()
		note.Status = models.DeliveryShipped
		note.ShippedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.DeliveriesShippedTotal.Inc()
	s.logger.Info("Delivery note shipped", zap.String("delivery_note_id", noteID))

	s.advanceParentOrder(noteID, models.SalesOrderShipped)
	s.publishDeliveryShipped(ctx, note)
	s.invalidateSnapshots(ctx)
	return note, nil
}

// SignDeliveryNote records the client signature: SHIPPED -> SIGNED
func (s *PickingService) SignDeliveryNote(ctx context.Context, noteID string) (*models.DeliveryNote, error) {
	note, err := s.store.UpdateDeliveryNote(noteID, func(note *models.DeliveryNote) error {
		if err := lifecycle.AssertTransition(models.KindDeliveryNote, note.Status, models.DeliverySigned); err != nil {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindDeliveryNote)).Inc()
			return err
		}
		note.Status = models.DeliverySigned
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Delivery note signed", zap.String("delivery_note_id", noteID))
	if s.events != nil {
		event := &models.DeliverySignedEvent{
			BaseEvent:      newBaseEvent(models.EventTypeDeliverySigned),
			DeliveryNoteID: noteID,
		}
		if err := s.events.PublishDeliverySigned(ctx, event); err != nil {
			s.logger.Error("Failed to publish DeliverySigned event", zap.Error(err))
		}
	}
	s.invalidateSnapshots(ctx)
	return note, nil
}

// InvoiceDeliveryNote moves a note SHIPPED or SIGNED -> INVOICED and
// stamps invoicedAt. INVOICED is terminal.
func (s *PickingService) InvoiceDeliveryNote(ctx context.Context, noteID string) (*models.DeliveryNote, error) {
	ctx, span := util.StartSpan(ctx, "PickingService.InvoiceDeliveryNote")
	defer span.End()

	note, err := s.store.UpdateDeliveryNote(noteID, func(note *models.DeliveryNote) error {
		if err := lifecycle.AssertTransition(models.KindDeliveryNote, note.Status, models.DeliveryInvoiced); err != nil {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindDeliveryNote)).Inc()
			return err
		}
		now := time.Now()
		note.Status = models.DeliveryInvoiced
		note.InvoicedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.DeliveriesInvoicedTotal.Inc()
	s.logger.Info("Delivery note invoiced", zap.String("delivery_note_id", noteID))

	s.advanceParentOrder(noteID, models.SalesOrderInvoiced)
	s.publishDeliveryInvoiced(ctx, noteID)
	s.invalidateSnapshots(ctx)
	return note, nil
}

// PrepareSalesOrder accepts a confirmed order into preparation and
// creates its picking task. The store refuses a second active task for
// the same order.
func (s *PickingService) PrepareSalesOrder(ctx context.Context, orderID string) (string, error) {
	ctx, span := util.StartSpan(ctx, "PickingService.PrepareSalesOrder")
	defer span.End()

	order, err := s.store.GetSalesOrder(orderID)
	if err != nil {
		return "", err
	}
	if err := lifecycle.AssertTransition(models.KindSalesOrder, order.Status, models.SalesOrderInPreparation); err != nil {
		util.TransitionsRejectedTotal.WithLabelValues(string(models.KindSalesOrder)).Inc()
		return "", err
	}

	task := &models.PickingTask{
		ID:           fmt.Sprintf("BP-%s", uuid.New().String()[:8]),
		SalesOrderID: orderID,
		Lines:        append([]models.LineItem(nil), order.Items...),
		Status:       models.PickingPending,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreatePickingTask(task); err != nil {
		return "", err
	}

	if _, err := s.store.UpdateSalesOrder(orderID, func(o *models.SalesOrder) error {
		if err := lifecycle.AssertTransition(models.KindSalesOrder, o.Status, models.SalesOrderInPreparation); err != nil {
			return err
		}
		o.Status = models.SalesOrderInPreparation
		return nil
	}); err != nil {
		// Compensate: the task must not outlive a failed order update.
		if _, cerr := s.store.UpdatePickingTask(task.ID, func(t *models.PickingTask) error {
			t.Status = models.PickingCancelled
			return nil
		}); cerr != nil {
			s.logger.Error("Failed to compensate picking task creation",
				zap.String("picking_task_id", task.ID), zap.Error(cerr))
		}
		return "", err
	}

	s.logger.Info("Sales order accepted into preparation",
		zap.String("sales_order_id", orderID),
		zap.String("picking_task_id", task.ID))

	if s.events != nil {
		event := &models.PickingStartedEvent{
			BaseEvent:     newBaseEvent(models.EventTypePickingStarted),
			SalesOrderID:  orderID,
			PickingTaskID: task.ID,
		}
		if err := s.events.PublishPickingStarted(ctx, event); err != nil {
			s.logger.Error("Failed to publish PickingStarted event", zap.Error(err))
		}
	}
	s.invalidateSnapshots(ctx)
	return task.ID, nil
}

// CancelPickingTask cancels a pending or in-progress task
func (s *PickingService) CancelPickingTask(ctx context.Context, taskID, reason string) error {
	_, err := s.store.UpdatePickingTask(taskID, func(task *models.PickingTask) error {
		if err := lifecycle.AssertTransition(models.KindPickingTask, task.Status, models.PickingCancelled); err != nil {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindPickingTask)).Inc()
			return err
		}
		task.Status = models.PickingCancelled
		return nil
	})
	if err != nil {
		return err
	}

	s.dropPlans(taskID)
	util.PickingCancelledTotal.Inc()
	if s.events != nil {
		event := &models.PickingCancelledEvent{
			BaseEvent:     newBaseEvent(models.EventTypePickingCancelled),
			PickingTaskID: taskID,
			Reason:        reason,
		}
		if err := s.events.PublishPickingCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish PickingCancelled event", zap.Error(err))
		}
	}
	s.invalidateSnapshots(ctx)
	return nil
}

// CancelSalesOrder cancels an order, cancelling its active picking task
// first when one exists.
func (s *PickingService) CancelSalesOrder(ctx context.Context, orderID, reason string) error {
	if task, err := s.store.ActivePickingTaskForOrder(orderID); err == nil {
		if err := s.CancelPickingTask(ctx, task.ID, reason); err != nil {
			return fmt.Errorf("failed to cancel active task %s: %w", task.ID, err)
		}
	}

	_, err := s.store.UpdateSalesOrder(orderID, func(o *models.SalesOrder) error {
		if err := lifecycle.AssertTransition(models.KindSalesOrder, o.Status, models.SalesOrderCancelled); err != nil {
			util.TransitionsRejectedTotal.WithLabelValues(string(models.KindSalesOrder)).Inc()
			return err
		}
		o.Status = models.SalesOrderCancelled
		return nil
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent:    newBaseEvent(models.EventTypeOrderCancelled),
			SalesOrderID: orderID,
			Reason:       reason,
		}
		if err := s.events.PublishOrderCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}
	s.invalidateSnapshots(ctx)
	return nil
}

// advanceParentOrder tries to move the note's ancestor sales order to
// the given status. A chain broken by missing parents or an illegal
// move is logged, not surfaced: the note transition already happened.
func (s *PickingService) advanceParentOrder(noteID, status string) {
	note, err := s.store.GetDeliveryNote(noteID)
	if err != nil {
		return
	}
	task, err := s.store.GetPickingTask(note.PickingTaskID)
	if err != nil {
		s.logger.Warn("Delivery note has no parent task",
			zap.String("delivery_note_id", noteID))
		return
	}
	if _, err := s.store.UpdateSalesOrder(task.SalesOrderID, func(o *models.SalesOrder) error {
		if err := lifecycle.AssertTransition(models.KindSalesOrder, o.Status, status); err != nil {
			return err
		}
		o.Status = status
		return nil
	}); err != nil {
		s.logger.Debug("Parent order not advanced",
			zap.String("sales_order_id", task.SalesOrderID),
			zap.String("target_status", status),
			zap.Error(err))
	}
}

func (s *PickingService) publishLotScanned(ctx context.Context, taskID string, lot models.ScannedLot) {
	if s.events == nil {
		return
	}
	event := &models.LotScannedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeLotScanned),
		PickingTaskID: taskID,
		ProductID:     lot.ProductID,
		LotNumber:     lot.LotNumber,
		Quantity:      lot.Quantity,
	}
	if err := s.events.PublishLotScanned(ctx, event); err != nil {
		s.logger.Error("Failed to publish LotScanned event", zap.Error(err))
	}
}

func (s *PickingService) publishPickingCompleted(ctx context.Context, taskID, noteID string) {
	if s.events == nil {
		return
	}
	event := &models.PickingCompletedEvent{
		BaseEvent:      newBaseEvent(models.EventTypePickingCompleted),
		PickingTaskID:  taskID,
		DeliveryNoteID: noteID,
	}
	if err := s.events.PublishPickingCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PickingCompleted event", zap.Error(err))
	}
}

func (s *PickingService) publishDeliveryShipped(ctx context.Context, note *models.DeliveryNote) {
	if s.events == nil {
		return
	}
	event := &models.DeliveryShippedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeDeliveryShipped),
		DeliveryNoteID: note.ID,
		Lines:          note.Lines,
		ScannedLots:    note.ScannedLots,
	}
	if err := s.events.PublishDeliveryShipped(ctx, event); err != nil {
		s.logger.Error("Failed to publish DeliveryShipped event", zap.Error(err))
	}
}

func (s *PickingService) publishDeliveryInvoiced(ctx context.Context, noteID string) {
	if s.events == nil {
		return
	}
	event := &models.DeliveryInvoicedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeDeliveryInvoiced),
		DeliveryNoteID: noteID,
	}
	if err := s.events.PublishDeliveryInvoiced(ctx, event); err != nil {
		s.logger.Error("Failed to publish DeliveryInvoiced event", zap.Error(err))
	}
}

func (s *PickingService) invalidateSnapshots(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.InvalidateSnapshotPrefix(ctx, redisclient.SnapshotPrefixUnifiedOrders); err != nil {
		s.logger.Debug("Failed to invalidate snapshot cache", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
