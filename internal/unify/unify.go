// Package unify merges the three document collections into one row per
// commercial order. Downstream documents suppress their ancestors: a
// delivery note hides its picking task, which hides its sales order.
package unify

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"logistique-service/internal/calendar"
	"logistique-service/internal/models"
	"logistique-service/internal/store"
	"logistique-service/internal/util"
)

// Unifier builds unified order rows from the document store
type Unifier struct {
	store  *store.Store
	logger *zap.Logger
}

// NewUnifier creates a unifier over the given store
func NewUnifier(s *store.Store) *Unifier {
	return &Unifier{store: s, logger: util.GetLogger()}
}

// LifecycleForSalesOrder maps a sales order status to a lifecycle stage
func LifecycleForSalesOrder(status string) string {
	switch status {
	case models.SalesOrderConfirmed, models.SalesOrderPartiallyShipped:
		return models.LifecycleToPrepare
	case models.SalesOrderInPreparation:
		return models.LifecycleInPreparation
	case models.SalesOrderShipped:
		return models.LifecycleShipped
	case models.SalesOrderInvoiced:
		return models.LifecycleInvoiced
	default:
		// DRAFT and CANCELLED both display as draft
		return models.LifecycleDraft
	}
}

// LifecycleForPickingTask maps a picking task status to a lifecycle stage
func LifecycleForPickingTask(status string) string {
	switch status {
	case models.PickingPending, models.PickingInProgress:
		return models.LifecycleInPreparation
	case models.PickingCompleted:
		return models.LifecycleReadyToShip
	default:
		return models.LifecycleDraft
	}
}

// LifecycleForDeliveryNote maps a delivery note status to a lifecycle stage
func LifecycleForDeliveryNote(status string) string {
	switch status {
	case models.DeliveryShipped, models.DeliverySigned:
		return models.LifecycleShipped
	case models.DeliveryInvoiced:
		return models.LifecycleInvoiced
	default:
		return models.LifecycleReadyToShip
	}
}

// UnifiedOrders returns one row per commercial order. Delivery notes are
// processed first and suppress their parent task and order; remaining
// tasks suppress their parent order. Output keeps that processing order;
// sorting is the caller's concern. Rows whose parent chain is broken are
// dropped and logged, never surfaced as errors.
func (u *Unifier) UnifiedOrders(today time.Time) []models.UnifiedOrder {
	suppressed := make(map[string]bool)
	var rows []models.UnifiedOrder

	notes := u.store.ListDeliveryNotes(
		models.DeliveryReadyToShip, models.DeliveryShipped, models.DeliveryInvoiced)
	for _, note := range notes {
		// A shipped or invoiced note dated in the future is inconsistent
		// data and dropped.
		if note.Status != models.DeliveryReadyToShip &&
			calendar.IsStrictlyAfterDay(note.DeliveryDate, today) {
			u.logger.Debug("dropping future-dated fulfilled delivery note",
				zap.String("delivery_note_id", note.ID),
				zap.Time("delivery_date", note.DeliveryDate))
			continue
		}

		task, err := u.store.GetPickingTask(note.PickingTaskID)
		if err != nil {
			u.logger.Warn("delivery note references missing picking task",
				zap.String("delivery_note_id", note.ID),
				zap.String("picking_task_id", note.PickingTaskID))
			continue
		}
		order, err := u.store.GetSalesOrder(task.SalesOrderID)
		if err != nil {
			u.logger.Warn("picking task references missing sales order",
				zap.String("picking_task_id", task.ID),
				zap.String("sales_order_id", task.SalesOrderID))
			continue
		}
		suppressed[task.ID] = true
		suppressed[order.ID] = true

		doc := models.Document{Kind: models.KindDeliveryNote, DeliveryNote: note}
		rows = append(rows, models.UnifiedOrder{
			ID:           doc.ID(),
			Number:       note.Number,
			Client:       note.Client,
			DeliveryDate: note.DeliveryDate,
			Lines:        doc.Lines(),
			Lifecycle:    LifecycleForDeliveryNote(note.Status),
			StockStatus:  models.StockUnknown,
			Document:     doc,
		})
	}

	tasks := u.store.ListPickingTasks(models.PickingPending, models.PickingInProgress)
	for _, task := range tasks {
		if suppressed[task.ID] {
			continue
		}
		order, err := u.store.GetSalesOrder(task.SalesOrderID)
		if err != nil {
			u.logger.Warn("picking task references missing sales order",
				zap.String("picking_task_id", task.ID),
				zap.String("sales_order_id", task.SalesOrderID))
			continue
		}
		suppressed[order.ID] = true

		doc := models.Document{Kind: models.KindPickingTask, PickingTask: task}
		rows = append(rows, models.UnifiedOrder{
			ID:           doc.ID(),
			Number:       order.Number,
			Client:       order.Client,
			DeliveryDate: order.DeliveryDate,
			Lines:        doc.Lines(),
			Lifecycle:    LifecycleForPickingTask(task.Status),
			StockStatus:  models.StockUnknown,
			Document:     doc,
		})
	}

	orders := u.store.ListSalesOrders(
		models.SalesOrderConfirmed, models.SalesOrderInPreparation, models.SalesOrderPartiallyShipped)
	for _, order := range orders {
		if suppressed[order.ID] {
			continue
		}
		doc := models.Document{Kind: models.KindSalesOrder, SalesOrder: order}
		rows = append(rows, models.UnifiedOrder{
			ID:           doc.ID(),
			Number:       order.Number,
			Client:       order.Client,
			DeliveryDate: order.DeliveryDate,
			Lines:        doc.Lines(),
			Lifecycle:    LifecycleForSalesOrder(order.Status),
			StockStatus:  models.StockUnknown,
			Document:     doc,
		})
	}

	u.logger.Debug("unified orders built",
		zap.Int("rows", len(rows)),
		zap.Int("suppressed", len(suppressed)))
	return rows
}

// priorityRank buckets a row for operational triage: work already in
// preparation unblocks fastest, then orders that can start immediately
// because their stock is projected available, then everything else.
func priorityRank(o models.UnifiedOrder) int {
	switch {
	case o.Lifecycle == models.LifecycleInPreparation:
		return 0
	case o.Lifecycle == models.LifecycleToPrepare && o.StockStatus == models.StockInStock:
		return 1
	default:
		return 2
	}
}

// SortByPriority orders rows for triage, ties broken by ascending
// delivery date. The input slice is not modified.
func SortByPriority(rows []models.UnifiedOrder) []models.UnifiedOrder {
	sorted := make([]models.UnifiedOrder, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := priorityRank(sorted[i]), priorityRank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		return sorted[i].DeliveryDate.Before(sorted[j].DeliveryDate)
	})
	return sorted
}
