package worker

import (
	"context"

	"go.uber.org/zap"

	"logistique-service/internal/broker"
	"logistique-service/internal/models"
	"logistique-service/internal/redisclient"
	"logistique-service/internal/store"
	"logistique-service/internal/util"
)

// StockWorker applies the real fulfillment side effect: when a delivery
// note ships, the shipped quantities and consumed lots come off the
// product catalog.
type StockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewStockWorker creates a stock worker. redis may be nil; snapshot
// invalidation is then skipped.
func NewStockWorker(consumer *broker.Consumer, st *store.Store, redis *redisclient.Client) *StockWorker {
	w := &StockWorker{
		consumer: consumer,
		store:    st,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnDeliveryShipped(w.handleDeliveryShipped)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return w.consumer.Close()
}

func (w *StockWorker) handleDeliveryShipped(ctx context.Context, event *models.DeliveryShippedEvent) error {
	lotsByProduct := make(map[string]int)
	for _, lot := range event.ScannedLots {
		lotsByProduct[lot.ProductID]++
	}

	deducted := false
	for _, line := range event.Lines {
		if err := w.store.AdjustStock(line.ProductID, -line.Quantity, -lotsByProduct[line.ProductID]); err != nil {
			w.logger.Error("Failed to deduct shipped stock",
				zap.String("delivery_note_id", event.DeliveryNoteID),
				zap.String("product_id", line.ProductID),
				zap.Error(err))
			continue
		}
		deducted = true
		w.logger.Info("Stock deducted for shipment",
			zap.String("delivery_note_id", event.DeliveryNoteID),
			zap.String("product_id", line.ProductID),
			zap.Int("quantity", line.Quantity))
	}

	// Stock feeds the projected statuses, so cached snapshots are stale
	// once a deduction lands.
	if deducted && w.redis != nil {
		if err := w.redis.InvalidateSnapshotPrefix(ctx, redisclient.SnapshotPrefixUnifiedOrders); err != nil {
			w.logger.Debug("Failed to invalidate snapshot cache", zap.Error(err))
		}
	}
	return nil
}
