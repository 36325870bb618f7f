package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"logistique-service/internal/models"
	"logistique-service/internal/util"
)

// EventPublisher handles publishing document lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPickingStarted publishes a PickingStarted event
func (ep *EventPublisher) PublishPickingStarted(ctx context.Context, event *models.PickingStartedEvent) error {
	return ep.producer.PublishEvent(ctx, taskKey(event.PickingTaskID), event)
}

// PublishLotScanned publishes a LotScanned event
func (ep *EventPublisher) PublishLotScanned(ctx context.Context, event *models.LotScannedEvent) error {
	return ep.producer.PublishEvent(ctx, taskKey(event.PickingTaskID), event)
}

// PublishPickingCompleted publishes a PickingCompleted event
func (ep *EventPublisher) PublishPickingCompleted(ctx context.Context, event *models.PickingCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, taskKey(event.PickingTaskID), event)
}

// PublishPickingCancelled publishes a PickingCancelled event
func (ep *EventPublisher) PublishPickingCancelled(ctx context.Context, event *models.PickingCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, taskKey(event.PickingTaskID), event)
}

// PublishDeliveryShipped publishes a DeliveryShipped event
func (ep *EventPublisher) PublishDeliveryShipped(ctx context.Context, event *models.DeliveryShippedEvent) error {
	return ep.producer.PublishEvent(ctx, noteKey(event.DeliveryNoteID), event)
}

// PublishDeliverySigned publishes a DeliverySigned event
func (ep *EventPublisher) PublishDeliverySigned(ctx context.Context, event *models.DeliverySignedEvent) error {
	return ep.producer.PublishEvent(ctx, noteKey(event.DeliveryNoteID), event)
}

// PublishDeliveryInvoiced publishes a DeliveryInvoiced event
func (ep *EventPublisher) PublishDeliveryInvoiced(ctx context.Context, event *models.DeliveryInvoicedEvent) error {
	return ep.producer.PublishEvent(ctx, noteKey(event.DeliveryNoteID), event)
}

// PublishOrderCancelled publishes an OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%s", event.SalesOrderID), event)
}

func taskKey(id string) string { return fmt.Sprintf("task-%s", id) }
func noteKey(id string) string { return fmt.Sprintf("note-%s", id) }

// EventHandler routes incoming document events to registered callbacks
type EventHandler struct {
	onDeliveryShipped  func(context.Context, *models.DeliveryShippedEvent) error
	onPickingCompleted func(context.Context, *models.PickingCompletedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnDeliveryShipped registers a handler for DeliveryShipped events
func (eh *EventHandler) OnDeliveryShipped(handler func(context.Context, *models.DeliveryShippedEvent) error) {
	eh.onDeliveryShipped = handler
}

// OnPickingCompleted registers a handler for PickingCompleted events
func (eh *EventHandler) OnPickingCompleted(handler func(context.Context, *models.PickingCompletedEvent) error) {
	eh.onPickingCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeDeliveryShipped:
		if eh.onDeliveryShipped != nil {
			var event models.DeliveryShippedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DeliveryShipped event: %w", err)
			}
			return eh.onDeliveryShipped(ctx, &event)
		}

	case models.EventTypePickingCompleted:
		if eh.onPickingCompleted != nil {
			var event models.PickingCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PickingCompleted event: %w", err)
			}
			return eh.onPickingCompleted(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
