package models

import "time"

// Event types
const (
	EventTypePickingStarted   = "PICKING_STARTED"
	EventTypeLotScanned       = "LOT_SCANNED"
	EventTypePickingCompleted = "PICKING_COMPLETED"
	EventTypePickingCancelled = "PICKING_CANCELLED"
	EventTypeDeliveryShipped  = "DELIVERY_SHIPPED"
	EventTypeDeliverySigned   = "DELIVERY_SIGNED"
	EventTypeDeliveryInvoiced = "DELIVERY_INVOICED"
	EventTypeOrderCancelled   = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PickingStartedEvent published when a sales order is accepted into
// preparation and its picking task is created
type PickingStartedEvent struct {
	BaseEvent
	SalesOrderID  string `json:"sales_order_id"`
	PickingTaskID string `json:"picking_task_id"`
}

// LotScannedEvent published for each successful lot scan
type LotScannedEvent struct {
	BaseEvent
	PickingTaskID string `json:"picking_task_id"`
	ProductID     string `json:"product_id"`
	LotNumber     string `json:"lot_number"`
	Quantity      int    `json:"quantity"`
}

// PickingCompletedEvent published when a task is validated and its
// delivery note created
type PickingCompletedEvent struct {
	BaseEvent
	PickingTaskID  string `json:"picking_task_id"`
	DeliveryNoteID string `json:"delivery_note_id"`
}

// PickingCancelledEvent published when a task is cancelled
type PickingCancelledEvent struct {
	BaseEvent
	PickingTaskID string `json:"picking_task_id"`
	Reason        string `json:"reason"`
}

// DeliveryShippedEvent published when a delivery note ships. Carries the
// lines so the stock worker can apply the real stock deduction.
type DeliveryShippedEvent struct {
	BaseEvent
	DeliveryNoteID string       `json:"delivery_note_id"`
	Lines          []LineItem   `json:"lines"`
	ScannedLots    []ScannedLot `json:"scanned_lots"`
}

// DeliverySignedEvent published when the client signs a delivery note
type DeliverySignedEvent struct {
	BaseEvent
	DeliveryNoteID string `json:"delivery_note_id"`
}

// DeliveryInvoicedEvent published when a delivery note is invoiced
type DeliveryInvoicedEvent struct {
	BaseEvent
	DeliveryNoteID string `json:"delivery_note_id"`
}

// OrderCancelledEvent published when a sales order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	SalesOrderID string `json:"sales_order_id"`
	Reason       string `json:"reason"`
}
