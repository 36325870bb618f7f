package models

import "time"

// DocumentKind identifies one of the three document types in the
// BC -> BP -> BL chain.
type DocumentKind string

const (
	KindSalesOrder   DocumentKind = "SALES_ORDER"
	KindPickingTask  DocumentKind = "PICKING_TASK"
	KindDeliveryNote DocumentKind = "DELIVERY_NOTE"
)

// Product represents an entry in the product catalog
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	StockMin int    `json:"stock_min"`
	StockMax int    `json:"stock_max"`
	Lots     int    `json:"lots"`
}

// LineItem represents a product quantity on any of the three documents
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ScannedLot records one physical lot scanned against a picking task
type ScannedLot struct {
	ProductID string    `json:"product_id"`
	LotNumber string    `json:"lot_number"`
	Quantity  int       `json:"quantity"`
	ScannedAt time.Time `json:"scanned_at"`
}

// SalesOrder (BC) is the client's order request
type SalesOrder struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	Client       string     `json:"client"`
	DeliveryDate time.Time  `json:"delivery_date"`
	Items        []LineItem `json:"items"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PickingTask (BP) is the warehouse pick list derived from a sales order
type PickingTask struct {
	ID             string       `json:"id"`
	SalesOrderID   string       `json:"sales_order_id"`
	Lines          []LineItem   `json:"lines"`
	ScannedLots    []ScannedLot `json:"scanned_lots"`
	Status         string       `json:"status"`
	DeliveryNoteID string       `json:"delivery_note_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// DeliveryNote (BL) is the shipment document created when a picking task
// completes. ScannedLots are copied from the task at creation and never
// change afterwards.
type DeliveryNote struct {
	ID            string       `json:"id"`
	PickingTaskID string       `json:"picking_task_id"`
	Number        string       `json:"number"`
	Client        string       `json:"client"`
	DeliveryDate  time.Time    `json:"delivery_date"`
	Lines         []LineItem   `json:"lines"`
	ScannedLots   []ScannedLot `json:"scanned_lots"`
	Status        string       `json:"status"`
	ShippedAt     *time.Time   `json:"shipped_at,omitempty"`
	InvoicedAt    *time.Time   `json:"invoiced_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// SalesOrder statuses
const (
	SalesOrderDraft            = "DRAFT"
	SalesOrderConfirmed        = "CONFIRMED"
	SalesOrderInPreparation    = "IN_PREPARATION"
	SalesOrderPartiallyShipped = "PARTIALLY_SHIPPED"
	SalesOrderShipped          = "SHIPPED"
	SalesOrderInvoiced         = "INVOICED"
	SalesOrderCancelled        = "CANCELLED"
)

// PickingTask statuses
const (
	PickingPending    = "PENDING"
	PickingInProgress = "IN_PROGRESS"
	PickingCompleted  = "COMPLETED"
	PickingCancelled  = "CANCELLED"
)

// DeliveryNote statuses
const (
	DeliveryReadyToShip = "READY_TO_SHIP"
	DeliveryShipped     = "SHIPPED"
	DeliverySigned      = "SIGNED"
	DeliveryInvoiced    = "INVOICED"
)

// Lifecycle stages of a unified order row
const (
	LifecycleDraft         = "DRAFT"
	LifecycleToPrepare     = "TO_PREPARE"
	LifecycleInPreparation = "IN_PREPARATION"
	LifecycleReadyToShip   = "READY_TO_SHIP"
	LifecycleShipped       = "SHIPPED"
	LifecycleInvoiced      = "INVOICED"
)

// Projected stock statuses
const (
	StockInStock    = "IN_STOCK"
	StockPartial    = "PARTIAL"
	StockOutOfStock = "OUT_OF_STOCK"
	StockUnknown    = "UNKNOWN"
)

// Document is the tagged union over the three document kinds. Exactly one
// of the three pointers is non-nil, matching Kind.
type Document struct {
	Kind         DocumentKind  `json:"kind"`
	SalesOrder   *SalesOrder   `json:"sales_order,omitempty"`
	PickingTask  *PickingTask  `json:"picking_task,omitempty"`
	DeliveryNote *DeliveryNote `json:"delivery_note,omitempty"`
}

// ID returns the id of whichever document is carried
func (d Document) ID() string {
	switch d.Kind {
	case KindSalesOrder:
		return d.SalesOrder.ID
	case KindPickingTask:
		return d.PickingTask.ID
	case KindDeliveryNote:
		return d.DeliveryNote.ID
	}
	return ""
}

// Status returns the status of whichever document is carried
func (d Document) Status() string {
	switch d.Kind {
	case KindSalesOrder:
		return d.SalesOrder.Status
	case KindPickingTask:
		return d.PickingTask.Status
	case KindDeliveryNote:
		return d.DeliveryNote.Status
	}
	return ""
}

// Lines returns the normalized line items of whichever document is carried
func (d Document) Lines() []LineItem {
	switch d.Kind {
	case KindSalesOrder:
		return d.SalesOrder.Items
	case KindPickingTask:
		return d.PickingTask.Lines
	case KindDeliveryNote:
		return d.DeliveryNote.Lines
	}
	return nil
}

// UnifiedOrder is one logical row per commercial order, carrying the most
// advanced document of its chain. Rebuilt on every query, never persisted.
type UnifiedOrder struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	Client       string     `json:"client"`
	DeliveryDate time.Time  `json:"delivery_date"`
	Lines        []LineItem `json:"lines"`
	Lifecycle    string     `json:"lifecycle"`
	StockStatus  string     `json:"stock_status"`
	Document     Document   `json:"document"`
}

// RequiredQuantity sums the line quantities for a product on a task
func (t *PickingTask) RequiredQuantity(productID string) int {
	var total int
	for _, l := range t.Lines {
		if l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total
}

// ScannedQuantity sums the scanned quantities for a product on a task
func (t *PickingTask) ScannedQuantity(productID string) int {
	var total int
	for _, s := range t.ScannedLots {
		if s.ProductID == productID {
			total += s.Quantity
		}
	}
	return total
}

// LotCount counts the scans recorded for a product on a task
func (t *PickingTask) LotCount(productID string) int {
	var count int
	for _, s := range t.ScannedLots {
		if s.ProductID == productID {
			count++
		}
	}
	return count
}

// FullyScanned reports whether every line's scanned quantity has reached
// its required quantity.
func (t *PickingTask) FullyScanned() bool {
	for _, l := range t.Lines {
		if t.ScannedQuantity(l.ProductID) < t.RequiredQuantity(l.ProductID) {
			return false
		}
	}
	return true
}
