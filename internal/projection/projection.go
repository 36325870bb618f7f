// Package projection implements the available-to-promise simulation:
// orders consume a virtual copy of catalog stock in delivery-date order,
// so every order's status reflects the cumulative demand ahead of it.
// The engine never touches real stock; each run works on its own copy.
package projection

import (
	"sort"

	"go.uber.org/zap"

	"logistique-service/internal/models"
	"logistique-service/internal/util"
)

// Engine computes projected stock statuses over unified orders
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a projection engine
func NewEngine() *Engine {
	return &Engine{logger: util.GetLogger()}
}

// sortByDeliveryDate returns the orders ascending by delivery date.
// The sort is stable: same-day orders keep their input order.
func sortByDeliveryDate(orders []models.UnifiedOrder) []models.UnifiedOrder {
	sorted := make([]models.UnifiedOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DeliveryDate.Before(sorted[j].DeliveryDate)
	})
	return sorted
}

func fulfilled(lifecycle string) bool {
	return lifecycle == models.LifecycleShipped || lifecycle == models.LifecycleInvoiced
}

// virtualStock seeds the simulation with current catalog stock
func virtualStock(products []models.Product) map[string]int {
	stock := make(map[string]int, len(products))
	for _, p := range products {
		stock[p.ID] = p.Stock
	}
	return stock
}

// ProjectedStatuses classifies each order as IN_STOCK, PARTIAL or
// OUT_OF_STOCK given sequential consumption by earlier-dated orders.
// Already-fulfilled orders (shipped/invoiced) are fixed to IN_STOCK but
// still consume virtual stock: their demand came out of the real count,
// so later orders must inherit the deficit. Virtual stock may go
// negative and is never clamped.
func (e *Engine) ProjectedStatuses(orders []models.UnifiedOrder, products []models.Product) map[string]string {
	util.ProjectionRunsTotal.Inc()
	stock := virtualStock(products)
	statuses := make(map[string]string, len(orders))

	for _, order := range sortByDeliveryDate(orders) {
		var anyOut, anyShort, anyUnknown bool
		for _, line := range order.Lines {
			available, known := stock[line.ProductID]
			if !known {
				e.logger.Warn("projection saw unknown product",
					zap.String("order_id", order.ID),
					zap.String("product_id", line.ProductID))
				anyUnknown = true
				continue
			}
			if available < line.Quantity {
				if available <= 0 {
					anyOut = true
				} else {
					anyShort = true
				}
			}
			stock[line.ProductID] = available - line.Quantity
		}

		switch {
		case fulfilled(order.Lifecycle):
			statuses[order.ID] = models.StockInStock
		case anyOut:
			statuses[order.ID] = models.StockOutOfStock
		case anyShort:
			statuses[order.ID] = models.StockPartial
		case anyUnknown:
			statuses[order.ID] = models.StockUnknown
		default:
			statuses[order.ID] = models.StockInStock
		}
	}
	return statuses
}

// FirstStockouts runs the same simulation but reports, per order, the
// products first driven into shortage while processing that order. Each
// product is reported at most once across the whole run.
func (e *Engine) FirstStockouts(orders []models.UnifiedOrder, products []models.Product) map[string][]string {
	stock := virtualStock(products)
	alreadyOut := make(map[string]bool)
	stockouts := make(map[string][]string)

	for _, order := range sortByDeliveryDate(orders) {
		for _, line := range order.Lines {
			available, known := stock[line.ProductID]
			if !known {
				continue
			}
			if available < line.Quantity && !alreadyOut[line.ProductID] {
				alreadyOut[line.ProductID] = true
				stockouts[order.ID] = append(stockouts[order.ID], line.ProductID)
			}
			stock[line.ProductID] = available - line.Quantity
		}
	}
	return stockouts
}
