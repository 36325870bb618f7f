package store

import (
	"time"

	"logistique-service/internal/models"
)

// NewSeeded builds a store populated with the demo dataset. All dates are
// derived from ref, so the fixture is a pure function of its argument and
// never shifts underneath a running process.
func NewSeeded(ref time.Time) *Store {
	s := NewStore()
	day := func(offset int) time.Time {
		return time.Date(ref.Year(), ref.Month(), ref.Day(), 8, 0, 0, 0, ref.Location()).
			AddDate(0, 0, offset)
	}

	for _, p := range []models.Product{
		{ID: "PRD-001", Name: "Confiture de fraises 370g", Stock: 120, StockMin: 40, StockMax: 200, Lots: 6},
		{ID: "PRD-002", Name: "Terrine de campagne 180g", Stock: 80, StockMin: 30, StockMax: 150, Lots: 4},
		{ID: "PRD-003", Name: "Soupe de légumes 75cl", Stock: 45, StockMin: 50, StockMax: 180, Lots: 3},
		{ID: "PRD-004", Name: "Compote pomme-poire 620g", Stock: 150, StockMin: 60, StockMax: 250, Lots: 8},
		{ID: "PRD-005", Name: "Rillettes de canard 200g", Stock: 25, StockMin: 20, StockMax: 100, Lots: 2},
		{ID: "PRD-006", Name: "Jus de pomme 1L", Stock: 200, StockMin: 80, StockMax: 300, Lots: 10},
	} {
		s.PutProduct(p)
	}

	orders := []*models.SalesOrder{
		{
			ID: "BC-1001", Number: "BC-2024-1001", Client: "Épicerie Lemoine",
			DeliveryDate: day(1), Status: models.SalesOrderConfirmed,
			Items: []models.LineItem{
				{ProductID: "PRD-001", Quantity: 24},
				{ProductID: "PRD-006", Quantity: 48},
			},
			CreatedAt: day(-3),
		},
		{
			ID: "BC-1002", Number: "BC-2024-1002", Client: "Ferme des Tilleuls",
			DeliveryDate: day(2), Status: models.SalesOrderInPreparation,
			Items: []models.LineItem{
				{ProductID: "PRD-002", Quantity: 30},
				{ProductID: "PRD-005", Quantity: 20},
			},
			CreatedAt: day(-2),
		},
		{
			ID: "BC-1003", Number: "BC-2024-1003", Client: "Marché Bio Vauban",
			DeliveryDate: day(3), Status: models.SalesOrderConfirmed,
			Items: []models.LineItem{
				{ProductID: "PRD-003", Quantity: 60},
				{ProductID: "PRD-004", Quantity: 40},
			},
			CreatedAt: day(-2),
		},
		{
			ID: "BC-1004", Number: "BC-2024-1004", Client: "Restaurant Le Pressoir",
			DeliveryDate: day(5), Status: models.SalesOrderConfirmed,
			Items: []models.LineItem{
				{ProductID: "PRD-005", Quantity: 15},
			},
			CreatedAt: day(-1),
		},
		{
			ID: "BC-1005", Number: "BC-2024-1005", Client: "Épicerie Lemoine",
			DeliveryDate: day(7), Status: models.SalesOrderDraft,
			Items: []models.LineItem{
				{ProductID: "PRD-001", Quantity: 36},
			},
			CreatedAt: day(0),
		},
		{
			ID: "BC-0998", Number: "BC-2024-0998", Client: "Cantine Scolaire Jaurès",
			DeliveryDate: day(-1), Status: models.SalesOrderInPreparation,
			Items: []models.LineItem{
				{ProductID: "PRD-004", Quantity: 80},
			},
			CreatedAt: day(-6),
		},
		{
			ID: "BC-0999", Number: "BC-2024-0999", Client: "Marché Bio Vauban",
			DeliveryDate: day(-2), Status: models.SalesOrderInPreparation,
			Items: []models.LineItem{
				{ProductID: "PRD-006", Quantity: 60},
				{ProductID: "PRD-001", Quantity: 12},
			},
			CreatedAt: day(-7),
		},
	}
	for _, o := range orders {
		_ = s.PutSalesOrder(o)
	}

	tasks := []*models.PickingTask{
		{
			ID: "BP-2001", SalesOrderID: "BC-1002", Status: models.PickingInProgress,
			Lines: []models.LineItem{
				{ProductID: "PRD-002", Quantity: 30},
				{ProductID: "PRD-005", Quantity: 20},
			},
			ScannedLots: []models.ScannedLot{
				{ProductID: "PRD-002", LotNumber: "LOT-240812-A", Quantity: 30, ScannedAt: day(0).Add(-2 * time.Hour)},
			},
			CreatedAt: day(-1),
		},
		{
			ID: "BP-1998", SalesOrderID: "BC-0998", Status: models.PickingPending,
			Lines: []models.LineItem{
				{ProductID: "PRD-004", Quantity: 80},
			},
			CreatedAt: day(-2),
		},
		{
			ID: "BP-1999", SalesOrderID: "BC-0999", Status: models.PickingCompleted,
			DeliveryNoteID: "BL-3001",
			Lines: []models.LineItem{
				{ProductID: "PRD-006", Quantity: 60},
				{ProductID: "PRD-001", Quantity: 12},
			},
			ScannedLots: []models.ScannedLot{
				{ProductID: "PRD-006", LotNumber: "LOT-240809-C", Quantity: 60, ScannedAt: day(-2)},
				{ProductID: "PRD-001", LotNumber: "LOT-240810-B", Quantity: 12, ScannedAt: day(-2)},
			},
			CreatedAt: day(-4),
		},
	}
	for _, t := range tasks {
		_ = s.CreatePickingTask(t)
	}

	notes := []*models.DeliveryNote{
		{
			ID: "BL-3001", PickingTaskID: "BP-1999", Number: "BL-2024-3001",
			Client: "Marché Bio Vauban", DeliveryDate: day(-2),
			Status: models.DeliveryReadyToShip,
			Lines: []models.LineItem{
				{ProductID: "PRD-006", Quantity: 60},
				{ProductID: "PRD-001", Quantity: 12},
			},
			ScannedLots: []models.ScannedLot{
				{ProductID: "PRD-006", LotNumber: "LOT-240809-C", Quantity: 60, ScannedAt: day(-2)},
				{ProductID: "PRD-001", LotNumber: "LOT-240810-B", Quantity: 12, ScannedAt: day(-2)},
			},
			CreatedAt: day(-2),
		},
	}
	for _, n := range notes {
		_ = s.PutDeliveryNote(n)
	}

	return s
}
