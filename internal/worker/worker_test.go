package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistique-service/internal/models"
	"logistique-service/internal/store"
)

func shippedMessage(t *testing.T, event *models.DeliveryShippedEvent) kafka.Message {
	t.Helper()
	event.EventType = models.EventTypeDeliveryShipped
	event.EventID = "evt-1"
	event.Timestamp = time.Now()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestDeliveryShippedDeductsStockAndLots(t *testing.T) {
	st := store.NewStore()
	st.PutProduct(models.Product{ID: "PRD-A", Name: "Farine T55", Stock: 50, Lots: 5})
	st.PutProduct(models.Product{ID: "PRD-B", Name: "Levure", Stock: 20, Lots: 2})

	w := NewStockWorker(nil, st, nil)
	msg := shippedMessage(t, &models.DeliveryShippedEvent{
		DeliveryNoteID: "BL-1",
		Lines: []models.LineItem{
			{ProductID: "PRD-A", Quantity: 10},
			{ProductID: "PRD-B", Quantity: 4},
		},
		ScannedLots: []models.ScannedLot{
			{ProductID: "PRD-A", LotNumber: "L1", Quantity: 3},
			{ProductID: "PRD-A", LotNumber: "L2", Quantity: 7},
			{ProductID: "PRD-B", LotNumber: "L3", Quantity: 4},
		},
	})
	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), msg))

	a, err := st.GetProduct("PRD-A")
	require.NoError(t, err)
	assert.Equal(t, 40, a.Stock)
	assert.Equal(t, 3, a.Lots, "two consumed lots come off the count")

	b, err := st.GetProduct("PRD-B")
	require.NoError(t, err)
	assert.Equal(t, 16, b.Stock)
	assert.Equal(t, 1, b.Lots)
}

func TestDeliveryShippedUnknownProductSkipped(t *testing.T) {
	st := store.NewStore()
	st.PutProduct(models.Product{ID: "PRD-A", Stock: 50})

	w := NewStockWorker(nil, st, nil)
	msg := shippedMessage(t, &models.DeliveryShippedEvent{
		DeliveryNoteID: "BL-1",
		Lines: []models.LineItem{
			{ProductID: "PRD-GHOST", Quantity: 5},
			{ProductID: "PRD-A", Quantity: 10},
		},
	})
	// a bad line is logged and skipped, the rest still applies
	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), msg))

	a, err := st.GetProduct("PRD-A")
	require.NoError(t, err)
	assert.Equal(t, 40, a.Stock)
}

func TestUnrelatedEventIgnored(t *testing.T) {
	st := store.NewStore()
	st.PutProduct(models.Product{ID: "PRD-A", Stock: 50})

	w := NewStockWorker(nil, st, nil)
	value, err := json.Marshal(models.BaseEvent{EventID: "evt-2", EventType: models.EventTypeLotScanned})
	require.NoError(t, err)
	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: value}))

	a, err := st.GetProduct("PRD-A")
	require.NoError(t, err)
	assert.Equal(t, 50, a.Stock)
}
