package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistique-service/internal/models"
)

// expected transition tables, spelled out pair by pair
var legalPairs = map[models.DocumentKind]map[string][]string{
	models.KindSalesOrder: {
		models.SalesOrderDraft:            {models.SalesOrderConfirmed, models.SalesOrderCancelled},
		models.SalesOrderConfirmed:        {models.SalesOrderInPreparation, models.SalesOrderCancelled},
		models.SalesOrderInPreparation:    {models.SalesOrderPartiallyShipped, models.SalesOrderShipped, models.SalesOrderCancelled},
		models.SalesOrderPartiallyShipped: {models.SalesOrderShipped, models.SalesOrderCancelled},
		models.SalesOrderShipped:          {models.SalesOrderInvoiced},
		models.SalesOrderInvoiced:         {},
		models.SalesOrderCancelled:        {},
	},
	models.KindPickingTask: {
		models.PickingPending:    {models.PickingInProgress, models.PickingCancelled},
		models.PickingInProgress: {models.PickingCompleted, models.PickingCancelled},
		models.PickingCompleted:  {},
		models.PickingCancelled:  {},
	},
	models.KindDeliveryNote: {
		models.DeliveryReadyToShip: {models.DeliveryShipped},
		models.DeliveryShipped:     {models.DeliveryInvoiced, models.DeliverySigned},
		models.DeliverySigned:      {models.DeliveryInvoiced},
		models.DeliveryInvoiced:    {},
	},
}

func TestLegalTransitionsExhaustive(t *testing.T) {
	for kind, table := range legalPairs {
		for from, allowed := range table {
			allowedSet := make(map[string]bool)
			for _, to := range allowed {
				allowedSet[to] = true
			}
			// every status of the kind is a candidate target
			for to := range table {
				got := CanTransition(kind, from, to)
				if allowedSet[to] {
					assert.True(t, got, "%s %s -> %s should be legal", kind, from, to)
					assert.NoError(t, AssertTransition(kind, from, to))
				} else {
					assert.False(t, got, "%s %s -> %s should be illegal", kind, from, to)
					err := AssertTransition(kind, from, to)
					assert.ErrorIs(t, err, ErrInvalidTransition)
				}
			}
		}
	}
}

func TestLegalTransitionsCopiesTable(t *testing.T) {
	next, err := LegalTransitions(models.KindSalesOrder, models.SalesOrderDraft)
	require.NoError(t, err)
	require.NotEmpty(t, next)

	next[0] = "MUTATED"

	again, err := LegalTransitions(models.KindSalesOrder, models.SalesOrderDraft)
	require.NoError(t, err)
	assert.NotContains(t, again, "MUTATED")
}

func TestUnknownStatusRejected(t *testing.T) {
	_, err := LegalTransitions(models.KindSalesOrder, "NOT_A_STATUS")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = LegalTransitions(models.DocumentKind("NOT_A_KIND"), models.SalesOrderDraft)
	assert.ErrorIs(t, err, ErrUnknownStatus)

	assert.False(t, CanTransition(models.KindPickingTask, "NOT_A_STATUS", models.PickingCompleted))
}

func TestTerminalStatuses(t *testing.T) {
	terminals := []struct {
		kind   models.DocumentKind
		status string
	}{
		{models.KindSalesOrder, models.SalesOrderInvoiced},
		{models.KindSalesOrder, models.SalesOrderCancelled},
		{models.KindPickingTask, models.PickingCompleted},
		{models.KindPickingTask, models.PickingCancelled},
		{models.KindDeliveryNote, models.DeliveryInvoiced},
	}
	for _, tc := range terminals {
		assert.True(t, IsTerminal(tc.kind, tc.status), "%s %s", tc.kind, tc.status)
	}

	assert.False(t, IsTerminal(models.KindDeliveryNote, models.DeliveryShipped))
	assert.False(t, IsTerminal(models.KindSalesOrder, models.SalesOrderDraft))
}

func TestBadgeReadyToShipIsSuccess(t *testing.T) {
	// readiness, not a pending state
	assert.Equal(t, BadgeSuccess, BadgeFor(models.KindDeliveryNote, models.DeliveryReadyToShip))

	assert.Equal(t, BadgeNeutral, BadgeFor(models.KindPickingTask, models.PickingPending))
	assert.Equal(t, BadgeNeutral, BadgeFor(models.KindSalesOrder, models.SalesOrderDraft))
	assert.Equal(t, BadgeDanger, BadgeFor(models.KindSalesOrder, models.SalesOrderCancelled))
	assert.Equal(t, BadgeInfo, BadgeFor(models.KindPickingTask, models.PickingInProgress))
	assert.Equal(t, BadgeSuccess, BadgeFor(models.KindDeliveryNote, models.DeliveryInvoiced))
}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		kind   models.DocumentKind
		status string
		want   []string
	}{
		{models.KindSalesOrder, models.SalesOrderDraft, []string{ActionConfirm, ActionCancel}},
		{models.KindSalesOrder, models.SalesOrderConfirmed, []string{ActionPrepare, ActionCancel}},
		{models.KindSalesOrder, models.SalesOrderInvoiced, nil},
		{models.KindPickingTask, models.PickingPending, []string{ActionScan, ActionCancel}},
		{models.KindPickingTask, models.PickingInProgress, []string{ActionScan, ActionComplete, ActionCancel}},
		{models.KindPickingTask, models.PickingCompleted, nil},
		{models.KindDeliveryNote, models.DeliveryReadyToShip, []string{ActionShip}},
		{models.KindDeliveryNote, models.DeliveryShipped, []string{ActionSign, ActionInvoice}},
		{models.KindDeliveryNote, models.DeliverySigned, []string{ActionInvoice}},
		{models.KindDeliveryNote, models.DeliveryInvoiced, nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, AvailableActions(tc.kind, tc.status), "%s %s", tc.kind, tc.status)
	}
}

func TestLabelFallsBackToRawStatus(t *testing.T) {
	assert.Equal(t, "En préparation", Label(models.KindSalesOrder, models.SalesOrderInPreparation))
	assert.Equal(t, "SOMETHING_ELSE", Label(models.KindSalesOrder, "SOMETHING_ELSE"))
}

func TestStatusesAreOrdered(t *testing.T) {
	assert.Equal(t, []string{
		models.SalesOrderDraft,
		models.SalesOrderConfirmed,
		models.SalesOrderInPreparation,
		models.SalesOrderPartiallyShipped,
		models.SalesOrderShipped,
		models.SalesOrderInvoiced,
		models.SalesOrderCancelled,
	}, Statuses(models.KindSalesOrder))
	assert.Len(t, Statuses(models.KindPickingTask), 4)
	assert.Len(t, Statuses(models.KindDeliveryNote), 4)
	assert.Empty(t, Statuses(models.DocumentKind("NOT_A_KIND")))
}
