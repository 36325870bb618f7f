// Package lifecycle encodes the three document state machines (sales
// order, picking task, delivery note) and the pure queries over them:
// legal transitions, display labels, badge categories and available
// actions. It holds no state.
package lifecycle

import (
	"errors"
	"fmt"

	"logistique-service/internal/models"
)

// ErrInvalidTransition is returned when a requested status change is not
// present in the legal transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned for a status not defined for the kind.
var ErrUnknownStatus = errors.New("unknown status")

// BadgeCategory classifies a status for display purposes
type BadgeCategory string

const (
	BadgeNeutral BadgeCategory = "neutral"
	BadgeWarning BadgeCategory = "warning"
	BadgeSuccess BadgeCategory = "success"
	BadgeInfo    BadgeCategory = "info"
	BadgeDanger  BadgeCategory = "danger"
)

var salesOrderTransitions = map[string][]string{
	models.SalesOrderDraft:            {models.SalesOrderConfirmed, models.SalesOrderCancelled},
	models.SalesOrderConfirmed:        {models.SalesOrderInPreparation, models.SalesOrderCancelled},
	models.SalesOrderInPreparation:    {models.SalesOrderPartiallyShipped, models.SalesOrderShipped, models.SalesOrderCancelled},
	models.SalesOrderPartiallyShipped: {models.SalesOrderShipped, models.SalesOrderCancelled},
	models.SalesOrderShipped:          {models.SalesOrderInvoiced},
	models.SalesOrderInvoiced:         {},
	models.SalesOrderCancelled:        {},
}

var pickingTransitions = map[string][]string{
	models.PickingPending:    {models.PickingInProgress, models.PickingCancelled},
	models.PickingInProgress: {models.PickingCompleted, models.PickingCancelled},
	models.PickingCompleted:  {},
	models.PickingCancelled:  {},
}

var deliveryTransitions = map[string][]string{
	models.DeliveryReadyToShip: {models.DeliveryShipped},
	models.DeliveryShipped:     {models.DeliveryInvoiced, models.DeliverySigned},
	models.DeliverySigned:      {models.DeliveryInvoiced},
	models.DeliveryInvoiced:    {},
}

func tableFor(kind models.DocumentKind) map[string][]string {
	switch kind {
	case models.KindSalesOrder:
		return salesOrderTransitions
	case models.KindPickingTask:
		return pickingTransitions
	case models.KindDeliveryNote:
		return deliveryTransitions
	}
	return nil
}

// LegalTransitions returns the set of statuses reachable from the given
// status. An empty slice means the status is terminal.
func LegalTransitions(kind models.DocumentKind, status string) ([]string, error) {
	table := tableFor(kind)
	if table == nil {
		return nil, fmt.Errorf("%w: kind %s", ErrUnknownStatus, kind)
	}
	next, ok := table[status]
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownStatus, status, kind)
	}
	out := make([]string, len(next))
	copy(out, next)
	return out, nil
}

// CanTransition reports whether from -> to is in the legal table
func CanTransition(kind models.DocumentKind, from, to string) bool {
	next, err := LegalTransitions(kind, from)
	if err != nil {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// AssertTransition returns ErrInvalidTransition unless from -> to is legal
func AssertTransition(kind models.DocumentKind, from, to string) error {
	if !CanTransition(kind, from, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, from, to)
	}
	return nil
}

// IsTerminal reports whether the status has no outgoing transitions
func IsTerminal(kind models.DocumentKind, status string) bool {
	next, err := LegalTransitions(kind, status)
	return err == nil && len(next) == 0
}

var labels = map[models.DocumentKind]map[string]string{
	models.KindSalesOrder: {
		models.SalesOrderDraft:            "Brouillon",
		models.SalesOrderConfirmed:        "Confirmé",
		models.SalesOrderInPreparation:    "En préparation",
		models.SalesOrderPartiallyShipped: "Partiellement expédié",
		models.SalesOrderShipped:          "Expédié",
		models.SalesOrderInvoiced:         "Facturé",
		models.SalesOrderCancelled:        "Annulé",
	},
	models.KindPickingTask: {
		models.PickingPending:    "À préparer",
		models.PickingInProgress: "En cours",
		models.PickingCompleted:  "Terminé",
		models.PickingCancelled:  "Annulé",
	},
	models.KindDeliveryNote: {
		models.DeliveryReadyToShip: "Prêt à expédier",
		models.DeliveryShipped:     "Expédié",
		models.DeliverySigned:      "Signé",
		models.DeliveryInvoiced:    "Facturé",
	},
}

// Label returns the display label for a status, falling back to the raw
// status code when unknown.
func Label(kind models.DocumentKind, status string) string {
	if m, ok := labels[kind]; ok {
		if l, ok := m[status]; ok {
			return l
		}
	}
	return status
}

// BadgeFor classifies a status for display. READY_TO_SHIP is success
// rather than neutral: it denotes readiness, not a pending state.
func BadgeFor(kind models.DocumentKind, status string) BadgeCategory {
	switch status {
	case models.SalesOrderDraft, models.PickingPending:
		return BadgeNeutral
	case models.SalesOrderCancelled:
		return BadgeDanger
	case models.SalesOrderConfirmed, models.SalesOrderPartiallyShipped:
		return BadgeWarning
	case models.SalesOrderInPreparation, models.PickingInProgress:
		return BadgeInfo
	}
	if kind == models.KindDeliveryNote && status == models.DeliveryReadyToShip {
		return BadgeSuccess
	}
	switch status {
	case models.SalesOrderShipped, models.SalesOrderInvoiced,
		models.PickingCompleted, models.DeliverySigned:
		return BadgeSuccess
	}
	return BadgeNeutral
}

// Action names exposed to the caller for a document in a given status
const (
	ActionConfirm  = "confirm"
	ActionPrepare  = "prepare"
	ActionScan     = "scan"
	ActionComplete = "complete"
	ActionShip     = "ship"
	ActionSign     = "sign"
	ActionInvoice  = "invoice"
	ActionCancel   = "cancel"
)

// AvailableActions returns the user-facing actions legal in the given
// status, derived from the transition tables.
func AvailableActions(kind models.DocumentKind, status string) []string {
	var actions []string
	switch kind {
	case models.KindSalesOrder:
		switch status {
		case models.SalesOrderDraft:
			actions = append(actions, ActionConfirm)
		case models.SalesOrderConfirmed:
			actions = append(actions, ActionPrepare)
		}
		if CanTransition(kind, status, models.SalesOrderCancelled) {
			actions = append(actions, ActionCancel)
		}
	case models.KindPickingTask:
		switch status {
		case models.PickingPending:
			actions = append(actions, ActionScan)
		case models.PickingInProgress:
			actions = append(actions, ActionScan, ActionComplete)
		}
		if CanTransition(kind, status, models.PickingCancelled) {
			actions = append(actions, ActionCancel)
		}
	case models.KindDeliveryNote:
		switch status {
		case models.DeliveryReadyToShip:
			actions = append(actions, ActionShip)
		case models.DeliveryShipped:
			actions = append(actions, ActionSign, ActionInvoice)
		case models.DeliverySigned:
			actions = append(actions, ActionInvoice)
		}
	}
	return actions
}

var statusOrder = map[models.DocumentKind][]string{
	models.KindSalesOrder: {
		models.SalesOrderDraft,
		models.SalesOrderConfirmed,
		models.SalesOrderInPreparation,
		models.SalesOrderPartiallyShipped,
		models.SalesOrderShipped,
		models.SalesOrderInvoiced,
		models.SalesOrderCancelled,
	},
	models.KindPickingTask: {
		models.PickingPending,
		models.PickingInProgress,
		models.PickingCompleted,
		models.PickingCancelled,
	},
	models.KindDeliveryNote: {
		models.DeliveryReadyToShip,
		models.DeliveryShipped,
		models.DeliverySigned,
		models.DeliveryInvoiced,
	},
}

// Statuses returns every status defined for the kind, in lifecycle order
func Statuses(kind models.DocumentKind) []string {
	return append([]string(nil), statusOrder[kind]...)
}
