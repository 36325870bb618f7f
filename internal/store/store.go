// Package store holds the in-memory document collections (sales orders,
// picking tasks, delivery notes) and the product catalog. All mutations
// run as an indivisible read-modify-write under the store lock; readers
// receive copies, never aliases of internal state.
package store

import (
	"errors"
	"fmt"
	"sync"

	"logistique-service/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrActiveTaskExists = errors.New("an active picking task already exists for this sales order")
	ErrDuplicateID      = errors.New("duplicate document id")
)

type Store struct {
	mu            sync.RWMutex
	products      map[string]models.Product
	productOrder  []string
	salesOrders   map[string]*models.SalesOrder
	pickingTasks  map[string]*models.PickingTask
	deliveryNotes map[string]*models.DeliveryNote
	orderIDs      []string
	taskIDs       []string
	noteIDs       []string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		products:      make(map[string]models.Product),
		salesOrders:   make(map[string]*models.SalesOrder),
		pickingTasks:  make(map[string]*models.PickingTask),
		deliveryNotes: make(map[string]*models.DeliveryNote),
	}
}

func cloneLines(lines []models.LineItem) []models.LineItem {
	if lines == nil {
		return nil
	}
	out := make([]models.LineItem, len(lines))
	copy(out, lines)
	return out
}

func cloneLots(lots []models.ScannedLot) []models.ScannedLot {
	if lots == nil {
		return nil
	}
	out := make([]models.ScannedLot, len(lots))
	copy(out, lots)
	return out
}

func cloneSalesOrder(o *models.SalesOrder) *models.SalesOrder {
	c := *o
	c.Items = cloneLines(o.Items)
	return &c
}

func clonePickingTask(t *models.PickingTask) *models.PickingTask {
	c := *t
	c.Lines = cloneLines(t.Lines)
	c.ScannedLots = cloneLots(t.ScannedLots)
	return &c
}

func cloneDeliveryNote(n *models.DeliveryNote) *models.DeliveryNote {
	c := *n
	c.Lines = cloneLines(n.Lines)
	c.ScannedLots = cloneLots(n.ScannedLots)
	if n.ShippedAt != nil {
		t := *n.ShippedAt
		c.ShippedAt = &t
	}
	if n.InvoicedAt != nil {
		t := *n.InvoicedAt
		c.InvoicedAt = &t
	}
	return &c
}

// PutProduct inserts or replaces a catalog entry
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; !exists {
		s.productOrder = append(s.productOrder, p.ID)
	}
	s.products[p.ID] = p
}

// GetProduct retrieves a product by id
func (s *Store) GetProduct(id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ListProducts returns the catalog in insertion order
func (s *Store) ListProducts() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id])
	}
	return out
}

// AdjustStock applies a stock and lot-count delta to a product. Real
// stock is floored at zero; only the projection's virtual copy may go
// negative.
func (s *Store) AdjustStock(productID string, stockDelta, lotsDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	p.Stock += stockDelta
	if p.Stock < 0 {
		p.Stock = 0
	}
	p.Lots += lotsDelta
	if p.Lots < 0 {
		p.Lots = 0
	}
	s.products[productID] = p
	return nil
}

// PutSalesOrder inserts a sales order
func (s *Store) PutSalesOrder(o *models.SalesOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.salesOrders[o.ID]; exists {
		return fmt.Errorf("sales order %s: %w", o.ID, ErrDuplicateID)
	}
	s.salesOrders[o.ID] = cloneSalesOrder(o)
	s.orderIDs = append(s.orderIDs, o.ID)
	return nil
}

// GetSalesOrder retrieves a sales order by id
func (s *Store) GetSalesOrder(id string) (*models.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.salesOrders[id]
	if !ok {
		return nil, fmt.Errorf("sales order %s: %w", id, ErrNotFound)
	}
	return cloneSalesOrder(o), nil
}

// ListSalesOrders returns sales orders filtered by status, in insertion
// order. With no statuses given, all are returned.
func (s *Store) ListSalesOrders(statuses ...string) []*models.SalesOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SalesOrder
	for _, id := range s.orderIDs {
		o := s.salesOrders[id]
		if len(statuses) == 0 || statusIn(o.Status, statuses) {
			out = append(out, cloneSalesOrder(o))
		}
	}
	return out
}

// UpdateSalesOrder runs fn against the stored order under the lock.
// Any error from fn aborts the update with no partial mutation.
func (s *Store) UpdateSalesOrder(id string, fn func(*models.SalesOrder) error) (*models.SalesOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.salesOrders[id]
	if !ok {
		return nil, fmt.Errorf("sales order %s: %w", id, ErrNotFound)
	}
	work := cloneSalesOrder(o)
	if err := fn(work); err != nil {
		return nil, err
	}
	s.salesOrders[id] = work
	return cloneSalesOrder(work), nil
}

// CreatePickingTask inserts a picking task after checking its parent
// exists and has no other active task. The check and insert run under
// one lock acquisition so a concurrent create cannot slip through.
func (s *Store) CreatePickingTask(t *models.PickingTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pickingTasks[t.ID]; exists {
		return fmt.Errorf("picking task %s: %w", t.ID, ErrDuplicateID)
	}
	if _, ok := s.salesOrders[t.SalesOrderID]; !ok {
		return fmt.Errorf("sales order %s: %w", t.SalesOrderID, ErrNotFound)
	}
	for _, id := range s.taskIDs {
		other := s.pickingTasks[id]
		if other.SalesOrderID == t.SalesOrderID &&
			(other.Status == models.PickingPending || other.Status == models.PickingInProgress) {
			return fmt.Errorf("sales order %s: %w", t.SalesOrderID, ErrActiveTaskExists)
		}
	}
	s.pickingTasks[t.ID] = clonePickingTask(t)
	s.taskIDs = append(s.taskIDs, t.ID)
	return nil
}

// GetPickingTask retrieves a picking task by id
func (s *Store) GetPickingTask(id string) (*models.PickingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.pickingTasks[id]
	if !ok {
		return nil, fmt.Errorf("picking task %s: %w", id, ErrNotFound)
	}
	return clonePickingTask(t), nil
}

// ListPickingTasks returns picking tasks filtered by status
func (s *Store) ListPickingTasks(statuses ...string) []*models.PickingTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PickingTask
	for _, id := range s.taskIDs {
		t := s.pickingTasks[id]
		if len(statuses) == 0 || statusIn(t.Status, statuses) {
			out = append(out, clonePickingTask(t))
		}
	}
	return out
}

// ActivePickingTaskForOrder returns the pending or in-progress task for
// a sales order, if any.
func (s *Store) ActivePickingTaskForOrder(salesOrderID string) (*models.PickingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.taskIDs {
		t := s.pickingTasks[id]
		if t.SalesOrderID == salesOrderID &&
			(t.Status == models.PickingPending || t.Status == models.PickingInProgress) {
			return clonePickingTask(t), nil
		}
	}
	return nil, fmt.Errorf("active task for order %s: %w", salesOrderID, ErrNotFound)
}

// UpdatePickingTask runs fn against the stored task under the lock
func (s *Store) UpdatePickingTask(id string, fn func(*models.PickingTask) error) (*models.PickingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pickingTasks[id]
	if !ok {
		return nil, fmt.Errorf("picking task %s: %w", id, ErrNotFound)
	}
	work := clonePickingTask(t)
	if err := fn(work); err != nil {
		return nil, err
	}
	s.pickingTasks[id] = work
	return clonePickingTask(work), nil
}

// PutDeliveryNote inserts a delivery note, checking its parent task exists
func (s *Store) PutDeliveryNote(n *models.DeliveryNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliveryNotes[n.ID]; exists {
		return fmt.Errorf("delivery note %s: %w", n.ID, ErrDuplicateID)
	}
	if _, ok := s.pickingTasks[n.PickingTaskID]; !ok {
		return fmt.Errorf("picking task %s: %w", n.PickingTaskID, ErrNotFound)
	}
	s.deliveryNotes[n.ID] = cloneDeliveryNote(n)
	s.noteIDs = append(s.noteIDs, n.ID)
	return nil
}

// GetDeliveryNote retrieves a delivery note by id
func (s *Store) GetDeliveryNote(id string) (*models.DeliveryNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.deliveryNotes[id]
	if !ok {
		return nil, fmt.Errorf("delivery note %s: %w", id, ErrNotFound)
	}
	return cloneDeliveryNote(n), nil
}

// ListDeliveryNotes returns delivery notes filtered by status
func (s *Store) ListDeliveryNotes(statuses ...string) []*models.DeliveryNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DeliveryNote
	for _, id := range s.noteIDs {
		n := s.deliveryNotes[id]
		if len(statuses) == 0 || statusIn(n.Status, statuses) {
			out = append(out, cloneDeliveryNote(n))
		}
	}
	return out
}

// UpdateDeliveryNote runs fn against the stored note under the lock
func (s *Store) UpdateDeliveryNote(id string, fn func(*models.DeliveryNote) error) (*models.DeliveryNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.deliveryNotes[id]
	if !ok {
		return nil, fmt.Errorf("delivery note %s: %w", id, ErrNotFound)
	}
	work := cloneDeliveryNote(n)
	if err := fn(work); err != nil {
		return nil, err
	}
	s.deliveryNotes[id] = work
	return cloneDeliveryNote(work), nil
}

// CompletePickingAndCreateNote applies the task completion and the
// delivery note creation as one atomic step, so no reader can observe a
// completed task without its note.
func (s *Store) CompletePickingAndCreateNote(taskID string, fn func(*models.PickingTask) (*models.DeliveryNote, error)) (*models.DeliveryNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pickingTasks[taskID]
	if !ok {
		return nil, fmt.Errorf("picking task %s: %w", taskID, ErrNotFound)
	}
	work := clonePickingTask(t)
	note, err := fn(work)
	if err != nil {
		return nil, err
	}
	if _, exists := s.deliveryNotes[note.ID]; exists {
		return nil, fmt.Errorf("delivery note %s: %w", note.ID, ErrDuplicateID)
	}
	s.pickingTasks[taskID] = work
	s.deliveryNotes[note.ID] = cloneDeliveryNote(note)
	s.noteIDs = append(s.noteIDs, note.ID)
	return cloneDeliveryNote(note), nil
}

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
