package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"logistique-service/internal/models"
	"logistique-service/internal/projection"
	"logistique-service/internal/redisclient"
	"logistique-service/internal/store"
	"logistique-service/internal/unify"
	"logistique-service/internal/util"
)

const snapshotTTL = 5 * time.Second

// QueryService builds the read-side views: unified order rows annotated
// with projected stock statuses, the priority ordering, and the raw
// projection outputs.
type QueryService struct {
	store   *store.Store
	unifier *unify.Unifier
	engine  *projection.Engine
	redis   *redisclient.Client
	logger  *zap.Logger
}

// NewQueryService creates a query service. redis may be nil; snapshot
// caching is then skipped.
func NewQueryService(st *store.Store, redis *redisclient.Client) *QueryService {
	return &QueryService{
		store:   st,
		unifier: unify.NewUnifier(st),
		engine:  projection.NewEngine(),
		redis:   redis,
		logger:  util.GetLogger(),
	}
}

// UnifiedOrders returns one row per commercial order, each annotated
// with its projected stock status. Rows keep unification order.
func (s *QueryService) UnifiedOrders(ctx context.Context, today time.Time) []models.UnifiedOrder {
	ctx, span := util.StartSpan(ctx, "QueryService.UnifiedOrders")
	defer span.End()

	// The unified view depends on the reference date, so the snapshot
	// is keyed per day. A debug query with an overridden date must not
	// serve rows computed for another one.
	snapshotKey := redisclient.UnifiedOrdersKey(today)
	if s.redis != nil {
		var cached []models.UnifiedOrder
		hit, err := s.redis.GetSnapshot(ctx, snapshotKey, &cached)
		if err != nil {
			s.logger.Debug("Snapshot cache read failed", zap.Error(err))
		} else if hit {
			return cached
		}
	}

	rows := s.unifier.UnifiedOrders(today)
	statuses := s.engine.ProjectedStatuses(rows, s.store.ListProducts())
	for i := range rows {
		if status, ok := statuses[rows[i].ID]; ok {
			rows[i].StockStatus = status
		}
	}

	if s.redis != nil {
		if err := s.redis.CacheSnapshot(ctx, snapshotKey, rows, snapshotTTL); err != nil {
			s.logger.Debug("Snapshot cache write failed", zap.Error(err))
		}
	}
	return rows
}

// UnifiedOrdersByPriority returns the unified rows in triage order:
// in-preparation work first, then immediately startable orders, then
// the rest, ties by ascending delivery date.
func (s *QueryService) UnifiedOrdersByPriority(ctx context.Context, today time.Time) []models.UnifiedOrder {
	ctx, span := util.StartSpan(ctx, "QueryService.UnifiedOrdersByPriority")
	defer span.End()
	return unify.SortByPriority(s.UnifiedOrders(ctx, today))
}

// ProjectedStatuses returns the projected stock status per unified
// order id for the current document set.
func (s *QueryService) ProjectedStatuses(ctx context.Context, today time.Time) map[string]string {
	_, span := util.StartSpan(ctx, "QueryService.ProjectedStatuses")
	defer span.End()
	rows := s.unifier.UnifiedOrders(today)
	return s.engine.ProjectedStatuses(rows, s.store.ListProducts())
}

// FirstStockouts returns, per unified order id, the products first
// driven into shortage while that order was processed.
func (s *QueryService) FirstStockouts(ctx context.Context, today time.Time) map[string][]string {
	_, span := util.StartSpan(ctx, "QueryService.FirstStockouts")
	defer span.End()
	rows := s.unifier.UnifiedOrders(today)
	return s.engine.FirstStockouts(rows, s.store.ListProducts())
}

// GetPickingTask returns one picking task by id
func (s *QueryService) GetPickingTask(ctx context.Context, id string) (*models.PickingTask, error) {
	_, span := util.StartSpan(ctx, "QueryService.GetPickingTask")
	defer span.End()
	return s.store.GetPickingTask(id)
}

// GetDeliveryNote returns one delivery note by id
func (s *QueryService) GetDeliveryNote(ctx context.Context, id string) (*models.DeliveryNote, error) {
	_, span := util.StartSpan(ctx, "QueryService.GetDeliveryNote")
	defer span.End()
	return s.store.GetDeliveryNote(id)
}

// ListProducts exposes the read-only catalog
func (s *QueryService) ListProducts(ctx context.Context) []models.Product {
	_, span := util.StartSpan(ctx, "QueryService.ListProducts")
	defer span.End()
	return s.store.ListProducts()
}
