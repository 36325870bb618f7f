package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"logistique-service/internal/calendar"
	"logistique-service/internal/lifecycle"
	"logistique-service/internal/models"
	"logistique-service/internal/service"
	"logistique-service/internal/store"
	"logistique-service/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	picking *service.PickingService
	queries *service.QueryService
}

// NewHandler creates a new HTTP handler
func NewHandler(picking *service.PickingService, queries *service.QueryService) *Handler {
	return &Handler{picking: picking, queries: queries}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/orders", h.listUnifiedOrders)
		v1.GET("/orders/priority", h.listUnifiedOrdersByPriority)
		v1.GET("/orders/projection", h.projectedStatuses)
		v1.GET("/orders/stockouts", h.firstStockouts)
		v1.POST("/orders/:id/prepare", h.prepareOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.GET("/statuses/:kind", h.statusInfo)
		v1.GET("/picking/:id", h.getPickingTask)
		v1.POST("/picking/:id/scan", h.scanLot)
		v1.POST("/picking/:id/complete", h.completePicking)
		v1.POST("/picking/:id/cancel", h.cancelPicking)
		v1.GET("/deliveries/:id", h.getDeliveryNote)
		v1.POST("/deliveries/:id/ship", h.shipDelivery)
		v1.POST("/deliveries/:id/sign", h.signDelivery)
		v1.POST("/deliveries/:id/invoice", h.invoiceDelivery)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// todayParam reads the reference date, defaulting to now. The seed data
// and the unification filter are both anchored on it.
func todayParam(c *gin.Context) time.Time {
	if raw := c.Query("today"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t
		}
	}
	return time.Now()
}

func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.queries.ListProducts(c.Request.Context())})
}

// orderView decorates a unified row with the display attributes of its
// underlying document: label, badge and the actions legal right now.
type orderView struct {
	models.UnifiedOrder
	StatusLabel string                  `json:"status_label"`
	Badge       lifecycle.BadgeCategory `json:"badge"`
	Actions     []string                `json:"actions"`
}

func orderViews(rows []models.UnifiedOrder) []orderView {
	views := make([]orderView, 0, len(rows))
	for _, row := range rows {
		doc := row.Document
		views = append(views, orderView{
			UnifiedOrder: row,
			StatusLabel:  lifecycle.Label(doc.Kind, doc.Status()),
			Badge:        lifecycle.BadgeFor(doc.Kind, doc.Status()),
			Actions:      lifecycle.AvailableActions(doc.Kind, doc.Status()),
		})
	}
	return views
}

// periodFilter narrows rows to deliveries falling inside the requested
// period, anchored on the reference date. Weeks start on Monday.
func periodFilter(rows []models.UnifiedOrder, period string, today time.Time) []models.UnifiedOrder {
	var from, to time.Time
	switch period {
	case "today":
		from, to = calendar.StartOfDay(today), calendar.EndOfDay(today)
	case "week":
		from = calendar.StartOfWeek(today, time.Monday)
		to = calendar.EndOfDay(calendar.EndOfWeek(today, time.Monday))
	case "month":
		from = calendar.StartOfMonth(today)
		to = calendar.EndOfDay(calendar.EndOfMonth(today))
	default:
		return rows
	}
	out := make([]models.UnifiedOrder, 0, len(rows))
	for _, r := range rows {
		if !r.DeliveryDate.Before(from) && !r.DeliveryDate.After(to) {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) listUnifiedOrders(c *gin.Context) {
	today := todayParam(c)
	orders := h.queries.UnifiedOrders(c.Request.Context(), today)
	orders = periodFilter(orders, c.Query("period"), today)
	c.JSON(http.StatusOK, gin.H{"orders": orderViews(orders)})
}

func (h *Handler) listUnifiedOrdersByPriority(c *gin.Context) {
	today := todayParam(c)
	orders := h.queries.UnifiedOrdersByPriority(c.Request.Context(), today)
	orders = periodFilter(orders, c.Query("period"), today)
	c.JSON(http.StatusOK, gin.H{"orders": orderViews(orders)})
}

func (h *Handler) projectedStatuses(c *gin.Context) {
	statuses := h.queries.ProjectedStatuses(c.Request.Context(), todayParam(c))
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func (h *Handler) firstStockouts(c *gin.Context) {
	stockouts := h.queries.FirstStockouts(c.Request.Context(), todayParam(c))
	c.JSON(http.StatusOK, gin.H{"stockouts": stockouts})
}

func (h *Handler) prepareOrder(c *gin.Context) {
	taskID, err := h.picking.PrepareSalesOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"picking_task_id": taskID})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.picking.CancelSalesOrder(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.SalesOrderCancelled})
}

// statusInfo exposes the lifecycle engine queries for one document kind
func (h *Handler) statusInfo(c *gin.Context) {
	kind := models.DocumentKind(c.Param("kind"))
	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusOK, gin.H{
			"kind":     kind,
			"statuses": lifecycle.Statuses(kind),
		})
		return
	}

	next, err := lifecycle.LegalTransitions(kind, status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"label":       lifecycle.Label(kind, status),
		"badge":       lifecycle.BadgeFor(kind, status),
		"transitions": next,
		"actions":     lifecycle.AvailableActions(kind, status),
	})
}

// scanRequest carries one lot scan. An empty product id lets the
// workflow pick the next under-fulfilled line; a zero quantity lets it
// derive the quantity from the lot plan.
type scanRequest struct {
	ProductID string `json:"product_id"`
	LotNumber string `json:"lot_number"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) getPickingTask(c *gin.Context) {
	task, err := h.queries.GetPickingTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"picking_task": task})
}

func (h *Handler) getDeliveryNote(c *gin.Context) {
	note, err := h.queries.GetDeliveryNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_note": note})
}

func (h *Handler) scanLot(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	lot, err := h.picking.ScanLot(c.Request.Context(), c.Param("id"), req.ProductID, req.LotNumber, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"scanned_lot": lot})
}

func (h *Handler) completePicking(c *gin.Context) {
	noteID, err := h.picking.CompletePickingTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"delivery_note_id": noteID})
}

func (h *Handler) cancelPicking(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.picking.CancelPickingTask(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.PickingCancelled})
}

func (h *Handler) shipDelivery(c *gin.Context) {
	note, err := h.picking.ShipDeliveryNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_note": note})
}

func (h *Handler) signDelivery(c *gin.Context) {
	note, err := h.picking.SignDeliveryNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_note": note})
}

func (h *Handler) invoiceDelivery(c *gin.Context) {
	note, err := h.picking.InvoiceDeliveryNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_note": note})
}

// respondError maps the domain error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, service.ErrTaskNotReady),
		errors.Is(err, store.ErrActiveTaskExists),
		errors.Is(err, service.ErrScanInFlight):
		status = http.StatusConflict
	case errors.Is(err, service.ErrScanPolicy):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
