package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LotsScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "picking_lots_scanned_total",
		Help: "Total number of lots scanned against picking tasks",
	})

	ScansRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picking_scans_rejected_total",
		Help: "Total number of scans rejected by the lot policy",
	}, []string{"reason"})

	PickingCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "picking_tasks_completed_total",
		Help: "Total number of picking tasks validated",
	})

	PickingCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "picking_tasks_cancelled_total",
		Help: "Total number of picking tasks cancelled",
	})

	DeliveriesShippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deliveries_shipped_total",
		Help: "Total number of delivery notes shipped",
	})

	DeliveriesInvoicedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deliveries_invoiced_total",
		Help: "Total number of delivery notes invoiced",
	})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_transitions_rejected_total",
		Help: "Total number of illegal status transitions refused",
	}, []string{"kind"})

	EventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "document_events_published_total",
		Help: "Total number of document lifecycle events published to Kafka",
	})

	ProjectionRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_projection_runs_total",
		Help: "Total number of stock projection computations",
	})

	ScanLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "picking_scan_latency_seconds",
		Help:    "Latency of lot scan operations including simulated scanner delay",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
