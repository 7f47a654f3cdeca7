package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_orders_opened_total",
		Help: "Total number of orders opened",
	})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_orders_completed_total",
		Help: "Total number of orders completed and persisted",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_orders_failed_total",
		Help: "Total number of order operations rejected or failed",
	}, []string{"reason"})

	OrdersDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_orders_discarded_total",
		Help: "Total number of pending orders discarded",
	})

	SalesAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_sales_amount_total",
		Help: "Sum of completed order totals",
	})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_stock_adjustments_total",
		Help: "Total number of stock adjustments by outcome",
	}, []string{"outcome"})

	LowStockProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pharmacy_low_stock_products",
		Help: "Number of products at or below the low-stock threshold",
	})

	ShiftsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_shifts_ended_total",
		Help: "Total number of shifts ended by shift type",
	}, []string{"shift_type"})

	MalformedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_malformed_records_total",
		Help: "Total number of data file records skipped while loading",
	}, []string{"file"})

	StoreWriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmacy_store_write_latency_seconds",
		Help:    "Latency of data file writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"file", "mode"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_logins_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	CommandQueueLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pharmacy_command_latency_seconds",
		Help:    "Time from command submission to completion",
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
