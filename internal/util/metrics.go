package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"status"})

	OrdersAutoCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_auto_cancelled_total",
		Help: "Total number of orders cancelled by the lifecycle coordinator",
	}, []string{"reason"})

	InvalidTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_invalid_transitions_total",
		Help: "Total number of rejected status transitions",
	})

	StockDeductionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_deductions_total",
		Help: "Total number of successful order stock deductions",
	})

	StockDeductionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_deductions_failed_total",
		Help: "Total number of failed order stock deductions",
	}, []string{"reason"})

	StockDeductLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_deduct_latency_seconds",
		Help:    "Latency of order stock deduction transactions",
		Buckets: prometheus.DefBuckets,
	})

	StatusHistoryEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_status_history_entries_total",
		Help: "Total number of status history entries appended",
	})

	CartsClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carts_cleared_total",
		Help: "Total number of carts emptied during fulfilment",
	})

	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of cart item additions",
	})

	LifecycleFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_failures_total",
		Help: "Total number of swallowed lifecycle side-effect failures",
	}, []string{"stage"})

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
