package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveCarts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carts_active",
		Help: "Number of carts held in the session store",
	})

	CartsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carts_evicted_total",
		Help: "Total number of carts evicted after their TTL",
	})

	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Total number of cart operations",
	}, []string{"operation", "result"})

	PricingRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_rejections_total",
		Help: "Total number of cart lines rejected by the pricing validator",
	}, []string{"reason"})

	PriceMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_client_price_mismatches_total",
		Help: "Total number of client-supplied prices that differed from the catalog",
	})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of checkout attempts by outcome",
	}, []string{"result"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderRollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_rollbacks_total",
		Help: "Total number of compensating order deletions",
	}, []string{"result"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the checkout pipeline",
		Buckets: prometheus.DefBuckets,
	})

	RateLimitDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_decisions_total",
		Help: "Total number of rate limit checks by backend and decision",
	}, []string{"backend", "decision"})

	RateLimitFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_fallbacks_total",
		Help: "Total number of rate limit checks that fell back to the local counter",
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
