package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for route dispatch.
var (
	routeHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_route_hits_total",
		Help: "Total route registrations that fired, by method",
	}, []string{"method"})

	routeMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_route_misses_total",
		Help: "Total requests that fell through to the default handler",
	})

	routePatternErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_route_pattern_errors_total",
		Help: "Total registrations skipped because their pattern does not compile",
	})
)
