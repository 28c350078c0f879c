package storefront

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Storefront requests by method and response status",
	}, []string{"method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Storefront request duration in seconds by method",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	unknownShopTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_unknown_shop_total",
		Help: "Requests whose host matched no shop",
	})
)
