package api

import (
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "employee_registry_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "employee_registry_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "employee_registry_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	panicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "employee_registry_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)

	publishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "employee_registry_event_publish_failures_total",
			Help: "Employee change events that could not be published",
		},
		[]string{"kind"},
	)
)

var metricsHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())

// MetricsMiddleware считает RED-метрики. Метка path содержит шаблон маршрута, а не фактический URI.
func MetricsMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		next(ctx)

		path, ok := ctx.UserValue(router.MatchedRoutePathParam).(string)
		if !ok {
			path = "unmatched"
		}
		method := string(ctx.Method())

		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
