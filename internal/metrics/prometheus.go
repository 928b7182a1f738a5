package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "Closed sync runs by strategy and terminal status.",
		},
		[]string{"strategy", "status"},
	)
	syncProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_products_total",
			Help: "Products handled by sync runs, by outcome.",
		},
		[]string{"outcome"},
	)
	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Wall time of sync runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"strategy"},
	)
	syncLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last sync run that did not fail.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
	prometheus.MustRegister(syncRunsTotal, syncProductsTotal, syncDuration, syncLastSuccess)
}

// RecordRequest records one served HTTP request.
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordSync records a closed sync run.
func RecordSync(strategy, status string, added, updated, errors int, duration time.Duration, end time.Time) {
	syncRunsTotal.WithLabelValues(strategy, status).Inc()
	syncProductsTotal.WithLabelValues("added").Add(float64(added))
	syncProductsTotal.WithLabelValues("updated").Add(float64(updated))
	syncProductsTotal.WithLabelValues("error").Add(float64(errors))
	syncDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if status != "failed" {
		syncLastSuccess.Set(float64(end.Unix()))
	}
}

func classifyStatus(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// Middleware times every request. Routes are labelled by their pattern,
// not the raw path, to keep label cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		RecordRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
