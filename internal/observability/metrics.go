package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	invocationTotal    *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram

	persistFailures *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	purgedTotal     prometheus.Counter

	catalogReloads *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	wsActive     prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			invocationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "backend_invocations_total",
					Help: "Total model backend invocations by family and status.",
				},
				[]string{"family", "status"},
			),
			invocationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "backend_invocation_duration_seconds",
					Help:    "Model backend invocation duration in seconds by family.",
					Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
				},
				[]string{"family"},
			),
			dispatchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dispatch_outcomes_total",
					Help: "Terminal dispatch outcomes by the last state reached.",
				},
				[]string{"outcome", "state"},
			),
			dispatchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "dispatch_duration_seconds",
					Help:    "End to end dispatch duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			persistFailures: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "session_persist_failures_total",
					Help: "Session records that could not be written, by store kind.",
				},
				[]string{"store"},
			),
			persistDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "store_put_duration_seconds",
					Help:    "Store write duration in seconds by store kind.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"store"},
			),
			purgedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "session_records_purged_total",
					Help: "Session records removed by the retention sweep.",
				},
			),
			catalogReloads: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "persona_catalog_reloads_total",
					Help: "Persona catalog reloads by status.",
				},
				[]string{"status"},
			),
			httpRequests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "HTTP requests by route and status code.",
				},
				[]string{"route", "code"},
			),
			httpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds by route.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route"},
			),
			wsActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections_active",
					Help: "Currently open WebSocket connections.",
				},
			),
		}

		prometheus.MustRegister(
			m.invocationTotal,
			m.invocationDuration,
			m.dispatchTotal,
			m.dispatchDuration,
			m.persistFailures,
			m.persistDuration,
			m.purgedTotal,
			m.catalogReloads,
			m.httpRequests,
			m.httpDuration,
			m.wsActive,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func RecordBackendInvocation(family string, duration time.Duration, success bool) {
	m := getMetrics()
	m.invocationTotal.WithLabelValues(family, status(success)).Inc()
	m.invocationDuration.WithLabelValues(family).Observe(duration.Seconds())
}

// RecordDispatch counts a finished dispatch. state is the last state the
// request reached; for failures that is where it stopped.
func RecordDispatch(state string, duration time.Duration, success bool) {
	m := getMetrics()
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	m.dispatchTotal.WithLabelValues(outcome, state).Inc()
	m.dispatchDuration.Observe(duration.Seconds())
}

func RecordPersistFailure(store string) {
	getMetrics().persistFailures.WithLabelValues(store).Inc()
}

func RecordStorePut(store string, duration time.Duration) {
	getMetrics().persistDuration.WithLabelValues(store).Observe(duration.Seconds())
}

func RecordPurged(count int) {
	if count <= 0 {
		return
	}
	getMetrics().purgedTotal.Add(float64(count))
}

func RecordCatalogReload(success bool) {
	getMetrics().catalogReloads.WithLabelValues(status(success)).Inc()
}

func RecordHTTPRequest(route string, code int, duration time.Duration) {
	m := getMetrics()
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func AddWebSocketConnections(delta int) {
	getMetrics().wsActive.Add(float64(delta))
}
