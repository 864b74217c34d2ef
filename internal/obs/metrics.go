package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	authRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Refresh token rotations by outcome.",
		},
		[]string{"outcome"},
	)

	enrichItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_items_total",
			Help: "Enrichment item outcomes by kind.",
		},
		[]string{"kind", "outcome"},
	)

	enrichBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_batches_total",
			Help: "Enrichment batches executed by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		authLogins, authRefreshes,
		enrichItems, enrichBatches,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountLogin records a login attempt outcome ("success" or "failure").
func CountLogin(outcome string) { authLogins.WithLabelValues(outcome).Inc() }

// CountRefresh records a refresh attempt outcome ("success",
// "rejected" or "missing").
func CountRefresh(outcome string) { authRefreshes.WithLabelValues(outcome).Inc() }

// CountEnrichItem records a single enrichment outcome for a kind.
func CountEnrichItem(kind, outcome string) { enrichItems.WithLabelValues(kind, outcome).Inc() }

// CountEnrichBatch records a completed batch for a kind.
func CountEnrichBatch(kind, outcome string) { enrichBatches.WithLabelValues(kind, outcome).Inc() }

// CanonicalPath collapses per-item URL segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for _, family := range []string{"/v1/books/enrichment/", "/v1/podcasts/enrichment/", "/v1/movies/enrichment/"} {
		rest, ok := strings.CutPrefix(path, family)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		switch rest {
		case "status", "run", "run-all":
			return path
		}
		return family + ":id"
	}
	return path
}

// Instrument wraps an http.Handler with RPS, latency and in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics and request logs.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE handlers keep working
// behind the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
