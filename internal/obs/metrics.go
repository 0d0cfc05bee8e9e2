package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Access check outcomes.
const (
	AccessGranted      = "granted"
	AccessForbidden    = "forbidden"
	AccessInvalidState = "invalid_state"
)

// Principal resolution outcomes.
const (
	ResolutionOK       = "ok"
	ResolutionRejected = "rejected"
	ResolutionError    = "error"
)

var (
	initOnce sync.Once

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

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the last readiness check succeeded.",
	})

	accessChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_checks_total",
			Help: "Workspace access lookups by outcome.",
		},
		[]string{"result"},
	)

	unknownRoles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_unknown_role_total",
		Help: "Memberships whose role fell outside the known set.",
	})

	principalResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "principal_resolutions_total",
			Help: "Principal resolutions by kind and outcome.",
		},
		[]string{"kind", "result"},
	)
)

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
			accessChecks, unknownRoles, principalResolutions,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the outcome of the latest readiness check.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

func ObserveAccessCheck(result string) {
	accessChecks.WithLabelValues(result).Inc()
}

func ObserveUnknownRole() {
	unknownRoles.Inc()
}

func ObservePrincipalResolution(kind, result string) {
	principalResolutions.WithLabelValues(kind, result).Inc()
}

// Instrument measures request rate, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses identifiers in known routes so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const prefix = "/v1/workspaces/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	switch {
	case len(parts) == 2 && (parts[1] == "access" || parts[1] == "members" || parts[1] == "api-keys"):
		return prefix + ":id/" + parts[1]
	case len(parts) == 3 && parts[1] == "abilities":
		return prefix + ":id/abilities/:ability"
	case len(parts) == 4 && parts[1] == "members" && (parts[3] == "role" || parts[3] == "block"):
		return prefix + ":id/members/:member/" + parts[3]
	default:
		return path
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
