package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Triage metrics
	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_classifications_total",
			Help: "Total number of first-message classifications",
		},
		[]string{"path", "branch", "urgency"},
	)

	redFlagsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_red_flags_detected_total",
			Help: "Total number of red flag matches",
		},
		[]string{"severity", "label"},
	)

	emergencyOverrides = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_emergency_overrides_total",
			Help: "Total number of mid-conversation emergency overrides",
		},
	)

	phaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_phase_transitions_total",
			Help: "Total number of conversation phase transitions",
		},
		[]string{"path", "phase"},
	)

	skippedPatterns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_skipped_patterns",
			Help: "Number of classifier patterns skipped because they failed to compile",
		},
	)

	// Routing metrics
	routingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_decisions_total",
			Help: "Total number of facility routing decisions",
		},
		[]string{"tipo"},
	)

	specializedSearchMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "routing_specialized_search_misses_total",
			Help: "Total number of specialized facility searches that fell back to CAU",
		},
	)

	kbFacilities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kb_facilities",
			Help: "Number of facilities loaded in the knowledge base by tipologia",
		},
		[]string{"tipologia"},
	)

	// Session metrics
	sessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	sessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_completed_total",
			Help: "Total number of sessions that reached disposition",
		},
		[]string{"path", "disposition"},
	)

	sessionsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_cleaned_total",
			Help: "Total number of sessions removed by age cleanup",
		},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	// Replace UUIDs with placeholder
	// Simple heuristic: segments that look like UUIDs
	// In production, use proper path templates
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Triage metric helpers ---

// RecordClassification records a first-message classification result
func RecordClassification(path, branch string, urgency int) {
	classificationsTotal.WithLabelValues(path, branch, strconv.Itoa(urgency)).Inc()
}

// RecordRedFlag records a matched red flag
func RecordRedFlag(severity, label string) {
	redFlagsDetected.WithLabelValues(severity, label).Inc()
}

// RecordEmergencyOverride records a mid-conversation emergency override
func RecordEmergencyOverride() {
	emergencyOverrides.Inc()
}

// RecordPhaseTransition records a conversation phase transition
func RecordPhaseTransition(path, phase string) {
	phaseTransitions.WithLabelValues(path, phase).Inc()
}

// RecordSkippedPatterns records the number of uncompilable classifier patterns
func RecordSkippedPatterns(count int) {
	skippedPatterns.Set(float64(count))
}

// RecordRoutingDecision records a facility routing decision
func RecordRoutingDecision(tipo string) {
	routingDecisions.WithLabelValues(tipo).Inc()
}

// RecordSpecializedSearchMiss records a specialized search that fell back to CAU
func RecordSpecializedSearchMiss() {
	specializedSearchMisses.Inc()
}

// RecordKBFacilities records the facility count for a tipologia
func RecordKBFacilities(tipologia string, count int) {
	kbFacilities.WithLabelValues(tipologia).Set(float64(count))
}

// RecordSessionCreated records a session creation
func RecordSessionCreated() {
	sessionsCreated.Inc()
}

// RecordSessionCompleted records a session reaching disposition
func RecordSessionCompleted(path, disposition string) {
	sessionsCompleted.WithLabelValues(path, disposition).Inc()
}

// RecordSessionsCleaned records sessions removed by age cleanup
func RecordSessionsCleaned(count int) {
	sessionsCleaned.Add(float64(count))
}

// RecordDBConnections records active database connections
func RecordDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
