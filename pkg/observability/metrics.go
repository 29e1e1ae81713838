package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	TokenVerificationsTotal *prometheus.CounterVec
	AuthzDecisionsTotal     *prometheus.CounterVec

	// Document store metrics
	StoreQueriesTotal    *prometheus.CounterVec
	StoreQueryDuration   *prometheus.HistogramVec
	UserCacheHitsTotal   prometheus.Counter
	UserCacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "golfapi_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "golfapi_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "golfapi_token_verifications_total",
				Help: "Total number of bearer token verifications",
			},
			[]string{"result"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "golfapi_authz_decisions_total",
				Help: "Total number of scope authorization decisions",
			},
			[]string{"scope", "decision"},
		),
		StoreQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "golfapi_store_queries_total",
				Help: "Total number of document store queries",
			},
			[]string{"collection", "result"},
		),
		StoreQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "golfapi_store_query_duration_seconds",
				Help:    "Document store query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection"},
		),
		UserCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "golfapi_user_cache_hits_total",
				Help: "Total number of stored-user cache hits",
			},
		),
		UserCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "golfapi_user_cache_misses_total",
				Help: "Total number of stored-user cache misses",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TokenVerificationsTotal,
		m.AuthzDecisionsTotal,
		m.StoreQueriesTotal,
		m.StoreQueryDuration,
		m.UserCacheHitsTotal,
		m.UserCacheMissesTotal,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments HTTP handlers with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
