package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_events_ingested_total",
			Help: "Interaction events appended to the event store",
		},
		[]string{"section"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_events_rejected_total",
			Help: "Interaction events rejected before storage",
		},
		[]string{"reason"}, // "validation", "rate_limit", "store"
	)

	EventsPublishFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intel_events_publish_failed_total",
			Help: "Stored events that could not be published to the event stream",
		},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_recommendations_total",
			Help: "Recommendation requests by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: "items", "sections"; outcome: "ok", "empty", "insufficient", "error"
	)

	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_insights_generated_total",
			Help: "Actionable insights produced by rule",
		},
		[]string{"type"},
	)

	MirrorRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intel_mirror_rows_written_total",
			Help: "Events written to the ClickHouse mirror",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Middleware records request latency labelled by the matched chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
