// Package metrics exposes Prometheus counters for the interview workflow
// and HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imre_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imre_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	interviewsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imre_interviews_started_total",
		Help: "Total number of interviews started",
	})

	answersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imre_answers_total",
			Help: "Answer submissions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	stageAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imre_stage_advances_total",
			Help: "Stage transitions by completed stage",
		},
		[]string{"stage"},
	)

	interviewsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imre_interviews_finished_total",
			Help: "Interviews reaching a terminal status",
		},
		[]string{"status"},
	)

	reportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imre_reports_generated_total",
			Help: "Reports generated by recommendation",
		},
		[]string{"recommendation"},
	)

	sharingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imre_sharing_decisions_total",
			Help: "Sharing gate decisions",
		},
		[]string{"action", "decision"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RecordInterviewStarted counts a new interview.
func RecordInterviewStarted() {
	interviewsStarted.Inc()
}

// RecordAnswer counts an answer submission; outcome is "accepted" or the
// rejection kind.
func RecordAnswer(stageID, outcome string) {
	answersTotal.WithLabelValues(stageID, outcome).Inc()
}

// RecordStageAdvance counts completion of a stage.
func RecordStageAdvance(stageID string) {
	stageAdvances.WithLabelValues(stageID).Inc()
}

// RecordInterviewFinished counts a terminal transition.
func RecordInterviewFinished(status string) {
	interviewsFinished.WithLabelValues(status).Inc()
}

// RecordReportGenerated counts a newly generated report.
func RecordReportGenerated(recommendation string) {
	reportsGenerated.WithLabelValues(recommendation).Inc()
}

// RecordSharingDecision counts a grant or revoke decision.
func RecordSharingDecision(action, decision string) {
	sharingDecisions.WithLabelValues(action, decision).Inc()
}
