package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// counterValue reads a counter from the default registry; zero if absent.
func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/reports/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	labels := map[string]string{"method": http.MethodGet, "route": "/reports/{id}", "status": "418"}
	before := counterValue(t, "imre_http_requests_total", labels)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	require.Equal(t, before+1, counterValue(t, "imre_http_requests_total", labels))
}

func TestBusinessCounters(t *testing.T) {
	labels := map[string]string{"stage": "opening", "outcome": "accepted"}
	before := counterValue(t, "imre_answers_total", labels)
	RecordAnswer("opening", "accepted")
	require.Equal(t, before+1, counterValue(t, "imre_answers_total", labels))

	RecordReportGenerated("no_action")
	require.GreaterOrEqual(t, counterValue(t, "imre_reports_generated_total",
		map[string]string{"recommendation": "no_action"}), float64(1))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "imre_reports_generated_total")
}
