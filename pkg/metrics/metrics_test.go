package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/metrics"
)

func TestRegisterAndInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	metrics.Register(reg)

	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Get("/plans/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans/free", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "kanbax_http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["route"] == "/plans/{name}" && labels["status"] == "418" {
				found = true
			}
		}
	}
	assert.True(t, found)

	before := testutil.ToFloat64(metrics.EntitlementDenials.WithLabelValues("boards", "free"))
	metrics.EntitlementDenials.WithLabelValues("boards", "free").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.EntitlementDenials.WithLabelValues("boards", "free")))
}
