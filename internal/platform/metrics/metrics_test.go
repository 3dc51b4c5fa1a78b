package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrument(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/healthz", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")))
}

func TestSetBuildInfo(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())
	m.SetBuildInfo("dev", "cascade")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildInfo.WithLabelValues("dev", "cascade")))
}
