package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds process-level Prometheus metrics for the application
type Metrics struct {
	BuildInfo    *prometheus.GaugeVec
	HTTPRequests *prometheus.CounterVec
}

// New creates and registers all process metrics on the default registry
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nameguard_build_info",
			Help: "Build and policy information, always 1",
		}, []string{"version", "policy"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameguard_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
	}
}

// SetBuildInfo records the running version and verification policy.
func (m *Metrics) SetBuildInfo(version, policy string) {
	m.BuildInfo.WithLabelValues(version, policy).Set(1)
}

// Instrument counts requests by chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
