package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for name verification.
type Metrics struct {
	// Final outcomes by source and decision
	Outcomes *prometheus.CounterVec

	// Which hard rule settled a pair ("none" when deferred)
	Rules *prometheus.CounterVec

	// How verifier replies were parsed: strict, fallback, unknown
	ReplyParse *prometheus.CounterVec

	// Verifier transport failures by category
	VerifierErrors *prometheus.CounterVec

	// Semantic verifier round-trip latency
	VerifierLatency prometheus.Histogram

	// Overall verification latency by source
	VerifyLatency *prometheus.HistogramVec

	// Verdict cache lookups by result: hit, miss
	CacheLookups *prometheus.CounterVec

	// Circuit breaker state per breaker (0=closed, 1=open)
	BreakerState *prometheus.GaugeVec
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameguard_verification_outcomes_total",
			Help: "Total verification outcomes by source and decision",
		}, []string{"source", "decision"}),

		Rules: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameguard_cascade_rules_total",
			Help: "Total cascade evaluations by the rule that settled the pair",
		}, []string{"rule"}),

		ReplyParse: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameguard_verifier_reply_parse_total",
			Help: "Semantic verifier replies by parse stage",
		}, []string{"stage"}),

		VerifierErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameguard_verifier_errors_total",
			Help: "Semantic verifier call failures by category",
		}, []string{"category"}),

		VerifierLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nameguard_verifier_duration_seconds",
			Help:    "Duration of semantic verifier calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),

		VerifyLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nameguard_verify_duration_seconds",
			Help:    "Duration of full verification by decision source",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameguard_verdict_cache_lookups_total",
			Help: "Verdict cache lookups by result",
		}, []string{"result"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nameguard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}, []string{"circuit"}),
	}
}

// IncrementOutcome records a final verification outcome.
func (m *Metrics) IncrementOutcome(source, decision string) {
	if m != nil {
		m.Outcomes.WithLabelValues(source, decision).Inc()
	}
}

// IncrementRule records which cascade rule fired.
func (m *Metrics) IncrementRule(rule string) {
	if m != nil {
		if rule == "" {
			rule = "none"
		}
		m.Rules.WithLabelValues(rule).Inc()
	}
}

// IncrementReplyParse records the parse stage of a verifier reply.
func (m *Metrics) IncrementReplyParse(stage string) {
	if m != nil {
		m.ReplyParse.WithLabelValues(stage).Inc()
	}
}

// IncrementVerifierError records a failed verifier call.
func (m *Metrics) IncrementVerifierError(category string) {
	if m != nil {
		m.VerifierErrors.WithLabelValues(category).Inc()
	}
}

// ObserveVerifierLatency records one verifier round-trip.
func (m *Metrics) ObserveVerifierLatency(d time.Duration) {
	if m != nil {
		m.VerifierLatency.Observe(d.Seconds())
	}
}

// ObserveVerifyLatency records the total verification duration.
func (m *Metrics) ObserveVerifyLatency(source string, d time.Duration) {
	if m != nil {
		m.VerifyLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementCacheLookup implements cache.Observer.
func (m *Metrics) IncrementCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// SetBreakerState implements verifier.BreakerObserver.
func (m *Metrics) SetBreakerState(name string, open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.WithLabelValues(name).Set(1)
	} else {
		m.BreakerState.WithLabelValues(name).Set(0)
	}
}
