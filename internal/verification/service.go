// Package verification decides name pairs end to end: it runs the hard-rule
// cascade and, when the cascade defers, asks the semantic verifier exactly
// once. Every outcome is written to the compliance audit trail before it is
// returned.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nameguard/internal/matching"
	"nameguard/internal/names"
	"nameguard/internal/verification/metrics"
	"nameguard/internal/verifier"
	dErrors "nameguard/pkg/domain-errors"
	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/platform/sentinel"
	"nameguard/pkg/requestcontext"
)

// Policy selects the verification algorithm.
type Policy int

const (
	// PolicyVerifierOnly skips the cascade and sends every pair to the verifier
	// with the minimal prompt. Kept as a baseline for screening comparisons.
	PolicyVerifierOnly Policy = 1
	// PolicyCascade runs the hard rules first and defers the rest.
	PolicyCascade Policy = 2
)

func (p Policy) String() string {
	switch p {
	case PolicyVerifierOnly:
		return "verifier_only"
	case PolicyCascade:
		return "cascade"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePolicy accepts "cascade" / "2" and "verifier_only" / "1". Empty means cascade.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cascade", "2":
		return PolicyCascade, nil
	case "verifier_only", "verifier-only", "1":
		return PolicyVerifierOnly, nil
	default:
		return 0, fmt.Errorf("unknown verification policy %q", s)
	}
}

// Source says which component produced an outcome.
type Source string

const (
	SourceHardRule         Source = "hard_rule"
	SourceSemanticVerifier Source = "semantic_verifier"
)

// Result is a final verification outcome. Match is nil when the verifier's
// reply could not be read; Confidence is nil whenever the reply was not valid
// JSON.
type Result struct {
	Match        *bool
	Confidence   *int
	Explanation  string
	Source       Source
	Rule         matching.Rule
	PhoneticHint bool
	// Raw is the verifier's reply text; empty for hard-rule outcomes.
	Raw string
}

// IsMatch reports Match, treating an unknown outcome as a non-match.
func (r *Result) IsMatch() bool {
	return r.Match != nil && *r.Match
}

func fromDecision(d matching.Decision, rule matching.Rule) *Result {
	match := d.Match
	confidence := d.Confidence
	return &Result{
		Match:       &match,
		Confidence:  &confidence,
		Explanation: d.Explanation,
		Source:      SourceHardRule,
		Rule:        rule,
	}
}

// Auditor records compliance events. Emit failures must fail the verification.
type Auditor interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service orchestrates the cascade and the semantic verifier.
type Service struct {
	cascade  *matching.Cascade
	verifier verifier.Verifier
	policy   Policy
	auditor  Auditor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the verification policy. Defaults to PolicyCascade.
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithAuditor sets the compliance audit sink.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a verification service.
func New(cascade *matching.Cascade, v verifier.Verifier, opts ...Option) *Service {
	s := &Service{
		cascade:  cascade,
		verifier: v,
		policy:   PolicyCascade,
		logger:   slog.Default(),
		tracer:   otel.Tracer("nameguard/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// Verify decides whether target and candidate name the same person.
//
// Under PolicyCascade a hard-rule decision is returned without contacting the
// verifier. A deferred pair is sent to the verifier once, with the elaborated
// prompt and the phonetic hint. Verifier transport failures are returned as
// coded errors; malformed replies are not errors.
func (s *Service) Verify(ctx context.Context, target, candidate string) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification.Verify",
		trace.WithAttributes(attribute.String("policy", s.policy.String())),
	)
	defer span.End()

	normTarget, normCandidate := names.Normalize(target), names.Normalize(candidate)
	subject := audit.SubjectHash(normTarget, normCandidate)

	var (
		result *Result
		err    error
	)
	switch s.policy {
	case PolicyVerifierOnly:
		result, err = s.askVerifier(ctx, verifier.Request{
			Target:    target,
			Candidate: candidate,
			Prompt:    verifier.PromptMinimal,
		})
	case PolicyCascade:
		d, rule := s.cascade.Evaluate(target, candidate)
		s.metrics.IncrementRule(string(rule))
		if rule != matching.RuleNone {
			result = fromDecision(d, rule)
			break
		}
		result, err = s.askVerifier(ctx, verifier.Request{
			Target:       target,
			Candidate:    candidate,
			PhoneticHint: s.PhoneticHint(target, candidate),
			Prompt:       verifier.PromptElaborated,
		})
	default:
		err = dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unsupported verification policy %s", s.policy))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		s.logger.ErrorContext(ctx, "name verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_hash", subject,
			"policy", s.policy.String(),
			"error", err,
		)
		s.recordFailure(ctx, subject, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("source", string(result.Source)),
		attribute.String("rule", string(result.Rule)),
		attribute.String("decision", decisionLabel(result)),
		attribute.Bool("phonetic_hint", result.PhoneticHint),
	)

	if err := s.emit(ctx, subject, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification")
	}

	elapsed := time.Since(start)
	s.metrics.IncrementOutcome(string(result.Source), decisionLabel(result))
	s.metrics.ObserveVerifyLatency(string(result.Source), elapsed)
	s.logger.InfoContext(ctx, "name verified",
		"request_id", requestcontext.RequestID(ctx),
		"subject_hash", subject,
		"source", result.Source,
		"rule", result.Rule,
		"decision", decisionLabel(result),
		"phonetic_hint", result.PhoneticHint,
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

// PhoneticHint reports whether the pair sounds alike token by token but was
// held back by the phonetic risk scan. The verifier is told to look for the
// subtle differences that tripped the scan.
func (s *Service) PhoneticHint(target, candidate string) bool {
	if !s.cascade.PhoneticallyMatched(target, candidate) {
		return false
	}
	_, approved := s.cascade.AssessPhoneticRisk(names.Tokens(target), names.Tokens(candidate))
	return !approved
}

func (s *Service) askVerifier(ctx context.Context, req verifier.Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.askVerifier",
		trace.WithAttributes(
			attribute.String("prompt", string(req.Prompt)),
			attribute.Bool("phonetic_hint", req.PhoneticHint),
		),
	)
	defer span.End()

	start := time.Now()
	reply, err := s.verifier.Verify(ctx, req)
	s.metrics.ObserveVerifierLatency(time.Since(start))
	if err != nil {
		s.metrics.IncrementVerifierError(failureReason(err))
		span.RecordError(err)
		return nil, classifyVerifierError(err)
	}

	v := verifier.ParseReply(reply)
	switch {
	case v.Strict:
		s.metrics.IncrementReplyParse("strict")
	case v.Match != nil:
		s.metrics.IncrementReplyParse("fallback")
	default:
		s.metrics.IncrementReplyParse("unknown")
	}
	if !v.Strict {
		s.logger.WarnContext(ctx, "semantic verifier reply was not valid JSON",
			"request_id", requestcontext.RequestID(ctx),
			"recovered_match", v.Match != nil,
		)
	}

	return &Result{
		Match:        v.Match,
		Confidence:   v.Confidence,
		Explanation:  v.Explanation,
		Source:       SourceSemanticVerifier,
		PhoneticHint: req.PhoneticHint,
		Raw:          v.Raw,
	}, nil
}

func classifyVerifierError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "semantic verifier temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "verification cancelled")
	case verifier.Category(err) == verifier.ErrorTimeout, errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "semantic verifier timed out")
	case verifier.Category(err) == verifier.ErrorInternal:
		return dErrors.Wrap(err, dErrors.CodeInternal, "semantic verifier request failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "semantic verifier unavailable")
	}
}

func (s *Service) emit(ctx context.Context, subject string, r *Result) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.ComplianceEvent{
		Timestamp:   requestcontext.Now(ctx),
		Action:      audit.EventNameVerification,
		Decision:    decisionLabel(r),
		Source:      string(r.Source),
		Reason:      string(r.Rule),
		Confidence:  r.Confidence,
		SubjectHash: subject,
		RequestID:   requestcontext.RequestID(ctx),
		ActorID:     requestcontext.Caller(ctx),
	})
}

// recordFailure audits a verification that produced no decision. The caller
// already fails, so an audit error here is only logged.
func (s *Service) recordFailure(ctx context.Context, subject string, cause error) {
	if s.auditor == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := s.auditor.Emit(ctx, audit.ComplianceEvent{
		Timestamp:   requestcontext.Now(ctx),
		Action:      audit.EventNameVerification,
		Decision:    audit.DecisionErrored,
		Source:      string(SourceSemanticVerifier),
		Reason:      failureReason(cause),
		SubjectHash: subject,
		RequestID:   requestcontext.RequestID(ctx),
		ActorID:     requestcontext.Caller(ctx),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to audit verification failure", "error", err)
	}
}

// failureReason labels a verifier failure for metrics and the audit trail.
func failureReason(err error) string {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return "circuit_open"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return string(verifier.Category(err))
}

func decisionLabel(r *Result) string {
	switch {
	case r.Match == nil:
		return audit.DecisionUnknown
	case *r.Match:
		return audit.DecisionMatch
	default:
		return audit.DecisionNoMatch
	}
}
