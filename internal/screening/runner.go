package screening

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nameguard/internal/verification"
	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/requestcontext"
)

// Verifier decides one name pair.
type Verifier interface {
	Verify(ctx context.Context, target, candidate string) (*verification.Result, error)
}

// Tracker records best-effort operational events.
type Tracker interface {
	Track(ctx context.Context, action audit.AuditEvent, event audit.Event)
}

// Outcome is the result of one case. Err is set when verification failed;
// such cases count as incorrect.
type Outcome struct {
	Index   int
	Case    Case
	Result  *verification.Result
	Correct bool
	Elapsed time.Duration
	Err     error
}

// Run is a completed screening run.
type Run struct {
	ID       uuid.UUID
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Runner verifies cases with a bounded worker pool.
type Runner struct {
	verifier Verifier
	workers  int
	logger   *slog.Logger
	tracker  Tracker
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds concurrent verifications. Values below 1 mean 1.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = max(n, 1)
	}
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracker records a screening_completed ops event per run.
func WithTracker(t Tracker) RunnerOption {
	return func(r *Runner) {
		r.tracker = t
	}
}

func NewRunner(v Verifier, opts ...RunnerOption) *Runner {
	r := &Runner{verifier: v, workers: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run verifies every case and returns outcomes in case order. A failed
// verification is recorded on its outcome and does not stop the run; only
// cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Run, error) {
	run := &Run{ID: uuid.New(), Outcomes: make([]Outcome, len(cases))}
	ctx = requestcontext.WithCaller(ctx, "screening")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, c := range cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			run.Outcomes[i] = r.verifyCase(gctx, run.ID, i, c)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run.Elapsed = time.Since(start)

	summary := Summarize(run)
	r.logger.InfoContext(ctx, "screening completed",
		"run_id", run.ID,
		"total", summary.Total,
		"correct", summary.Correct,
		"errors", summary.Errors,
		"duration_ms", run.Elapsed.Milliseconds(),
	)
	if r.tracker != nil {
		r.tracker.Track(ctx, audit.EventScreeningCompleted, audit.Event{
			Decision:  summary.Verdict(),
			Source:    "screening",
			Reason:    summary.String(),
			RequestID: run.ID.String(),
			ActorID:   requestcontext.Caller(ctx),
		})
	}
	return run, nil
}

func (r *Runner) verifyCase(ctx context.Context, runID uuid.UUID, i int, c Case) Outcome {
	ctx = requestcontext.WithRequestID(ctx, runID.String()+"/"+strconv.Itoa(i+1))
	start := time.Now()
	result, err := r.verifier.Verify(ctx, c.Target, c.Candidate)
	o := Outcome{Index: i + 1, Case: c, Result: result, Elapsed: time.Since(start), Err: err}
	if err != nil {
		r.logger.WarnContext(ctx, "screening case failed", "case", i+1, "error", err)
		return o
	}
	o.Correct = result.Match != nil && *result.Match == c.Expected
	return o
}
