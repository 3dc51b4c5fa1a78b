package screening

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameguard/internal/matching"
	"nameguard/internal/names/phonetic"
	"nameguard/internal/verification"
	"nameguard/internal/verifier"
	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/testutil"
)

var codes = phonetic.Table{
	"stephen": {"STFN", ""},
	"steven":  {"STFN", ""},
	"lee":     {"L", ""},
	"rashid":  {"RXT", ""},
	"rashidi": {"RXT", ""},
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newService(reply verifier.Func) *verification.Service {
	return verification.New(matching.NewCascade(matching.DefaultThreshold, codes), reply, verification.WithLogger(discard))
}

func loadTestdata(t *testing.T) []Case {
	t.Helper()
	f, err := os.Open("testdata/cases.yaml")
	require.NoError(t, err)
	defer f.Close()
	cases, err := LoadCases(f)
	require.NoError(t, err)
	return cases
}

type recordingTracker struct {
	mu     sync.Mutex
	events []audit.Event
	action []audit.AuditEvent
}

func (r *recordingTracker) Track(_ context.Context, action audit.AuditEvent, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.action = append(r.action, action)
	r.events = append(r.events, event)
}

func TestLoadCases(t *testing.T) {
	cases := loadTestdata(t)
	require.Len(t, cases, 5)
	assert.Equal(t, Case{Target: "John O'Brien", Candidate: "john obrien", Expected: true, Reason: "punctuation and case only"}, cases[0])

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", ``, "empty"},
		{"no cases", "cases: []\n", "no cases"},
		{"missing target", "cases:\n  - candidate: A\n    expected: true\n", "case 1: target is required"},
		{"missing expected", "cases:\n  - target: A\n    candidate: B\n", "case 1: expected is required"},
		{"unknown field", "cases:\n  - target: A\n    expected: true\n    weight: 2\n", "decode case file"},
		{"not yaml", "cases: [", "decode case file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCases(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRunner(t *testing.T) {
	testutil.Given(t, "the sample cases and a verifier that rejects every deferred pair", func(t *testing.T) {
		var calls atomic.Int32
		svc := newService(func(context.Context, verifier.Request) (string, error) {
			calls.Add(1)
			return `{"match": false, "confidence": 10, "explanation": "different person"}`, nil
		})
		tracker := &recordingTracker{}
		runner := NewRunner(svc, WithWorkers(3), WithLogger(discard), WithTracker(tracker))

		run, err := runner.Run(context.Background(), loadTestdata(t))
		require.NoError(t, err)

		testutil.Then(t, "outcomes keep case order and only the deferred pair reaches the verifier", func(t *testing.T) {
			require.Len(t, run.Outcomes, 5)
			for i, o := range run.Outcomes {
				assert.Equal(t, i+1, o.Index)
				assert.True(t, o.Correct, "case %d", o.Index)
			}
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, verification.SourceSemanticVerifier, run.Outcomes[4].Result.Source)
		})

		testutil.Then(t, "a screening_completed event is tracked", func(t *testing.T) {
			require.Len(t, tracker.events, 1)
			assert.Equal(t, audit.EventScreeningCompleted, tracker.action[0])
			assert.Equal(t, run.ID.String(), tracker.events[0].RequestID)
			assert.Equal(t, audit.DecisionMatch, tracker.events[0].Decision)
			assert.Equal(t, "screening", tracker.events[0].ActorID)
		})
	})
}

func TestRunner_FailedCasesAreIncorrect(t *testing.T) {
	svc := newService(func(context.Context, verifier.Request) (string, error) {
		return "", verifier.NewProviderError(verifier.ErrorProviderOutage, "test", "503", nil)
	})
	cases := []Case{
		{Target: "Robert", Candidate: "William", Expected: false},
		{Target: "Ali Hassan", Candidate: "Hassan Ali", Expected: false},
	}

	run, err := NewRunner(svc, WithLogger(discard)).Run(context.Background(), cases)
	require.NoError(t, err)
	assert.Error(t, run.Outcomes[0].Err)
	assert.False(t, run.Outcomes[0].Correct)
	assert.True(t, run.Outcomes[1].Correct)

	s := Summarize(run)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Incorrect)
	assert.False(t, s.Passed())
	assert.Equal(t, audit.DecisionNoMatch, s.Verdict())
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := newService(func(ctx context.Context, _ verifier.Request) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := NewRunner(svc, WithLogger(discard)).Run(ctx, []Case{
		{Target: "Robert", Candidate: "William"},
		{Target: "Robert", Candidate: "Bob"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func boolPtr(b bool) *bool { return &b }

func TestSummarize(t *testing.T) {
	run := &Run{
		Elapsed: 3 * time.Second,
		Outcomes: []Outcome{
			{Index: 1, Case: Case{Expected: true}, Correct: true, Elapsed: time.Second,
				Result: &verification.Result{Match: boolPtr(true), Source: verification.SourceHardRule}},
			{Index: 2, Case: Case{Expected: false}, Correct: false, Elapsed: 2 * time.Second,
				Result: &verification.Result{Source: verification.SourceSemanticVerifier}},
			{Index: 3, Case: Case{Expected: false}, Correct: true, Elapsed: 3 * time.Second,
				Result: &verification.Result{Match: boolPtr(false), Source: verification.SourceSemanticVerifier}},
			{Index: 4, Case: Case{Expected: true}, Elapsed: 500 * time.Millisecond, Err: errors.New("boom")},
		},
	}

	s := Summarize(run)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Correct)
	assert.Equal(t, 2, s.Incorrect)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.ParseFailures)
	assert.Equal(t, Tally{Correct: 1, Total: 2}, s.ExpectedMatch)
	assert.Equal(t, Tally{Correct: 1, Total: 2}, s.ExpectedNonMatch)
	assert.Equal(t, Tally{Correct: 1, Total: 1}, s.BySource[verification.SourceHardRule])
	assert.Equal(t, Tally{Correct: 1, Total: 2}, s.BySource[verification.SourceSemanticVerifier])
	assert.Equal(t, 500*time.Millisecond, s.MinCase)
	assert.Equal(t, 3*time.Second, s.MaxCase)
	assert.Equal(t, 1625*time.Millisecond, s.MeanCase)
	assert.InDelta(t, 0.5, s.Accuracy(), 1e-9)
	assert.Equal(t, "correct=2/4 errors=1 parse_failures=1", s.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(&Run{})
	assert.Zero(t, s.Accuracy())
	assert.True(t, s.Passed())
	assert.Zero(t, s.MeanCase)
}

func TestWriteReport(t *testing.T) {
	raw := strings.Repeat("x", maxRawReply+50)
	run := &Run{
		Elapsed: time.Second,
		Outcomes: []Outcome{
			{Index: 1, Case: Case{Target: "Ali Hassan", Candidate: "Hassan Ali"}, Correct: true,
				Result: &verification.Result{Match: boolPtr(false), Source: verification.SourceHardRule, Rule: matching.RuleTokenOrder}},
			{Index: 2, Case: Case{Target: "Rashid", Candidate: "Rashidi", Expected: false, Reason: "distinct surname"},
				Result: &verification.Result{Match: boolPtr(true), Source: verification.SourceSemanticVerifier, Explanation: "variant", Raw: raw}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, run, Summarize(run), ReportOptions{Verbose: true}))

	out := buf.String()
	assert.Contains(t, out, "Total Cases: 2")
	assert.Contains(t, out, "Correct: 1 (50.0%)")
	assert.Contains(t, out, "Hard Rule: 1/1 (100.0%)")
	assert.Contains(t, out, "Semantic Verifier: 0/1 (0.0%)")
	assert.Contains(t, out, "Expected Match Cases:\n  No cases")
	assert.Contains(t, out, "Case #2")
	assert.Contains(t, out, "Expected Reason: distinct surname")
	assert.Contains(t, out, strings.Repeat("x", maxRawReply)+"...")
	assert.NotContains(t, out, raw)
	assert.NotContains(t, out, "Case #1\n")
	assert.NotContains(t, out, "\x1b[", "colors disabled")
}

func TestWriteReport_Color(t *testing.T) {
	run := &Run{Outcomes: []Outcome{{Index: 1, Case: Case{Target: "A"}, Err: errors.New("boom")}}}
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, run, Summarize(run), ReportOptions{Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "Error: boom")
}
