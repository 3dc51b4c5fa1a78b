package screening

import (
	"fmt"
	"time"

	"nameguard/internal/verification"
	audit "nameguard/pkg/platform/audit"
)

// Tally counts correct answers out of a total.
type Tally struct {
	Correct int
	Total   int
}

// Accuracy is Correct/Total, or 0 for an empty tally.
func (t Tally) Accuracy() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total)
}

func (t *Tally) add(correct bool) {
	t.Total++
	if correct {
		t.Correct++
	}
}

// Summary aggregates a run.
type Summary struct {
	Total     int
	Correct   int
	Incorrect int
	// Errors counts cases whose verification failed outright.
	Errors int
	// ParseFailures counts verifier replies with no recoverable match.
	ParseFailures    int
	ExpectedMatch    Tally
	ExpectedNonMatch Tally
	BySource         map[verification.Source]Tally

	TotalElapsed time.Duration
	MeanCase     time.Duration
	MinCase      time.Duration
	MaxCase      time.Duration
}

// Summarize computes totals, per-class and per-source accuracy, and case
// timing for run.
func Summarize(run *Run) Summary {
	s := Summary{
		Total:        len(run.Outcomes),
		BySource:     map[verification.Source]Tally{},
		TotalElapsed: run.Elapsed,
	}
	var sum time.Duration
	for i, o := range run.Outcomes {
		if o.Correct {
			s.Correct++
		} else {
			s.Incorrect++
		}
		if o.Case.Expected {
			s.ExpectedMatch.add(o.Correct)
		} else {
			s.ExpectedNonMatch.add(o.Correct)
		}

		switch {
		case o.Err != nil:
			s.Errors++
		case o.Result != nil:
			t := s.BySource[o.Result.Source]
			t.add(o.Correct)
			s.BySource[o.Result.Source] = t
			if o.Result.Match == nil {
				s.ParseFailures++
			}
		}

		sum += o.Elapsed
		if i == 0 || o.Elapsed < s.MinCase {
			s.MinCase = o.Elapsed
		}
		if o.Elapsed > s.MaxCase {
			s.MaxCase = o.Elapsed
		}
	}
	if s.Total > 0 {
		s.MeanCase = sum / time.Duration(s.Total)
	}
	return s
}

// Accuracy is the overall fraction of correct cases.
func (s Summary) Accuracy() float64 {
	return Tally{Correct: s.Correct, Total: s.Total}.Accuracy()
}

// Passed reports whether every case was correct.
func (s Summary) Passed() bool {
	return s.Incorrect == 0
}

// Verdict labels the run for the ops audit trail.
func (s Summary) Verdict() string {
	if s.Passed() {
		return audit.DecisionMatch
	}
	return audit.DecisionNoMatch
}

func (s Summary) String() string {
	return fmt.Sprintf("correct=%d/%d errors=%d parse_failures=%d", s.Correct, s.Total, s.Errors, s.ParseFailures)
}
