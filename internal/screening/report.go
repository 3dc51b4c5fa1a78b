package screening

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"nameguard/internal/verification"
)

const rule = "================================================================================"

// maxRawReply bounds how much of a verifier reply an incorrect case prints.
const maxRawReply = 200

// ReportOptions controls report rendering.
type ReportOptions struct {
	// Color enables ANSI colors. Callers set it when writing to a terminal.
	Color bool
	// Verbose prints every case, not only incorrect ones.
	Verbose bool
}

type palette struct {
	ok, bad, warn, head *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		bad:  color.New(color.FgRed),
		warn: color.New(color.FgYellow),
		head: color.New(color.FgCyan, color.Bold),
	}
	for _, c := range []*color.Color{p.ok, p.bad, p.warn, p.head} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WriteReport renders the summary, timing, per-source accuracy and the
// details of every incorrect case.
func WriteReport(w io.Writer, run *Run, s Summary, opts ReportOptions) error {
	p := newPalette(opts.Color)
	b := &strings.Builder{}

	if opts.Verbose {
		for _, o := range run.Outcomes {
			writeCaseLine(b, p, o, s.Total)
		}
		b.WriteString("\n")
	}

	section(b, p, "Screening Summary")
	fmt.Fprintf(b, "Run: %s\n", run.ID)
	fmt.Fprintf(b, "Total Cases: %d\n", s.Total)
	p.ok.Fprintf(b, "Correct: %d (%s)\n", s.Correct, percent(s.Correct, s.Total))
	if s.Incorrect > 0 {
		p.bad.Fprintf(b, "Incorrect: %d (%s)\n", s.Incorrect, percent(s.Incorrect, s.Total))
	} else {
		fmt.Fprintf(b, "Incorrect: 0\n")
	}
	b.WriteString("\n")
	writeTally(b, "Expected Match Cases", s.ExpectedMatch)
	writeTally(b, "Expected Non-Match Cases", s.ExpectedNonMatch)

	section(b, p, "Accuracy by Decision Source")
	sources := make([]verification.Source, 0, len(s.BySource))
	for src := range s.BySource {
		sources = append(sources, src)
	}
	slices.Sort(sources)
	for _, src := range sources {
		t := s.BySource[src]
		fmt.Fprintf(b, "%s: %d/%d (%s)\n", sourceLabel(src), t.Correct, t.Total, percent(t.Correct, t.Total))
	}
	if s.Errors > 0 {
		p.bad.Fprintf(b, "Failed verifications: %d\n", s.Errors)
	}
	b.WriteString("\n")

	section(b, p, "Execution Time")
	fmt.Fprintf(b, "Total: %s\n", seconds(s.TotalElapsed))
	fmt.Fprintf(b, "Mean per case: %s\n", seconds(s.MeanCase))
	fmt.Fprintf(b, "Min per case: %s\n", seconds(s.MinCase))
	fmt.Fprintf(b, "Max per case: %s\n", seconds(s.MaxCase))
	b.WriteString("\n")

	if s.ParseFailures > 0 {
		p.warn.Fprintf(b, "Unreadable verifier replies: %d\n\n", s.ParseFailures)
	}

	var incorrect []Outcome
	for _, o := range run.Outcomes {
		if !o.Correct {
			incorrect = append(incorrect, o)
		}
	}
	if len(incorrect) > 0 {
		section(b, p, "Incorrect Cases")
		for _, o := range incorrect {
			writeIncorrect(b, o)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCaseLine(b *strings.Builder, p palette, o Outcome, total int) {
	mark := p.ok.Sprint("✓")
	if !o.Correct {
		mark = p.bad.Sprint("✗")
	}
	fmt.Fprintf(b, "[%d/%d] %s %q vs %q expected=%t", o.Index, total, mark, o.Case.Target, o.Case.Candidate, o.Case.Expected)
	switch {
	case o.Err != nil:
		fmt.Fprintf(b, " error=%v", o.Err)
	case o.Result != nil:
		fmt.Fprintf(b, " [%s] match=%s confidence=%s", sourceLabel(o.Result.Source), matchLabel(o.Result.Match), confidenceLabel(o.Result.Confidence))
	}
	fmt.Fprintf(b, " (%s)\n", seconds(o.Elapsed))
}

func writeIncorrect(b *strings.Builder, o Outcome) {
	fmt.Fprintf(b, "Case #%d\n", o.Index)
	fmt.Fprintf(b, "  Target: %s\n", o.Case.Target)
	fmt.Fprintf(b, "  Candidate: %s\n", o.Case.Candidate)
	fmt.Fprintf(b, "  Expected: %t\n", o.Case.Expected)
	if o.Case.Reason != "" {
		fmt.Fprintf(b, "  Expected Reason: %s\n", o.Case.Reason)
	}
	if o.Err != nil {
		fmt.Fprintf(b, "  Error: %v\n\n", o.Err)
		return
	}
	fmt.Fprintf(b, "  Actual: %s\n", matchLabel(o.Result.Match))
	fmt.Fprintf(b, "  Source: %s\n", sourceLabel(o.Result.Source))
	if o.Result.Rule != "" {
		fmt.Fprintf(b, "  Rule: %s\n", o.Result.Rule)
	}
	fmt.Fprintf(b, "  Explanation: %s\n", o.Result.Explanation)
	if o.Result.Raw != "" {
		raw := o.Result.Raw
		if r := []rune(raw); len(r) > maxRawReply {
			raw = string(r[:maxRawReply]) + "..."
		}
		fmt.Fprintf(b, "  Raw Reply: %s\n", raw)
	}
	b.WriteString("\n")
}

func writeTally(b *strings.Builder, title string, t Tally) {
	fmt.Fprintf(b, "%s:\n", title)
	if t.Total == 0 {
		b.WriteString("  No cases\n\n")
		return
	}
	fmt.Fprintf(b, "  Accuracy: %d/%d (%s)\n\n", t.Correct, t.Total, percent(t.Correct, t.Total))
}

func section(b *strings.Builder, p palette, title string) {
	p.head.Fprintln(b, rule)
	p.head.Fprintln(b, title)
	p.head.Fprintln(b, rule)
	b.WriteString("\n")
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func sourceLabel(s verification.Source) string {
	switch s {
	case verification.SourceHardRule:
		return "Hard Rule"
	case verification.SourceSemanticVerifier:
		return "Semantic Verifier"
	default:
		return string(s)
	}
}

func matchLabel(m *bool) string {
	if m == nil {
		return "unknown"
	}
	return fmt.Sprintf("%t", *m)
}

func confidenceLabel(c *int) string {
	if c == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *c)
}
