package runner

import (
	"fmt"
	"io"
	"time"
)

const (
	banner = "========================================"
	rule   = "----------------------------------------"
)

// Printer writes the operator facing progress of a run. A nil Printer prints
// nothing.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Verdict renders a pass verdict the way the ledger stores it.
func Verdict(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}

// TestStarted announces a test.
func (p *Printer) TestStarted(test string) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "Running test %s\n", test)
}

// TestFinished echoes the captured output and the verdict of a test.
func (p *Printer) TestFinished(res *Result) {
	if p == nil {
		return
	}
	for _, line := range res.Lines {
		fmt.Fprintln(p.w, line)
	}
	for _, line := range res.Stderr {
		fmt.Fprintln(p.w, line)
	}
	if res.Status == StatusTimeout {
		fmt.Fprintf(p.w, "Test %s timed out after %s\n", res.Script, res.ExecutionTime.Round(time.Millisecond))
	}
	fmt.Fprintf(p.w, "End test %s, result: %s\n", res.Script, Verdict(res.Passed))
}

// Summary prints the per test verdicts and the unit verdict.
func (p *Printer) Summary(unit string, result *SuiteResult) {
	if p == nil {
		return
	}
	fmt.Fprintln(p.w, banner)
	fmt.Fprintln(p.w, "All tests are done!")
	fmt.Fprintln(p.w, rule)
	if unit != "" {
		fmt.Fprintf(p.w, "Unit:    %s\n", unit)
	}
	for _, res := range result.Results {
		fmt.Fprintf(p.w, "%s result: %s\n", res.Script, Verdict(res.Passed))
	}
	fmt.Fprintf(p.w, "Runtime: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "Unit is %s\n", Verdict(result.Passed()))
	fmt.Fprintln(p.w, banner)
}

// DryRun notes that the ledger was left untouched.
func (p *Printer) DryRun() {
	if p == nil {
		return
	}
	fmt.Fprintln(p.w, "[DRY RUN] Results were not recorded")
}
