package runner

import (
	"context"
	"fmt"
	"time"
)

// Suite runs the configured test scripts one after another with the same
// interpreter settings.
type Suite struct {
	Interpreter string
	Args        []string
	Dir         string
	Timeout     time.Duration // per test; zero means none
	Printer     *Printer      // optional
}

// SuiteResult is the outcome of a full run.
type SuiteResult struct {
	Results  []*Result // in test order
	Duration time.Duration
}

// Passed reports whether every test passed.
func (r *SuiteResult) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return len(r.Results) > 0
}

// Verdicts maps each test script to its pass verdict.
func (r *SuiteResult) Verdicts() map[string]bool {
	out := make(map[string]bool, len(r.Results))
	for _, res := range r.Results {
		out[res.Script] = res.Passed
	}
	return out
}

// Config returns the invocation of one script.
func (s *Suite) Config(script string) *Config {
	return &Config{
		Interpreter: s.Interpreter,
		Args:        s.Args,
		Script:      script,
		Dir:         s.Dir,
		Timeout:     s.Timeout,
	}
}

// Run executes tests in order. A script that fails or times out is recorded
// as a failed test; only a script that cannot be started aborts the run.
func (s *Suite) Run(ctx context.Context, tests []string) (*SuiteResult, error) {
	result := &SuiteResult{Results: make([]*Result, 0, len(tests))}
	start := time.Now()

	for _, test := range tests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.Printer.TestStarted(test)
		res, err := Execute(ctx, s.Config(test))
		if err != nil {
			return nil, fmt.Errorf("running test %s: %w", test, err)
		}
		s.Printer.TestFinished(res)

		result.Results = append(result.Results, res)
	}

	result.Duration = time.Since(start)
	return result, nil
}
