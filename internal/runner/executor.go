package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Status is how the process ended, independent of the test verdict.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// PassLine is the output line that marks a test as passed.
const PassLine = "pass"

// Config describes one script invocation: Interpreter Args... Script.
type Config struct {
	Interpreter string
	Args        []string
	Script      string
	Dir         string
	Timeout     time.Duration
}

// Result is the outcome of one script invocation.
type Result struct {
	Script        string
	Lines         []string // stdout, in order
	Stderr        []string
	ExitCode      int
	Status        Status
	ExecutionTime time.Duration
	Passed        bool
}

// argv returns the interpreter arguments followed by the script, if any.
func (c *Config) argv() []string {
	args := append([]string(nil), c.Args...)
	if c.Script != "" {
		args = append(args, c.Script)
	}
	return args
}

// Execute runs the script and waits for it. A process that cannot be started
// is an error; a non-zero exit or a timeout is reported in the Result.
func Execute(ctx context.Context, config *Config) (*Result, error) {
	if config.Interpreter == "" {
		return nil, errors.New("no interpreter configured")
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, config.Interpreter, config.argv()...)
	cmd.Dir = config.Dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	err := cmd.Run()
	executionTime := time.Since(startTime)

	result := &Result{
		Script:        config.Script,
		Lines:         splitLines(stdout.String()),
		Stderr:        splitLines(stderr.String()),
		Status:        StatusSuccess,
		ExecutionTime: executionTime,
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			result.Status = StatusTimeout
			result.ExitCode = -1
		case errors.As(err, &exitErr):
			result.Status = StatusFailed
			result.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("failed to start command: %w", err)
		}
	}

	result.Passed = result.Status != StatusTimeout && Classify(result.Lines)
	return result, nil
}

// Classify reports whether any output line is exactly PassLine. The exit code
// plays no part, matching how the test scripts report.
func Classify(lines []string) bool {
	for _, line := range lines {
		if line == PassLine {
			return true
		}
	}
	return false
}

// splitLines splits output on newlines, dropping carriage returns and a
// trailing empty line.
func splitLines(out string) []string {
	out = strings.ReplaceAll(out, "\r", "")
	out = strings.TrimSuffix(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// UnitTag runs the unit tag script and returns its output joined into one
// line with prefix removed.
func UnitTag(ctx context.Context, config *Config, prefix string) (string, error) {
	result, err := Execute(ctx, config)
	if err != nil {
		return "", fmt.Errorf("reading unit tag: %w", err)
	}
	if result.Status == StatusTimeout {
		return "", fmt.Errorf("reading unit tag: %s timed out", config.Script)
	}

	tag := strings.Join(result.Lines, "")
	if prefix != "" {
		tag = strings.ReplaceAll(tag, prefix, "")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", fmt.Errorf("reading unit tag: %s printed no tag", config.Script)
	}
	return tag, nil
}
