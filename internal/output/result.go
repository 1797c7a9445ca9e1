// Package output holds the machine readable summary of a run.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zinc-sig/tally/internal/ledger"
)

// TestResult is the outcome of one test script.
type TestResult struct {
	Name          string `json:"name"`
	Status        string `json:"status"`  // pass or fail
	Process       string `json:"process"` // success, failed or timeout
	ExitCode      int    `json:"exit_code"`
	ExecutionTime int64  `json:"execution_time"` // in milliseconds
}

// Summary describes a run and where it was recorded.
type Summary struct {
	Unit      string         `json:"unit"`
	Hostname  string         `json:"hostname"`
	Status    string         `json:"status"`
	Runtime   string         `json:"runtime"`
	RuntimeMS int64          `json:"runtime_ms"`
	Tests     []TestResult   `json:"tests"`
	Ledger    *ledger.Commit `json:"ledger,omitempty"`
	DryRun    bool           `json:"dry_run,omitempty"`
	Archived  []string       `json:"archived,omitempty"`
	UploadErr string         `json:"upload_error,omitempty"`

	// Webhook status (only in local output, not sent to webhook)
	WebhookSent  bool   `json:"webhook_sent,omitempty"`
	WebhookError string `json:"webhook_error,omitempty"`
}

// Write encodes s as indented JSON.
func Write(w io.Writer, s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// ForWebhook returns a copy of s without the local-only fields.
func (s *Summary) ForWebhook() *Summary {
	c := *s
	c.WebhookSent = false
	c.WebhookError = ""
	return &c
}
