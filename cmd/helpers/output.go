package helpers

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/zinc-sig/tally/internal/ledger"
	"github.com/zinc-sig/tally/internal/output"
	"github.com/zinc-sig/tally/internal/runner"
	"github.com/zinc-sig/tally/internal/webhook"
)

// CreateSummary builds the run summary from the record and the suite results
func CreateSummary(rec *ledger.Record, result *runner.SuiteResult) *output.Summary {
	summary := &output.Summary{
		Unit:      rec.Unit,
		Hostname:  rec.Origin,
		Status:    string(rec.Status),
		Runtime:   ledger.FormatDuration(rec.Duration),
		RuntimeMS: rec.Duration.Milliseconds(),
		Tests:     make([]output.TestResult, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		summary.Tests = append(summary.Tests, output.TestResult{
			Name:          res.Script,
			Status:        runner.Verdict(res.Passed),
			Process:       string(res.Status),
			ExitCode:      res.ExitCode,
			ExecutionTime: res.ExecutionTime.Milliseconds(),
		})
	}

	return summary
}

// SendWebhook posts the summary when a client is configured and records the
// outcome on the summary. A failed delivery never fails the run.
func SendWebhook(ctx context.Context, client *webhook.Client, summary *output.Summary, log logrus.FieldLogger) {
	if client == nil {
		return
	}

	if err := client.Send(ctx, summary.ForWebhook()); err != nil {
		log.WithError(err).Warn("Failed to send webhook")
		summary.WebhookSent = false
		summary.WebhookError = err.Error()
		return
	}
	summary.WebhookSent = true
}

// OutputJSON writes the summary as JSON
func OutputJSON(w io.Writer, summary *output.Summary) error {
	return output.Write(w, summary)
}
