package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zinc-sig/tally/cmd/config"
	"github.com/zinc-sig/tally/cmd/helpers"
	"github.com/zinc-sig/tally/internal/runner"
)

var runFlags config.RunFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured tests and record the result",
	Long: `Run every configured test script in order, classify each one as pass or
fail, and append the run to the unit's sheet in today's workbook.

A test passes when one line of its output is exactly "pass".`,
	Example: `  tally run
  tally run --config station3.json --no-wait
  tally run --set unit=BENCH02 --set test_timeout=90s --json --no-wait
  tally run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runTally,
}

func runTally(cmd *cobra.Command, args []string) error {
	cfg, err := helpers.LoadSettings(&globalFlags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()

	// Keep stdout parseable when it carries the JSON summary.
	progress := stdout
	if runFlags.JSON {
		progress = cmd.ErrOrStderr()
	}
	printer := runner.NewPrinter(progress)

	archiver, err := helpers.SetupArchiver(cfg.Upload, log)
	if err != nil {
		return err
	}
	client, err := helpers.NewWebhookClient(cfg.Webhook, log)
	if err != nil {
		return err
	}

	// Fail on a bad layout before spending time on the tests.
	book, err := helpers.NewLedger(cfg, log)
	if err != nil {
		return err
	}

	unit, err := helpers.ResolveUnit(ctx, cfg)
	if err != nil {
		return err
	}
	sheet := helpers.SheetName(runFlags.Sheet, cfg, unit)

	if runFlags.DryRun || log.IsLevelEnabled(logrus.DebugLevel) {
		helpers.PrintRunPlan(progress, cfg, sheet, time.Now(), runFlags.DryRun)
	}

	result, err := helpers.NewSuite(cfg, printer).Run(ctx, cfg.Tests)
	if err != nil {
		return err
	}

	rec := helpers.NewRecord(helpers.Hostname(), unit, result)
	summary := helpers.CreateSummary(rec, result)

	if runFlags.DryRun {
		summary.DryRun = true
		printer.DryRun()
	} else {
		commit, err := book.Commit(ctx, sheet, rec)
		if err != nil {
			return fmt.Errorf("failed to record results: %w", err)
		}
		summary.Ledger = commit
		helpers.HandleUploads(ctx, archiver, commit, summary, log)
	}

	helpers.SendWebhook(ctx, client, summary, log)

	printer.Summary(unit, result)
	if runFlags.JSON {
		if err := helpers.OutputJSON(stdout, summary); err != nil {
			return err
		}
	}

	if !runFlags.NoWait {
		helpers.WaitForEnter(cmd.InOrStdin(), progress)
	}
	return nil
}

func init() {
	helpers.SetupRunFlags(runCmd, &runFlags)
}
