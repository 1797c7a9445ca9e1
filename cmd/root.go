package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zinc-sig/tally/cmd/config"
	"github.com/zinc-sig/tally/cmd/helpers"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	globalFlags config.GlobalFlags
	log         = newLogger()
)

// newLogger writes diagnostics to stderr so stdout stays free for the
// operator output and the JSON summary.
func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Run unit test scripts and record the results in a shared daily workbook",
	Long: `Tally runs a fixed list of test scripts against a unit, then appends one row
with the outcome to that day's spreadsheet ledger. Passing and failing runs
land in separate column blocks of the unit's sheet.

Several stations may share one ledger directory; writes are serialised with
lock files next to the workbook.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return helpers.SetLogLevel(log, globalFlags.LogLevel)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tally %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func init() {
	helpers.SetupGlobalFlags(rootCmd, &globalFlags)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(versionCmd)
}
