package helpers

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zinc-sig/tally/cmd/config"
)

// SetupGlobalFlags adds the persistent flags to the root command
func SetupGlobalFlags(cmd *cobra.Command, flags *config.GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to the JSON config file (default data.json if present)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "info",
		"log level ("+strings.Join(logLevels(), ", ")+")")
	cmd.PersistentFlags().StringArrayVar(&flags.Set, "set", nil, "Override a setting as key=value (can be used multiple times)")
}

// SetupRunFlags adds run command flags
func SetupRunFlags(cmd *cobra.Command, flags *config.RunFlags) {
	cmd.Flags().BoolVar(&flags.NoWait, "no-wait", false, "Exit without waiting for enter")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the run summary as JSON on stdout")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Run the tests without recording the results")
	cmd.Flags().StringVar(&flags.Sheet, "sheet", "", "Sheet to record into (default: the configured unit)")
}

func logLevels() []string {
	levels := make([]string, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		levels = append(levels, level.String())
	}
	return levels
}
