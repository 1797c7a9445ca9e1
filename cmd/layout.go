package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zinc-sig/tally/cmd/helpers"
	"github.com/zinc-sig/tally/internal/ledger"
)

var layoutJSON bool

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the column layout a new sheet would get",
	Long: `Allocate the columns for the configured fields and tests and print them,
without touching the ledger directory. With --json the map file a new sheet
would be created with is printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := helpers.LoadSettings(&globalFlags)
		if err != nil {
			return err
		}

		layout, err := ledger.Allocate(cfg.StartColumn, cfg.LedgerFields().Ordered(), cfg.Tests)
		if err != nil {
			return err
		}

		if layoutJSON {
			data, err := json.MarshalIndent(layout.Map, "", "    ")
			if err != nil {
				return fmt.Errorf("failed to marshal layout: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}

		printLayout(cmd.OutOrStdout(), layout)
		return nil
	},
}

func printLayout(w io.Writer, layout *ledger.Layout) {
	for _, block := range []ledger.Block{ledger.BlockPass, ledger.BlockFail} {
		span := layout.Spans[block]
		entries := layout.Map.Block(block)

		fmt.Fprintf(w, "%s block %s..%s\n", block, span.First, span.Last)
		for _, label := range layout.Labels {
			fmt.Fprintf(w, "  %-4s %s\n", entries[label].Location, label)
		}
	}
}

func init() {
	layoutCmd.Flags().BoolVar(&layoutJSON, "json", false, "Print the map file instead of a table")
}
