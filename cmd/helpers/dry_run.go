package helpers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	settings "github.com/zinc-sig/tally/internal/config"
	"github.com/zinc-sig/tally/internal/ledger"
)

// PrintRunPlan prints where a run would be recorded
func PrintRunPlan(w io.Writer, cfg *settings.Config, sheet string, now time.Time, dryRun bool) {
	header := "Tally Run Details"
	if dryRun {
		header = "Tally Run Details (DRY RUN)"
	}

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Workbook:    %s\n", ledger.WorkbookPath(cfg.LedgerDir, now))
	fmt.Fprintf(w, "Sheet:       %s\n", sheet)
	fmt.Fprintf(w, "Map file:    %s\n", filepath.Base(ledger.MapPath(cfg.LedgerDir, sheet)))
	fmt.Fprintf(w, "Interpreter: %s\n", strings.Join(append([]string{cfg.Interpreter}, cfg.InterpreterArgs...), " "))
	fmt.Fprintf(w, "Tests:       %s\n", strings.Join(cfg.Tests, ", "))
	if cfg.TestTimeout > 0 {
		fmt.Fprintf(w, "Timeout:     %s\n", cfg.TestTimeout)
	}
	fmt.Fprintln(w, "----------------------------------------")
}
