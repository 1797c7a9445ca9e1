package helpers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/zinc-sig/tally/cmd/config"
	settings "github.com/zinc-sig/tally/internal/config"
	"github.com/zinc-sig/tally/internal/ledger"
	"github.com/zinc-sig/tally/internal/runner"
)

// LoadSettings loads the configuration named by the global flags
func LoadSettings(flags *config.GlobalFlags) (*settings.Config, error) {
	cfg, err := settings.Load(flags.ConfigFile, flags.Set)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// SetLogLevel applies a log level name to log
func SetLogLevel(log *logrus.Logger, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}

// NewSuite returns the test suite described by cfg
func NewSuite(cfg *settings.Config, printer *runner.Printer) *runner.Suite {
	return &runner.Suite{
		Interpreter: cfg.Interpreter,
		Args:        cfg.InterpreterArgs,
		Timeout:     cfg.TestTimeout,
		Printer:     printer,
	}
}

// ResolveUnit returns the unit tag recorded with the run: the output of the
// unit tag script when one is configured, the configured unit otherwise.
func ResolveUnit(ctx context.Context, cfg *settings.Config) (string, error) {
	if cfg.UnitScript == "" {
		return cfg.Unit, nil
	}
	return runner.UnitTag(ctx, &runner.Config{
		Interpreter: cfg.Interpreter,
		Args:        cfg.InterpreterArgs,
		Script:      cfg.UnitScript,
		Timeout:     cfg.TestTimeout,
	}, cfg.UnitTagPrefix)
}

// SheetName picks the sheet to record into
func SheetName(flagSheet string, cfg *settings.Config, unitTag string) string {
	switch {
	case flagSheet != "":
		return flagSheet
	case cfg.Unit != "":
		return cfg.Unit
	default:
		return unitTag
	}
}

// Hostname returns the machine name recorded as the run origin
func Hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}

// NewRecord converts suite verdicts into a ledger record
func NewRecord(origin, unit string, result *runner.SuiteResult) *ledger.Record {
	tests := make(map[string]ledger.Status, len(result.Results))
	for name, passed := range result.Verdicts() {
		if passed {
			tests[name] = ledger.StatusPass
		} else {
			tests[name] = ledger.StatusFail
		}
	}
	return ledger.NewRecord(origin, unit, tests, result.Duration)
}

// NewLedger returns the ledger described by cfg
func NewLedger(cfg *settings.Config, log logrus.FieldLogger) (*ledger.Ledger, error) {
	return ledger.New(ledger.Options{
		Dir:         cfg.LedgerDir,
		StartColumn: cfg.StartColumn,
		Fields:      cfg.LedgerFields(),
		Tests:       cfg.Tests,
		MapWait:     cfg.MapWait.Policy(),
		LockWait:    cfg.LockWait.Policy(),
		Log:         log,
	})
}

// WaitForEnter prompts on w and blocks until a line (or EOF) is read from r
func WaitForEnter(r io.Reader, w io.Writer) {
	fmt.Fprintln(w, "Press enter to exit")
	_, _ = bufio.NewReader(r).ReadString('\n')
}
