// Package config loads the tally JSON configuration and its overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/zinc-sig/tally/internal/ledger"
	"github.com/zinc-sig/tally/internal/retry"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "TALLY"

// Defaults.
const (
	DefaultPath          = "data.json"
	DefaultInterpreter   = "tclsh"
	DefaultUnitTagPrefix = "ULTTAG: "
	DefaultStartColumn   = "A"
	DefaultMapWait       = 2 * time.Minute
	DefaultLockWait      = 5 * time.Minute
)

// Config holds the parsed configuration.
type Config struct {
	LedgerDir       string        `mapstructure:"excel_path"`
	Unit            string        `mapstructure:"unit"`        // sheet name; the unit tag when empty
	UnitScript      string        `mapstructure:"script_name"` // prints the unit tag
	UnitTagPrefix   string        `mapstructure:"unit_tag_prefix"`
	Tests           []string      `mapstructure:"tests"`
	Interpreter     string        `mapstructure:"interpreter"`
	InterpreterArgs []string      `mapstructure:"interpreter_args"`
	TestTimeout     time.Duration `mapstructure:"test_timeout"`
	StartColumn     string        `mapstructure:"start_column"`
	Fields          FieldsConfig  `mapstructure:"fields"`
	MapWait         WaitConfig    `mapstructure:"map_wait"`
	LockWait        WaitConfig    `mapstructure:"lock_wait"`
	Upload          UploadConfig  `mapstructure:"upload"`
	Webhook         WebhookConfig `mapstructure:"webhook"`
}

// FieldsConfig overrides the labels of the fixed result columns.
type FieldsConfig struct {
	Number   string `mapstructure:"number"`
	Origin   string `mapstructure:"origin"`
	Unit     string `mapstructure:"unit"`
	Status   string `mapstructure:"status"`
	Duration string `mapstructure:"duration"`
}

// WaitConfig bounds a polling wait.
type WaitConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// UploadConfig selects an archive provider for the workbook.
type UploadConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

// WebhookConfig configures the result notification.
type WebhookConfig struct {
	URL        string        `mapstructure:"url"`
	Method     string        `mapstructure:"method"`
	AuthType   string        `mapstructure:"auth_type"`
	AuthToken  string        `mapstructure:"auth_token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    *int          `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// Load builds the configuration from TALLY_* environment variables, the JSON
// file at path and key=value overrides, in increasing precedence. A missing
// file is only an error when path was given explicitly.
func Load(path string, overrides []string) (*Config, error) {
	filePath := path
	if filePath == "" {
		filePath = DefaultPath
		if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
			filePath = ""
		}
	}

	settings, err := Build(EnvPrefix, filePath, overrides)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(settings)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode converts merged settings into a Config and applies defaults.
func Decode(settings map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interpreter == "" {
		c.Interpreter = DefaultInterpreter
	}
	if c.UnitTagPrefix == "" {
		c.UnitTagPrefix = DefaultUnitTagPrefix
	}
	if c.StartColumn == "" {
		c.StartColumn = DefaultStartColumn
	}
	if c.MapWait.Timeout == 0 {
		c.MapWait.Timeout = DefaultMapWait
	}
	if c.LockWait.Timeout == 0 {
		c.LockWait.Timeout = DefaultLockWait
	}
}

// Validate reports settings the run cannot do without.
func (c *Config) Validate() error {
	var errs []error
	if c.LedgerDir == "" {
		errs = append(errs, errors.New("excel_path is required"))
	}
	if len(c.Tests) == 0 {
		errs = append(errs, errors.New("tests must list at least one test"))
	}
	seen := make(map[string]bool, len(c.Tests))
	for _, test := range c.Tests {
		if test == "" {
			errs = append(errs, errors.New("tests contains an empty name"))
			continue
		}
		if seen[test] {
			errs = append(errs, fmt.Errorf("test %q is listed twice", test))
		}
		seen[test] = true
	}
	if c.Unit == "" && c.UnitScript == "" {
		errs = append(errs, errors.New("either unit or script_name is required"))
	}
	if c.TestTimeout < 0 {
		errs = append(errs, errors.New("test_timeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LedgerFields returns the fixed field labels with defaults applied.
func (c *Config) LedgerFields() ledger.Fields {
	return ledger.Fields{
		Number:   c.Fields.Number,
		Origin:   c.Fields.Origin,
		Unit:     c.Fields.Unit,
		Status:   c.Fields.Status,
		Duration: c.Fields.Duration,
	}.WithDefaults()
}

// Policy converts a wait setting into a retry policy.
func (w WaitConfig) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	p.Timeout = w.Timeout
	if w.InitialDelay > 0 {
		p.InitialDelay = w.InitialDelay
	}
	if w.MaxDelay > 0 {
		p.MaxDelay = w.MaxDelay
	}
	return p
}
