package ledger

import (
	"fmt"
	"time"
)

// Status is the outcome of a single test or of a whole run.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Block is one half of the sheet layout.
type Block string

const (
	BlockPass Block = "pass"
	BlockFail Block = "fail"
)

// BlockFor returns the block a record with the given overall status is written to.
func BlockFor(s Status) Block {
	if s == StatusPass {
		return BlockPass
	}
	return BlockFail
}

// Record is one test-run outcome. Sequence is assigned by the ledger at commit
// time from the row the record lands in.
type Record struct {
	Sequence int
	Origin   string
	Unit     string
	Status   Status
	Duration time.Duration
	Tests    map[string]Status
}

// NewRecord builds a record and derives its overall status: pass iff no test failed.
func NewRecord(origin, unit string, tests map[string]Status, duration time.Duration) *Record {
	r := &Record{
		Origin:   origin,
		Unit:     unit,
		Duration: duration,
		Tests:    tests,
	}
	r.Status = overallStatus(tests)
	return r
}

func overallStatus(tests map[string]Status) Status {
	for _, s := range tests {
		if s != StatusPass {
			return StatusFail
		}
	}
	return StatusPass
}

// Validate checks that the record carries exactly the configured tests and
// that its overall status agrees with them.
func (r *Record) Validate(tests []string) error {
	if len(r.Tests) != len(tests) {
		return fmt.Errorf("%w: has %d test results, %d tests configured", ErrInvalidRecord, len(r.Tests), len(tests))
	}
	for _, name := range tests {
		s, ok := r.Tests[name]
		if !ok {
			return fmt.Errorf("%w: missing result for test %q", ErrInvalidRecord, name)
		}
		if s != StatusPass && s != StatusFail {
			return fmt.Errorf("%w: test %q has status %q", ErrInvalidRecord, name, s)
		}
	}
	if want := overallStatus(r.Tests); r.Status != want {
		return fmt.Errorf("%w: overall status %q, tests say %q", ErrInvalidRecord, r.Status, want)
	}
	return nil
}

// FormatDuration renders a run duration the way it is stored in the ledger.
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// Fields holds the column labels of the fixed result fields.
type Fields struct {
	Number   string
	Origin   string
	Unit     string
	Status   string
	Duration string
}

// DefaultFields returns the standard labels.
func DefaultFields() Fields {
	return Fields{
		Number:   "number",
		Origin:   "hostname",
		Unit:     "ULT Tag",
		Status:   "pass",
		Duration: "runtime",
	}
}

// WithDefaults fills empty labels from DefaultFields.
func (f Fields) WithDefaults() Fields {
	d := DefaultFields()
	if f.Number == "" {
		f.Number = d.Number
	}
	if f.Origin == "" {
		f.Origin = d.Origin
	}
	if f.Unit == "" {
		f.Unit = d.Unit
	}
	if f.Status == "" {
		f.Status = d.Status
	}
	if f.Duration == "" {
		f.Duration = d.Duration
	}
	return f
}

// Ordered returns the labels in column order.
func (f Fields) Ordered() []string {
	return []string{f.Number, f.Origin, f.Unit, f.Status, f.Duration}
}

// values renders a record as label -> cell value for every fixed field and test.
func (f Fields) values(r *Record) map[string]any {
	v := make(map[string]any, 5+len(r.Tests))
	v[f.Number] = r.Sequence
	v[f.Origin] = r.Origin
	v[f.Unit] = r.Unit
	v[f.Status] = string(r.Status)
	v[f.Duration] = FormatDuration(r.Duration)
	for name, s := range r.Tests {
		v[name] = string(s)
	}
	return v
}
