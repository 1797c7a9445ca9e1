// Package ledger appends test-run records to a daily spreadsheet workbook.
//
// Each sheet holds one unit's runs. Its column layout is allocated once, when
// the sheet is created, and persisted next to the workbook as a side map file
// so later runs address the same cells without reading the header back. Every
// commit happens inside an exclusive file lock covering the workbook and the
// map, so processes on different machines can share one ledger directory.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/zinc-sig/tally/internal/retry"
)

// WorkbookLayout is the time layout of a workbook file name (dd-mm-yy).
const WorkbookLayout = "02-01-06"

// WorkbookPath returns the workbook for the UTC calendar day of t.
func WorkbookPath(dir string, t time.Time) string {
	return filepath.Join(dir, t.UTC().Format(WorkbookLayout)+".xlsx")
}

// Options configures a Ledger.
type Options struct {
	Dir         string
	StartColumn string
	Fields      Fields
	Tests       []string
	MapWait     retry.Policy
	LockWait    retry.Policy
	Now         func() time.Time
	Log         logrus.FieldLogger
}

// Ledger commits records into the workbook of the current day.
type Ledger struct {
	dir         string
	startColumn string
	fields      Fields
	tests       []string
	labels      []string
	mapWait     retry.Policy
	lockWait    retry.Policy
	now         func() time.Time
	log         logrus.FieldLogger
}

// Commit describes where a record was written.
type Commit struct {
	Workbook string `json:"workbook"`
	Sheet    string `json:"sheet"`
	MapFile  string `json:"map_file"`
	Row      int    `json:"row"`
	Sequence int    `json:"sequence"`
	Block    Block  `json:"block"`
	Created  bool   `json:"created"` // sheet was allocated by this commit
}

// New validates the layout and returns a Ledger.
func New(opts Options) (*Ledger, error) {
	if opts.Dir == "" {
		return nil, errors.New("ledger: directory is required")
	}
	if len(opts.Tests) == 0 {
		return nil, errors.New("ledger: at least one test is required")
	}

	fields := opts.Fields.WithDefaults()
	labels, err := Labels(fields.Ordered(), opts.Tests)
	if err != nil {
		return nil, err
	}
	// Fail at construction rather than on the first new sheet.
	if _, err := Allocate(opts.StartColumn, fields.Ordered(), opts.Tests); err != nil {
		return nil, err
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	return &Ledger{
		dir:         opts.Dir,
		startColumn: opts.StartColumn,
		fields:      fields,
		tests:       append([]string(nil), opts.Tests...),
		labels:      labels,
		mapWait:     opts.MapWait,
		lockWait:    opts.LockWait,
		now:         opts.Now,
		log:         opts.Log.WithField("component", "ledger"),
	}, nil
}

// Commit writes rec into the next free row of sheet in today's workbook and
// sets rec.Sequence. The workbook, sheet and map file are created when missing.
//
// A sheet that exists without its map file is waited on with the locks
// released, then committed once more; a map still missing then fails with
// ErrMissingMap.
func (l *Ledger) Commit(ctx context.Context, sheet string, rec *Record) (*Commit, error) {
	if sheet == "" {
		return nil, errors.New("ledger: sheet name is required")
	}
	if err := rec.Validate(l.tests); err != nil {
		return nil, err
	}

	book := WorkbookPath(l.dir, l.now())
	mapPath := MapPath(l.dir, sheet)
	log := l.log.WithFields(logrus.Fields{
		"workbook": filepath.Base(book),
		"sheet":    sheet,
	})

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	c, err := l.commit(ctx, book, mapPath, sheet, rec, log)
	if !errors.Is(err, ErrMissingMap) {
		return c, err
	}

	log.WithField("map", filepath.Base(mapPath)).Warn("Waiting for map file")
	if _, err := WaitMap(ctx, mapPath, l.mapWait); err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrMissingMap, err)
		}
		return nil, err
	}
	return l.commit(ctx, book, mapPath, sheet, rec, log)
}

// commit runs one locked read-find-write-save pass.
func (l *Ledger) commit(ctx context.Context, book, mapPath, sheet string, rec *Record, log logrus.FieldLogger) (*Commit, error) {
	locks, err := acquireLocks(ctx, l.lockWait, log, book, mapPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = locks.release() }()

	f, created, err := openWorkbook(book)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, allocated, err := l.prepareSheet(f, created, sheet, mapPath)
	if err != nil {
		return nil, err
	}
	if allocated {
		log.Info("Allocated new sheet")
	}

	row, err := FindWriteRow(f, sheet, m.Pass[l.fields.Status].Location, m.Fail[l.fields.Status].Location)
	if err != nil {
		return nil, err
	}

	rec.Sequence = SequenceFor(row)
	block := BlockFor(rec.Status)
	values := l.fields.values(rec)

	w, err := NewWriter(f, sheet)
	if err != nil {
		return nil, err
	}
	if err := w.Write(m, block, row, l.labels, values); err != nil {
		return nil, err
	}

	if err := saveWorkbook(f, book); err != nil {
		return nil, err
	}
	if err := SaveMap(mapPath, m); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"row":    row,
		"number": rec.Sequence,
		"block":  block,
	}).Info("Recorded test run")

	return &Commit{
		Workbook: book,
		Sheet:    sheet,
		MapFile:  mapPath,
		Row:      row,
		Sequence: rec.Sequence,
		Block:    block,
		Created:  allocated,
	}, nil
}

// prepareSheet returns the map for sheet, allocating the sheet first when the
// workbook does not have it yet.
func (l *Ledger) prepareSheet(f *excelize.File, newBook bool, sheet, mapPath string) (*Map, bool, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, false, fmt.Errorf("looking up sheet %q: %w", sheet, err)
	}

	if idx >= 0 && !newBook {
		m, err := ReadMap(mapPath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: %s", ErrMissingMap, mapPath)
		}
		if err != nil {
			return nil, false, err
		}
		if err := m.Validate(l.labels); err != nil {
			return nil, false, fmt.Errorf("map file %s: %w", mapPath, err)
		}
		return m, false, nil
	}

	layout, err := Allocate(l.startColumn, l.fields.Ordered(), l.tests)
	if err != nil {
		return nil, false, err
	}

	if newBook {
		// A new file starts with one default sheet; it becomes ours.
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return nil, false, fmt.Errorf("naming sheet %q: %w", sheet, err)
		}
	} else {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, false, fmt.Errorf("creating sheet %q: %w", sheet, err)
		}
	}

	if err := WriteHeader(f, sheet, layout); err != nil {
		return nil, false, err
	}
	if err := SaveMap(mapPath, layout.Map); err != nil {
		return nil, false, err
	}
	return layout.Map, true, nil
}

// openWorkbook opens path, or starts a new workbook when it does not exist.
func openWorkbook(path string) (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("failed to open workbook %s: %w", path, err)
}

// saveWorkbook writes f to a temp file next to path and renames it into place,
// so a crash never leaves a truncated workbook behind.
func saveWorkbook(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp workbook: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace workbook %s: %w", path, err)
	}
	return nil
}
