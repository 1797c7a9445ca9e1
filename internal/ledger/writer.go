package ledger

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var widthFactor = decimal.RequireFromString("1.2")

// columnWidth is the display width for a column whose longest value has n runes.
func columnWidth(n int) float64 {
	w := decimal.NewFromInt(int64(n)).Mul(widthFactor).Floor()
	if limit := decimal.NewFromInt(int64(excelize.MaxColumnWidth)); w.GreaterThan(limit) {
		w = limit
	}
	return w.InexactFloat64()
}

// Writer puts records into one sheet.
type Writer struct {
	f      *excelize.File
	sheet  string
	center int
}

// NewWriter creates a writer for sheet.
func NewWriter(f *excelize.File, sheet string) (*Writer, error) {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating cell style: %w", err)
	}
	return &Writer{f: f, sheet: sheet, center: style}, nil
}

// Write stores values into row using the addresses of block. Every label in
// order must have a value. Columns grow when a value is longer than anything
// written to them before, and the map entry records the new length.
func (w *Writer) Write(m *Map, block Block, row int, order []string, values map[string]any) error {
	entries := m.Block(block)
	for _, name := range order {
		entry, ok := entries[name]
		if !ok {
			return fmt.Errorf("%w: no %s column for %q", ErrLayoutMismatch, block, name)
		}
		value, ok := values[name]
		if !ok {
			return fmt.Errorf("%w: no value for %q", ErrInvalidRecord, name)
		}

		cell, err := excelize.JoinCellName(entry.Location, row)
		if err != nil {
			return fmt.Errorf("invalid location %q for %q: %w", entry.Location, name, err)
		}
		if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
			return fmt.Errorf("writing %s!%s: %w", w.sheet, cell, err)
		}

		if n := utf8.RuneCountInString(fmt.Sprint(value)); n > entry.LongestString {
			if err := w.f.SetColWidth(w.sheet, entry.Location, entry.Location, columnWidth(n)); err != nil {
				return fmt.Errorf("sizing column %s: %w", entry.Location, err)
			}
			entry.LongestString = n
		}

		if err := w.f.SetCellStyle(w.sheet, cell, cell, w.center); err != nil {
			return fmt.Errorf("styling %s!%s: %w", w.sheet, cell, err)
		}
	}
	return nil
}
