package ledger

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Header rows occupied by the group label (row 1) and the column labels (row 2).
const (
	GroupRow     = 1
	LabelRow     = 2
	HeaderRows   = 2
	FirstDataRow = HeaderRows + 1
)

// Group header fills.
const (
	passFill = "#007F00"
	failFill = "#FF0000"
)

// Span is the first and last column letter of a block.
type Span struct {
	First string
	Last  string
}

// Layout is the result of an allocation: the map plus what is needed to draw
// the header rows.
type Layout struct {
	Map    *Map
	Labels []string // column order within each block
	Spans  map[Block]Span
}

// cursor walks columns left to right by number so that addresses past Z
// continue as AA, AB, ...
type cursor struct {
	col int
}

func newCursor(origin string) (*cursor, error) {
	if origin == "" {
		origin = "A"
	}
	col, err := excelize.ColumnNameToNumber(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid start column %q: %w", origin, err)
	}
	return &cursor{col: col}, nil
}

// next returns the address of the current column and advances.
func (c *cursor) next() (string, error) {
	name, err := ColumnName(c.col)
	if err != nil {
		return "", err
	}
	c.col++
	return name, nil
}

func (c *cursor) skip(n int) {
	c.col += n
}

// ColumnName converts a 1-based column number to its letter address.
func ColumnName(col int) (string, error) {
	if col > excelize.MaxColumns {
		return "", fmt.Errorf("%w: column %d exceeds %d", ErrColumnOverflow, col, excelize.MaxColumns)
	}
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrColumnOverflow, err)
	}
	return name, nil
}

// Labels returns the per-block column order: fields as given, then tests sorted.
func Labels(fields, tests []string) ([]string, error) {
	sorted := append([]string(nil), tests...)
	sort.Strings(sorted)

	labels := make([]string, 0, len(fields)+len(sorted))
	seen := make(map[string]struct{}, cap(labels))
	for _, name := range append(append([]string(nil), fields...), sorted...) {
		if name == "" {
			return nil, fmt.Errorf("%w: empty label", ErrDuplicateName)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
		labels = append(labels, name)
	}
	return labels, nil
}

// Allocate assigns columns for a pass block starting at origin, one blank
// separator column, then a fail block with the same ordering.
func Allocate(origin string, fields, tests []string) (*Layout, error) {
	labels, err := Labels(fields, tests)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.New("ledger: nothing to allocate")
	}

	cur, err := newCursor(origin)
	if err != nil {
		return nil, err
	}

	layout := &Layout{
		Map:    newMap(len(labels)),
		Labels: labels,
		Spans:  make(map[Block]Span, 2),
	}

	for i, block := range []Block{BlockPass, BlockFail} {
		if i > 0 {
			cur.skip(1)
		}
		entries := layout.Map.Block(block)
		var span Span
		for _, name := range labels {
			addr, err := cur.next()
			if err != nil {
				return nil, err
			}
			if span.First == "" {
				span.First = addr
			}
			span.Last = addr
			entries[name] = &Entry{Location: addr, LongestString: utf8.RuneCountInString(name)}
		}
		layout.Spans[block] = span
	}

	return layout, nil
}

// WriteHeader draws the merged PASS/FAIL group row and the label row for a
// freshly allocated sheet and sizes each column from its label.
func WriteHeader(f *excelize.File, sheet string, layout *Layout) error {
	center := &excelize.Alignment{Horizontal: "center"}
	labelStyle, err := f.NewStyle(&excelize.Style{Alignment: center})
	if err != nil {
		return fmt.Errorf("creating label style: %w", err)
	}

	groups := []struct {
		block Block
		title string
		fill  string
	}{
		{BlockPass, "PASS", passFill},
		{BlockFail, "FAIL", failFill},
	}

	for _, g := range groups {
		span := layout.Spans[g.block]
		first, err := excelize.JoinCellName(span.First, GroupRow)
		if err != nil {
			return err
		}
		last, err := excelize.JoinCellName(span.Last, GroupRow)
		if err != nil {
			return err
		}

		if first != last {
			if err := f.MergeCell(sheet, first, last); err != nil {
				return fmt.Errorf("merging %s header: %w", g.title, err)
			}
		}
		if err := f.SetCellStr(sheet, first, g.title); err != nil {
			return fmt.Errorf("writing %s header: %w", g.title, err)
		}
		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{g.fill}, Pattern: 1},
			Alignment: center,
		})
		if err != nil {
			return fmt.Errorf("creating %s style: %w", g.title, err)
		}
		if err := f.SetCellStyle(sheet, first, last, style); err != nil {
			return fmt.Errorf("styling %s header: %w", g.title, err)
		}

		entries := layout.Map.Block(g.block)
		for _, name := range layout.Labels {
			entry := entries[name]
			cell, err := excelize.JoinCellName(entry.Location, LabelRow)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, name); err != nil {
				return fmt.Errorf("writing label %q: %w", name, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, labelStyle); err != nil {
				return fmt.Errorf("styling label %q: %w", name, err)
			}
			if err := f.SetColWidth(sheet, entry.Location, entry.Location, columnWidth(entry.LongestString)); err != nil {
				return fmt.Errorf("sizing column %s: %w", entry.Location, err)
			}
		}
	}

	return nil
}
