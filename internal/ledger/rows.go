package ledger

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// FindWriteRow scans down from the first data row and returns the first row in
// which every given status column is empty.
func FindWriteRow(f *excelize.File, sheet string, columns ...string) (int, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("no status column to scan")
	}

	for row := FirstDataRow; row <= excelize.TotalRows; row++ {
		occupied, err := rowOccupied(f, sheet, row, columns)
		if err != nil {
			return 0, err
		}
		if !occupied {
			return row, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLedgerFull, sheet)
}

func rowOccupied(f *excelize.File, sheet string, row int, columns []string) (bool, error) {
	for _, col := range columns {
		cell, err := excelize.JoinCellName(col, row)
		if err != nil {
			return false, fmt.Errorf("invalid status column %q: %w", col, err)
		}
		value, err := f.GetCellValue(sheet, cell)
		if err != nil {
			return false, fmt.Errorf("reading %s!%s: %w", sheet, cell, err)
		}
		if value != "" {
			return true, nil
		}
	}
	return false, nil
}

// SequenceFor returns the record number of a data row; the first data row is 1.
func SequenceFor(row int) int {
	return row - HeaderRows
}
