package entities

import (
	"errors"
	"fmt"
)

// MinColumns is the narrowest usable table: the name column plus one drug column.
const MinColumns = 2

// ErrStructural marks table errors that abort a run before anything is written.
var ErrStructural = errors.New("structural error")

// RawTable is the in-memory form of a tabular source: a header row and data
// rows of string cells, all of the same width.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// NewRawTable validates the table shape. Rows are never padded or truncated.
func NewRawTable(headers []string, rows [][]string) (*RawTable, error) {
	if len(headers) < MinColumns {
		return nil, fmt.Errorf("%w: table has %d columns, need at least %d", ErrStructural, len(headers), MinColumns)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table has no data rows", ErrStructural)
	}
	for i, row := range rows {
		if len(row) != len(headers) {
			// Row numbers are 1-based and count the header as row 1, like a spreadsheet
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrStructural, i+2, len(row), len(headers))
		}
	}
	return &RawTable{Headers: headers, Rows: rows}, nil
}

// Cell returns the cell at (row, col) or "" when out of range.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}
