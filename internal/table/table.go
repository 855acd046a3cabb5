// Package table holds the user-editable observation table backing the
// calculator and the chart. Mutations are synchronous; the row-length
// invariant (every row as wide as the header list) holds after every write.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InvalidCellInputError reports a rejected cell write. The prior value is
// retained; surfacing the rejection is the caller's concern.
type InvalidCellInputError struct {
	Row, Col int
	Input    string
}

func (e *InvalidCellInputError) Error() string {
	return fmt.Sprintf("invalid cell input %q at [%d][%d]: not a finite number", e.Input, e.Row, e.Col)
}

// IsInvalidCellInput reports whether err is a rejected cell write.
func IsInvalidCellInput(err error) bool {
	var e *InvalidCellInputError
	return errors.As(err, &e)
}

// Table is the in-memory 2D numeric store for one open report.
type Table struct {
	headers []string
	rows    [][]float64
}

// New copies headers and rows so the table owns its data. Rows must already
// satisfy the row-length invariant (the validator guarantees this).
func New(headers []string, rows [][]float64) *Table {
	t := &Table{headers: append([]string(nil), headers...)}
	t.rows = make([][]float64, len(rows))
	for i, r := range rows {
		t.rows[i] = append([]float64(nil), r...)
	}
	return t
}

// Headers returns the column headers.
func (t *Table) Headers() []string { return t.headers }

// Columns returns the table width.
func (t *Table) Columns() int { return len(t.headers) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a defensive copy of the current data, one snapshot per call.
// The calculator and chart read through this; mutations are visible on the
// next read with no buffering in between.
func (t *Table) Rows() [][]float64 {
	out := make([][]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// SetCell parses rawText as a number and stores it. Malformed, NaN and Inf
// input is rejected with InvalidCellInputError and the prior value kept.
func (t *Table) SetCell(row, col int, rawText string) error {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.headers) {
		return fmt.Errorf("cell [%d][%d] out of range (%dx%d table)", row, col, len(t.rows), len(t.headers))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rawText), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidCellInputError{Row: row, Col: col, Input: rawText}
	}
	t.rows[row][col] = v
	return nil
}

// AppendRow appends a zero-filled row of header width.
func (t *Table) AppendRow() {
	t.rows = append(t.rows, make([]float64, len(t.headers)))
}
