package table

import (
	"errors"
	"testing"
)

func newTestTable() *Table {
	return New([]string{"x", "y"}, [][]float64{{1, 2}, {2, 4}})
}

func TestSetCell(t *testing.T) {
	tab := newTestTable()
	if err := tab.SetCell(0, 1, "3.5"); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	if got := tab.Rows()[0][1]; got != 3.5 {
		t.Errorf("cell = %v, want 3.5", got)
	}
}

func TestSetCellRejectsBadInput(t *testing.T) {
	tab := newTestTable()
	for _, input := range []string{"", "abc", "1.2.3", "NaN", "Inf", "-Inf"} {
		err := tab.SetCell(1, 0, input)
		var bad *InvalidCellInputError
		if !errors.As(err, &bad) {
			t.Errorf("SetCell(%q): want InvalidCellInputError, got %v", input, err)
		}
		if got := tab.Rows()[1][0]; got != 2 {
			t.Errorf("SetCell(%q): prior value not retained, got %v", input, got)
		}
	}
}

func TestRowLengthInvariant(t *testing.T) {
	tab := newTestTable()
	tab.AppendRow()
	_ = tab.SetCell(2, 0, "9")
	_ = tab.SetCell(0, 1, "not a number")
	for i, row := range tab.Rows() {
		if len(row) != tab.Columns() {
			t.Errorf("row %d length %d, want %d", i, len(row), tab.Columns())
		}
	}
}

func TestAppendRowZeroFilled(t *testing.T) {
	tab := newTestTable()
	tab.AppendRow()
	rows := tab.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for j, v := range rows[2] {
		if v != 0 {
			t.Errorf("new row cell %d = %v, want 0", j, v)
		}
	}
}

func TestRowsIsDefensiveCopy(t *testing.T) {
	tab := newTestTable()
	snapshot := tab.Rows()
	snapshot[0][0] = 99
	if got := tab.Rows()[0][0]; got != 1 {
		t.Errorf("external mutation leaked into table: %v", got)
	}
}
