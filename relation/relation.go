// Package relation provides the in-memory table container the query engine
// reads from and writes to.
//
// A Relation is an ordered list of typed columns plus an ordered list of rows.
// Every row holds exactly one cell per column, in column order. Column names
// keep their declared spelling but are looked up case-insensitively.
package relation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrRowWidth is returned when a row does not match the column count
	ErrRowWidth = errors.New("row width does not match column count")

	// ErrDuplicateColumn is returned when a column name is already present
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrUnknownColumn is returned when a column name cannot be found
	ErrUnknownColumn = errors.New("unknown column")
)

// Column describes one named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Relation is a table of typed columns and rows.
type Relation struct {
	columns []Column
	index   map[string]int
	rows    [][]any
}

// New creates an empty relation with the given columns.
// Later duplicates of a column name are ignored.
func New(columns ...Column) *Relation {
	r := &Relation{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		_ = r.AddColumn(c)
	}
	return r
}

func foldName(name string) string {
	return strings.ToLower(name)
}

// Columns returns a copy of the column list.
func (r *Relation) Columns() []Column {
	return slices.Clone(r.columns)
}

// Width returns the number of columns.
func (r *Relation) Width() int {
	return len(r.columns)
}

// Column returns the column at position i.
func (r *Relation) Column(i int) Column {
	return r.columns[i]
}

// ColumnNames returns the column names in order.
func (r *Relation) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (r *Relation) ColumnIndex(name string) int {
	if i, ok := r.index[foldName(name)]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (r *Relation) Len() int {
	return len(r.rows)
}

// Row returns the row at 0-based position i. The slice must not be modified.
func (r *Relation) Row(i int) []any {
	return r.rows[i]
}

// Cell returns the value at (column, row), both 0-based.
func (r *Relation) Cell(column, row int) any {
	return r.rows[row][column]
}

// Value returns the value of the named column in the given row.
func (r *Relation) Value(name string, row int) (any, error) {
	col := r.ColumnIndex(name)
	if col < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if row < 0 || row >= len(r.rows) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, len(r.rows))
	}
	return r.rows[row][col], nil
}

// AddRow appends a row. The number of values must equal the column count.
func (r *Relation) AddRow(values ...any) error {
	if len(values) != len(r.columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(values), len(r.columns))
	}
	r.rows = append(r.rows, values)
	return nil
}

// AddColumn appends a column. Existing rows receive a nil cell.
func (r *Relation) AddColumn(c Column) error {
	key := foldName(c.Name)
	if _, ok := r.index[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
	}
	r.index[key] = len(r.columns)
	r.columns = append(r.columns, c)
	for i := range r.rows {
		r.rows[i] = append(r.rows[i], nil)
	}
	return nil
}

// DeleteColumn removes the named column and its cells.
func (r *Relation) DeleteColumn(name string) error {
	col := r.ColumnIndex(name)
	if col < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	r.columns = slices.Delete(r.columns, col, col+1)
	for i := range r.rows {
		r.rows[i] = slices.Delete(r.rows[i], col, col+1)
	}
	r.reindex()
	return nil
}

func (r *Relation) reindex() {
	clear(r.index)
	for i, c := range r.columns {
		r.index[foldName(c.Name)] = i
	}
}

// DeleteRow removes the row at 0-based position i.
func (r *Relation) DeleteRow(i int) {
	r.rows = slices.Delete(r.rows, i, i+1)
}

// Truncate keeps at most n rows.
func (r *Relation) Truncate(n int) {
	if n >= 0 && n < len(r.rows) {
		clear(r.rows[n:])
		r.rows = r.rows[:n]
	}
}

// SortStable sorts rows with cmp, keeping equal rows in their current order.
func (r *Relation) SortStable(cmp func(a, b []any) int) {
	slices.SortStableFunc(r.rows, cmp)
}

// Clone returns a copy that shares no row storage with r.
func (r *Relation) Clone() *Relation {
	out := New(r.columns...)
	out.rows = make([][]any, len(r.rows))
	for i, row := range r.rows {
		out.rows[i] = slices.Clone(row)
	}
	return out
}

// Records returns each row as a column-name keyed map.
func (r *Relation) Records() []map[string]any {
	records := make([]map[string]any, len(r.rows))
	for i, row := range r.rows {
		rec := make(map[string]any, len(r.columns))
		for c, col := range r.columns {
			rec[col.Name] = row[c]
		}
		records[i] = rec
	}
	return records
}

// FromRecords builds a relation from column-name keyed maps. Column types
// are inferred from the first non-nil value of each column.
func FromRecords(columns []string, records []map[string]any) (*Relation, error) {
	cols := make([]Column, len(columns))
	for i, name := range columns {
		cols[i] = Column{Name: name, Type: TypeNull}
		for _, rec := range records {
			if v := rec[name]; v != nil {
				cols[i].Type = TypeOf(v)
				break
			}
		}
	}
	r := New(cols...)
	if r.Width() != len(columns) {
		return nil, fmt.Errorf("%w in %v", ErrDuplicateColumn, columns)
	}
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, name := range columns {
			row[i] = rec[name]
		}
		if err := r.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return r, nil
}
