package reader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

// ReadQuery runs a query on db and materializes its result set
func ReadQuery(ctx context.Context, db *sql.DB, q string, args ...any) (*relation.Relation, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return FromRows(rows)
}

// ReadTable copies a whole table from db
func ReadTable(ctx context.Context, db *sql.DB, table string) (*relation.Relation, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	return ReadQuery(ctx, db, "SELECT * FROM "+quoted)
}

// FromRows drains rows into a relation. Column types come from the driver's
// database type names; columns the driver leaves untyped are typed from
// their first non-null value.
func FromRows(rows *sql.Rows) (*relation.Relation, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	cols := make([]relation.Column, len(colTypes))
	declared := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		t, ok := sqlColumnType(ct.DatabaseTypeName())
		cols[i] = relation.Column{Name: ct.Name(), Type: t}
		declared[i] = ok
	}

	var data [][]any
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		data = append(data, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	for i := range cols {
		if declared[i] {
			continue
		}
		for _, row := range data {
			if row[i] != nil {
				cols[i].Type = relation.TypeOf(row[i])
				break
			}
		}
	}

	rel := relation.New(cols...)
	if rel.Width() != len(cols) {
		return nil, relation.ErrDuplicateColumn
	}
	for r, row := range data {
		for i, v := range row {
			if b, ok := v.([]byte); ok && cols[i].Type != relation.TypeBinary {
				v = string(b)
			}
			cast, err := query.CastValue(v, cols[i].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, cols[i].Name, err)
			}
			row[i] = cast
		}
		if err := rel.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

// sqlColumnType maps a database type name such as "VARCHAR(20)" or
// "UNSIGNED BIG INT". database/sql drivers hand back int64 for every
// integer width, so integers map to BIGINT.
func sqlColumnType(name string) (relation.ColumnType, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if name == "" {
		return relation.TypeNull, false
	}
	switch {
	case strings.Contains(name, "INT"):
		return relation.TypeBigint, true
	case strings.Contains(name, "CHAR"), strings.Contains(name, "CLOB"), strings.Contains(name, "TEXT"):
		return relation.TypeVarchar, true
	case strings.Contains(name, "BLOB"):
		return relation.TypeBinary, true
	}
	t, err := relation.ParseColumnType(name)
	if err != nil {
		return relation.TypeNull, false
	}
	return t, true
}
