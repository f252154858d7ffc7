package query

import (
	"errors"
	"testing"
)

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		column string
		want   []any
	}{
		{
			name:   "ascending puts nulls first",
			query:  "SELECT name, age FROM users ORDER BY age",
			column: "name",
			want:   []any{"Dave", "bob", "Alice", "Charlie"},
		},
		{
			name:   "descending puts nulls last",
			query:  "SELECT name, age FROM users ORDER BY age DESC",
			column: "name",
			want:   []any{"Charlie", "Alice", "bob", "Dave"},
		},
		{
			name:   "strings ignore case",
			query:  "SELECT name FROM users ORDER BY name",
			column: "name",
			want:   []any{"Alice", "bob", "Charlie", "Dave"},
		},
		{
			name:   "multiple keys",
			query:  "SELECT name, city FROM users ORDER BY city, name DESC",
			column: "name",
			want:   []any{"bob", "Charlie", "Alice", "Dave"},
		},
		{
			name:   "stable for equal keys",
			query:  "SELECT name, city FROM users ORDER BY city",
			column: "name",
			want:   []any{"bob", "Alice", "Charlie", "Dave"},
		},
		{
			name:   "ordinal",
			query:  "SELECT id, name FROM users ORDER BY 2 DESC",
			column: "id",
			want:   []any{int32(4), int32(3), int32(2), int32(1)},
		},
		{
			name:   "alias",
			query:  "SELECT name AS who, age FROM users ORDER BY who",
			column: "who",
			want:   []any{"Alice", "bob", "Charlie", "Dave"},
		},
		{
			name:   "underlying column of an alias",
			query:  "SELECT name AS who FROM users ORDER BY name DESC",
			column: "who",
			want:   []any{"Dave", "Charlie", "bob", "Alice"},
		},
		{
			name:   "qualified column",
			query:  "SELECT u.name FROM users u ORDER BY u.id DESC",
			column: "name",
			want:   []any{"Dave", "Charlie", "bob", "Alice"},
		},
		{
			name:   "column outside the select list",
			query:  "SELECT name FROM users ORDER BY age DESC",
			column: "name",
			want:   []any{"Charlie", "Alice", "bob", "Dave"},
		},
		{
			name:   "expression outside the select list",
			query:  "SELECT name FROM users ORDER BY LENGTH(name), name",
			column: "name",
			want:   []any{"bob", "Dave", "Alice", "Charlie"},
		},
		{
			name:   "expression matching a select column",
			query:  "SELECT UPPER(name) FROM users ORDER BY upper(NAME) DESC",
			column: "column_0",
			want:   []any{"DAVE", "CHARLIE", "BOB", "ALICE"},
		},
		{
			name:   "ordered after TOP",
			query:  "SELECT TOP 2 name FROM users ORDER BY name DESC",
			column: "name",
			want:   []any{"bob", "Alice"},
		},
		{
			name:   "statement LIMIT after ordering",
			query:  "SELECT name FROM users ORDER BY name DESC LIMIT 2",
			column: "name",
			want:   []any{"Dave", "Charlie"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runQuery(t, tt.query)
			assertColumn(t, result, tt.column, tt.want...)
		})
	}
}

func TestOrderBy_HiddenColumnsDropped(t *testing.T) {
	result := runQuery(t, "SELECT name FROM users ORDER BY age DESC, LENGTH(city)")
	if result.Width() != 1 {
		t.Fatalf("columns = %v, want [name]", result.ColumnNames())
	}
	if result.ColumnIndex("__order_by_column_1") >= 0 {
		t.Errorf("hidden order column leaked into result")
	}
}

func TestOrderBy_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  error
	}{
		{"ordinal too large", "SELECT id, name FROM users ORDER BY 3", ErrOrderByOrdinal},
		{"ordinal zero", "SELECT id FROM users ORDER BY 0", ErrOrderByOrdinal},
		{"expression with DISTINCT", "SELECT DISTINCT city FROM users ORDER BY LENGTH(city)", ErrOrderByDistinct},
		{"hidden column with DISTINCT", "SELECT DISTINCT city FROM users ORDER BY id", ErrOrderByDistinct},
		{"unknown column", "SELECT name FROM users ORDER BY nope", ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := queryError(t, tt.query)
			if !errors.Is(err, tt.want) {
				t.Errorf("Query() error = %v, want %v", err, tt.want)
			}
		})
	}
}
