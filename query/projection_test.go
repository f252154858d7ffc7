package query

import (
	"testing"

	"github.com/vegasq/qoq/relation"
)

func TestProjection_ColumnTypes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []relation.ColumnType
	}{
		{"star keeps source types", "SELECT * FROM users", []relation.ColumnType{relation.TypeInteger, relation.TypeVarchar, relation.TypeInteger, relation.TypeVarchar}},
		{"literals", "SELECT 1, 'a', TRUE, NULL", []relation.ColumnType{relation.TypeDouble, relation.TypeVarchar, relation.TypeBoolean, relation.TypeNull}},
		{"integer arithmetic widens with doubles", "SELECT id + id, id * 2, id / id FROM users", []relation.ColumnType{relation.TypeInteger, relation.TypeDouble, relation.TypeDouble}},
		{"bigint wins over integer", "SELECT CAST(id AS BIGINT) + id FROM users", []relation.ColumnType{relation.TypeBigint}},
		{"string plus is concatenation", "SELECT name + 1, name || city FROM users", []relation.ColumnType{relation.TypeVarchar, relation.TypeVarchar}},
		{"predicates are boolean", "SELECT id > 1, name LIKE 'a%', age IS NULL, id IN (1, 2) FROM users", []relation.ColumnType{relation.TypeBoolean, relation.TypeBoolean, relation.TypeBoolean, relation.TypeBoolean}},
		{"functions", "SELECT UPPER(name), LENGTH(name), ROUND(age), ABS(age) FROM users", []relation.ColumnType{relation.TypeVarchar, relation.TypeInteger, relation.TypeDouble, relation.TypeInteger}},
		{"cast", "SELECT CAST(age AS VARCHAR), CAST(name AS DECIMAL) FROM users WHERE id = 0", []relation.ColumnType{relation.TypeVarchar, relation.TypeDecimal}},
		{"case skips NULL branches", "SELECT CASE WHEN id = 1 THEN NULL ELSE name END FROM users", []relation.ColumnType{relation.TypeVarchar}},
		{"aggregates", "SELECT COUNT(*), SUM(age), AVG(age), MAX(name), SUM(amount) FROM users, orders", []relation.ColumnType{relation.TypeBigint, relation.TypeBigint, relation.TypeDouble, relation.TypeVarchar, relation.TypeDouble}},
		{"scalar subquery takes the inner type", "SELECT (SELECT MAX(amount) FROM orders)", []relation.ColumnType{relation.TypeDouble}},
		{"parameter takes the bound value type", "SELECT ? AS p", []relation.ColumnType{relation.TypeVarchar}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runQuery(t, tt.query, "x")
			cols := result.Columns()
			if len(cols) != len(tt.want) {
				t.Fatalf("got %d columns, want %d", len(cols), len(tt.want))
			}
			for i, c := range cols {
				if c.Type != tt.want[i] {
					t.Errorf("column %d (%s) type = %v, want %v", i, c.Name, c.Type, tt.want[i])
				}
			}
		})
	}
}

func TestProjection_ColumnNames(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"plain and qualified columns", "SELECT name, u.city FROM users u", []string{"name", "city"}},
		{"aliases", "SELECT name AS who, age years FROM users", []string{"who", "years"}},
		{"expressions get positional names", "SELECT id + 1, name, UPPER(name) FROM users", []string{"column_0", "name", "column_2"}},
		{"star across a join", "SELECT * FROM users u JOIN orders o ON u.id = o.user_id", []string{"id", "name", "age", "city", "order_id", "user_id", "amount"}},
		{"qualified star", "SELECT o.* FROM users u JOIN orders o ON u.id = o.user_id", []string{"order_id", "user_id", "amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runQuery(t, tt.query).ColumnNames()
			if len(got) != len(tt.want) {
				t.Fatalf("columns = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("column %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestProjection_DuplicateNames(t *testing.T) {
	// an explicit duplicate is dropped; the first column keeps its values
	result := runQuery(t, "SELECT name, UPPER(name) AS NAME FROM users WHERE id < 3")
	if got := result.ColumnNames(); len(got) != 1 || got[0] != "name" {
		t.Fatalf("columns = %v, want [name]", got)
	}
	assertColumn(t, result, "name", "Alice", "bob")

	// a star-expanded duplicate replaces the earlier column in place
	result = runQuery(t, "SELECT * FROM users u JOIN users v ON v.id = u.id + 1")
	want := []string{"id", "name", "age", "city"}
	if got := result.ColumnNames(); len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	assertColumn(t, result, "name", "bob", "Charlie", "Dave")
	assertColumn(t, result, "id", int32(2), int32(3), int32(4))
}
