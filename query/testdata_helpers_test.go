package query

import (
	"context"
	"reflect"
	"testing"

	"github.com/vegasq/qoq/relation"
)

// newUsersTable returns a small users relation:
//
//	id | name    | age | city
//	 1 | Alice   |  30 | NYC
//	 2 | bob     |  25 | LA
//	 3 | Charlie |  35 | NYC
//	 4 | Dave    | nil | SF
func newUsersTable(t *testing.T) *relation.Relation {
	t.Helper()
	return buildTable(t,
		[]relation.Column{
			{Name: "id", Type: relation.TypeInteger},
			{Name: "name", Type: relation.TypeVarchar},
			{Name: "age", Type: relation.TypeInteger},
			{Name: "city", Type: relation.TypeVarchar},
		},
		[]any{int32(1), "Alice", int32(30), "NYC"},
		[]any{int32(2), "bob", int32(25), "LA"},
		[]any{int32(3), "Charlie", int32(35), "NYC"},
		[]any{int32(4), "Dave", nil, "SF"},
	)
}

// newOrdersTable returns orders keyed by user_id. User 3 has no orders and
// order 104 belongs to an unknown user.
//
//	order_id | user_id | amount
//	     101 |       1 |   10.5
//	     102 |       1 |   20
//	     103 |       2 |   5
//	     104 |       9 |   7
func newOrdersTable(t *testing.T) *relation.Relation {
	t.Helper()
	return buildTable(t,
		[]relation.Column{
			{Name: "order_id", Type: relation.TypeInteger},
			{Name: "user_id", Type: relation.TypeInteger},
			{Name: "amount", Type: relation.TypeDouble},
		},
		[]any{int32(101), int32(1), 10.5},
		[]any{int32(102), int32(1), 20.0},
		[]any{int32(103), int32(2), 5.0},
		[]any{int32(104), int32(9), 7.0},
	)
}

func buildTable(t *testing.T, columns []relation.Column, rows ...[]any) *relation.Relation {
	t.Helper()
	rel := relation.New(columns...)
	for _, row := range rows {
		if err := rel.AddRow(row...); err != nil {
			t.Fatalf("AddRow() error = %v", err)
		}
	}
	return rel
}

// newTestCatalog binds users and orders
func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog := NewCatalog()
	catalog.Register("users", newUsersTable(t))
	catalog.Register("orders", newOrdersTable(t))
	return catalog
}

// runQuery executes sql against the test catalog and fails the test on error
func runQuery(t *testing.T, sql string, params ...any) *relation.Relation {
	t.Helper()
	result, err := NewEngine().Query(context.Background(), newTestCatalog(t), sql, params...)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", sql, err)
	}
	return result
}

// queryError executes sql and returns the error it fails with
func queryError(t *testing.T, sql string, params ...any) error {
	t.Helper()
	_, err := NewEngine().Query(context.Background(), newTestCatalog(t), sql, params...)
	if err == nil {
		t.Fatalf("Query(%q) expected error, got nil", sql)
	}
	return err
}

// column returns every value of the named column
func column(t *testing.T, rel *relation.Relation, name string) []any {
	t.Helper()
	idx := rel.ColumnIndex(name)
	if idx < 0 {
		t.Fatalf("column %q not in result %v", name, rel.ColumnNames())
	}
	values := make([]any, rel.Len())
	for i := range values {
		values[i] = rel.Cell(idx, i)
	}
	return values
}

// assertColumn checks the named column holds exactly want, in order
func assertColumn(t *testing.T, rel *relation.Relation, name string, want ...any) {
	t.Helper()
	got := column(t, rel, name)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("column %s = %v, want %v", name, got, want)
	}
}
