package query

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vegasq/qoq/relation"
)

func TestExecute_SelectStar(t *testing.T) {
	result := runQuery(t, "SELECT * FROM users")

	wantCols := []string{"id", "name", "age", "city"}
	if !reflect.DeepEqual(result.ColumnNames(), wantCols) {
		t.Errorf("columns = %v, want %v", result.ColumnNames(), wantCols)
	}
	if result.Len() != 4 {
		t.Fatalf("rows = %d, want 4", result.Len())
	}
	if result.Column(2).Type != relation.TypeInteger {
		t.Errorf("age type = %v, want INTEGER", result.Column(2).Type)
	}
}

func TestExecute_Filter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []any
	}{
		{"greater than", "SELECT name FROM users WHERE age > 26", []any{"Alice", "Charlie"}},
		{"case-insensitive equality", "SELECT name FROM users WHERE city = 'nyc'", []any{"Alice", "Charlie"}},
		{"not equal", "SELECT name FROM users WHERE city <> 'NYC'", []any{"bob", "Dave"}},
		{"or with is null", "SELECT name FROM users WHERE age > 26 OR age IS NULL", []any{"Alice", "Charlie", "Dave"}},
		{"is not null", "SELECT name FROM users WHERE age IS NOT NULL AND age < 30", []any{"bob"}},
		{"between", "SELECT name FROM users WHERE age BETWEEN 25 AND 30", []any{"Alice", "bob"}},
		{"not between", "SELECT name FROM users WHERE age NOT BETWEEN 25 AND 30", []any{"Charlie"}},
		{"in list", "SELECT name FROM users WHERE id IN (1, 3)", []any{"Alice", "Charlie"}},
		{"not in list", "SELECT name FROM users WHERE id NOT IN (1, 3)", []any{"bob", "Dave"}},
		{"like prefix", "SELECT name FROM users WHERE name LIKE 'a%'", []any{"Alice"}},
		{"like single char", "SELECT name FROM users WHERE name LIKE '_ob'", []any{"bob"}},
		{"not like", "SELECT name FROM users WHERE name NOT LIKE '%e'", []any{"bob"}},
		{"like set", "SELECT name FROM users WHERE name LIKE '[ab]%'", []any{"Alice", "bob"}},
		{"not", "SELECT name FROM users WHERE NOT (city = 'NYC')", []any{"bob", "Dave"}},
		{"arithmetic", "SELECT name FROM users WHERE age * 2 = 60", []any{"Alice"}},
		{"null equals null", "SELECT name FROM users WHERE age = NULL", []any{"Dave"}},
		{"function", "SELECT name FROM users WHERE UPPER(city) = 'SF'", []any{"Dave"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runQuery(t, tt.query)
			assertColumn(t, result, "name", tt.want...)
		})
	}
}

func TestExecute_ColumnNames(t *testing.T) {
	result := runQuery(t, "SELECT name, age + 1, city AS town, name FROM users")

	want := []string{"name", "column_1", "town"}
	if !reflect.DeepEqual(result.ColumnNames(), want) {
		t.Errorf("columns = %v, want %v", result.ColumnNames(), want)
	}
	if result.Column(1).Type != relation.TypeDouble {
		t.Errorf("age + 1 type = %v, want DOUBLE", result.Column(1).Type)
	}
}

func TestExecute_QualifiedStar(t *testing.T) {
	result := runQuery(t, "SELECT o.*, u.name FROM users u JOIN orders o ON u.id = o.user_id")

	want := []string{"order_id", "user_id", "amount", "name"}
	if !reflect.DeepEqual(result.ColumnNames(), want) {
		t.Errorf("columns = %v, want %v", result.ColumnNames(), want)
	}
	if result.Len() != 3 {
		t.Errorf("rows = %d, want 3", result.Len())
	}
}

func TestExecute_NoTable(t *testing.T) {
	result := runQuery(t, "SELECT 1 + 2 AS x, 'a' || 'b' AS y, 7 / 2 AS z")

	if result.Len() != 1 {
		t.Fatalf("rows = %d, want 1", result.Len())
	}
	assertColumn(t, result, "x", 3.0)
	assertColumn(t, result, "y", "ab")
	assertColumn(t, result, "z", 3.5)
}

func TestExecute_Case(t *testing.T) {
	result := runQuery(t, "SELECT CASE WHEN age >= 30 THEN 'senior' ELSE 'junior' END AS band FROM users")
	assertColumn(t, result, "band", "senior", "junior", "senior", "junior")

	result = runQuery(t, "SELECT CASE city WHEN 'NYC' THEN 1 WHEN 'LA' THEN 2 END AS code FROM users")
	assertColumn(t, result, "code", 1.0, 2.0, 1.0, nil)
}

func TestExecute_Params(t *testing.T) {
	result := runQuery(t, "SELECT name FROM users WHERE age > ? AND city = ?", 26, "NYC")
	assertColumn(t, result, "name", "Alice", "Charlie")

	err := queryError(t, "SELECT name FROM users WHERE age > ?")
	if !errors.Is(err, ErrParameter) {
		t.Errorf("error = %v, want ErrParameter", err)
	}
}

func TestExecute_Distinct(t *testing.T) {
	result := runQuery(t, "SELECT DISTINCT city FROM users")
	assertColumn(t, result, "city", "NYC", "LA", "SF")
}

func TestExecute_Limit(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		maxRows int
		want    []any
	}{
		{"limit", "SELECT name FROM users LIMIT 2", 0, []any{"Alice", "bob"}},
		{"top", "SELECT TOP 1 name FROM users", 0, []any{"Alice"}},
		{"limit zero", "SELECT name FROM users LIMIT 0", 0, []any{}},
		{"order by then limit", "SELECT name FROM users ORDER BY name DESC LIMIT 2", 0, []any{"Dave", "Charlie"}},
		{"max rows wins", "SELECT name FROM users ORDER BY name LIMIT 3", 1, []any{"Alice"}},
		{"max rows without limit", "SELECT name FROM users", 2, []any{"Alice", "bob"}},
		{"limit after where", "SELECT name FROM users WHERE city = 'NYC' LIMIT 1", 0, []any{"Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			result, err := NewEngine().ExecuteStatement(context.Background(), newTestCatalog(t), stmt, nil, WithMaxRows(tt.maxRows))
			if err != nil {
				t.Fatalf("ExecuteStatement() error = %v", err)
			}
			assertColumn(t, result, "name", tt.want...)
		})
	}
}

func TestExecute_EarlyLimitStopsGeneration(t *testing.T) {
	var calls atomic.Int64
	engine := NewEngine(WithBatchSize(1), WithParallelThreshold(-1))
	engine.Functions().RegisterFunc("TICK", 1, relation.TypeInteger, func(args []any) (any, error) {
		calls.Add(1)
		return args[0], nil
	})

	result, err := engine.Query(context.Background(), newTestCatalog(t), "SELECT name FROM users WHERE TICK(id) > 0 LIMIT 1")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertColumn(t, result, "name", "Alice")
	if calls.Load() != 1 {
		t.Errorf("TICK calls = %d, want 1", calls.Load())
	}
}

func TestExecute_SubqueryComputedOnce(t *testing.T) {
	var calls atomic.Int64
	engine := NewEngine()
	engine.Functions().RegisterFunc("TICK", 1, relation.TypeInteger, func(args []any) (any, error) {
		calls.Add(1)
		return args[0], nil
	})

	result, err := engine.Query(context.Background(), newTestCatalog(t),
		"SELECT name FROM users WHERE id IN (SELECT TICK(user_id) FROM orders)")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertColumn(t, result, "name", "Alice", "bob")
	// one call per order row, not per (user, order) pair
	if calls.Load() != 4 {
		t.Errorf("TICK calls = %d, want 4", calls.Load())
	}
}

func TestExecute_Subqueries(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []any
	}{
		{"in subquery", "SELECT name FROM users WHERE id IN (SELECT user_id FROM orders)", []any{"Alice", "bob"}},
		{"not in subquery", "SELECT name FROM users WHERE id NOT IN (SELECT user_id FROM orders)", []any{"Charlie", "Dave"}},
		{"exists", "SELECT name FROM users WHERE EXISTS (SELECT 1 FROM orders WHERE amount > 15)", []any{"Alice", "bob", "Charlie", "Dave"}},
		{"not exists", "SELECT name FROM users WHERE NOT EXISTS (SELECT 1 FROM orders WHERE amount > 100)", []any{"Alice", "bob", "Charlie", "Dave"}},
		{"scalar", "SELECT name FROM users WHERE age = (SELECT MAX(age) FROM users)", []any{"Charlie"}},
		{"derived table", "SELECT t.name FROM (SELECT name, age FROM users WHERE age > 26) t ORDER BY t.name DESC", []any{"Charlie", "Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runQuery(t, tt.query)
			assertColumn(t, result, "name", tt.want...)
		})
	}
}

func TestExecute_ScalarSubqueryTooManyRows(t *testing.T) {
	err := queryError(t, "SELECT name FROM users WHERE age = (SELECT age FROM users)")
	if !errors.Is(err, ErrEvaluation) {
		t.Errorf("error = %v, want ErrEvaluation", err)
	}
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  error
	}{
		{"unbound table", "SELECT * FROM missing", ErrUnboundTable},
		{"not a relation", "SELECT * FROM scalar", ErrNotARelation},
		{"unknown column", "SELECT nope FROM users", ErrUnknownColumn},
		{"unknown column in where", "SELECT name FROM users WHERE nope = 1", ErrUnknownColumn},
		{"unknown qualifier", "SELECT x.name FROM users", ErrUnknownColumn},
		{"star scope", "SELECT x.* FROM users", ErrStarScope},
		{"unknown function", "SELECT NOPE(name) FROM users", ErrUnknownFunction},
		{"wrong arity", "SELECT UPPER(name, city) FROM users", ErrEvaluation},
		{"order by ordinal", "SELECT name FROM users ORDER BY 3", ErrOrderByOrdinal},
		{"order by in union", "SELECT name FROM users UNION SELECT name FROM users ORDER BY age", ErrOrderByUnion},
		{"order by in distinct", "SELECT DISTINCT city FROM users ORDER BY age", ErrOrderByDistinct},
		{"union shape", "SELECT id, name FROM users UNION SELECT id FROM users", ErrUnionShape},
		{"non boolean where", "SELECT name FROM users WHERE name", ErrEvaluation},
		{"aggregate in where", "SELECT name FROM users WHERE COUNT(*) > 1", ErrEvaluation},
		{"bad escape", "SELECT name FROM users WHERE name LIKE 'a%' ESCAPE 'ab'", ErrPattern},
		{"division by zero", "SELECT age / 0 FROM users", ErrEvaluation},
		{"syntax", "SELECT FROM users", ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newTestCatalog(t)
			catalog.Register("scalar", 42)
			_, err := NewEngine().Query(context.Background(), catalog, tt.query)
			if err == nil {
				t.Fatalf("Query(%q) expected error", tt.query)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Query() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExecute_NotARelationNamesType(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("scalar", 42)
	_, err := NewEngine().Query(context.Background(), catalog, "SELECT * FROM scalar")

	var qerr *Error
	if !errors.As(err, &qerr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if qerr.Subject != "scalar" {
		t.Errorf("subject = %q, want scalar", qerr.Subject)
	}
	if !strings.Contains(qerr.Message, "int") {
		t.Errorf("message = %q, want it to name the bound type", qerr.Message)
	}
}

func TestExecute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Query(ctx, newTestCatalog(t), "SELECT * FROM users")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Query() error = %v, want context.Canceled", err)
	}
}

func TestExecute_DoesNotMutateInput(t *testing.T) {
	catalog := newTestCatalog(t)
	users, _ := catalog.Relation("users")
	before := users.Clone()

	_, err := NewEngine().Query(context.Background(), catalog,
		"SELECT name FROM users ORDER BY age DESC, name")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !reflect.DeepEqual(users.Records(), before.Records()) {
		t.Error("input relation was modified")
	}
	if !reflect.DeepEqual(users.ColumnNames(), before.ColumnNames()) {
		t.Error("input relation columns were modified")
	}
}

func TestExecute_ParallelMatchesSerial(t *testing.T) {
	catalog := newTestCatalog(t)
	wide := relation.New(relation.Column{Name: "n", Type: relation.TypeBigint})
	for i := range 300 {
		if err := wide.AddRow(int64(i)); err != nil {
			t.Fatalf("AddRow() error = %v", err)
		}
	}
	catalog.Register("numbers", wide)

	query := "SELECT a.n AS x, b.n AS y, a.n * b.n AS product FROM numbers a CROSS JOIN numbers b WHERE (a.n + b.n) % 7 = 0"
	serial, err := NewEngine(WithParallelThreshold(-1)).Query(context.Background(), catalog, query)
	if err != nil {
		t.Fatalf("serial Query() error = %v", err)
	}
	parallel, err := NewEngine(WithParallelThreshold(0), WithWorkers(4), WithBatchSize(100)).Query(context.Background(), catalog, query)
	if err != nil {
		t.Fatalf("parallel Query() error = %v", err)
	}

	if serial.Len() == 0 {
		t.Fatal("serial result is empty")
	}
	if serial.Len() != parallel.Len() {
		t.Fatalf("parallel rows = %d, serial rows = %d", parallel.Len(), serial.Len())
	}
	for i := 0; i < serial.Len(); i++ {
		if !reflect.DeepEqual(serial.Row(i), parallel.Row(i)) {
			t.Fatalf("row %d: parallel %v, serial %v", i, parallel.Row(i), serial.Row(i))
		}
	}
}

func TestExecute_CustomFunctions(t *testing.T) {
	engine := NewEngine()
	engine.Functions().RegisterFunc("DOUBLE_IT", 1, relation.TypeBigint, func(args []any) (any, error) {
		n, err := toInt64(args[0])
		if err != nil {
			return nil, err
		}
		return n * 2, nil
	})
	engine.Functions().RegisterAggregateFunc("PRODUCT", 1, relation.TypeDouble, func(columns [][]any) (any, error) {
		p := 1.0
		for _, v := range columns[0] {
			f, err := toNumber(v)
			if err != nil {
				return nil, err
			}
			p *= f
		}
		return p, nil
	})

	result, err := engine.Query(context.Background(), newTestCatalog(t), "SELECT double_it(id) AS d FROM users WHERE id < 3")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertColumn(t, result, "d", int64(2), int64(4))

	result, err = engine.Query(context.Background(), newTestCatalog(t), "SELECT PRODUCT(amount) AS p FROM orders WHERE user_id = 1")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertColumn(t, result, "p", 210.0)

	if !engine.Functions().Unregister("double_it") {
		t.Error("Unregister() = false, want true")
	}
	if _, err := engine.Query(context.Background(), newTestCatalog(t), "SELECT DOUBLE_IT(id) FROM users"); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Query() after Unregister error = %v, want ErrUnknownFunction", err)
	}
}

func TestDefaultEngine(t *testing.T) {
	if DefaultEngine() != DefaultEngine() {
		t.Error("DefaultEngine() returned different engines")
	}
}
