package query

import (
	"errors"
	"testing"
)

// evalExpr evaluates expr once through a table-less select
func evalExpr(t *testing.T, expr string) (any, error) {
	t.Helper()
	result, err := NewEngine().Query(t.Context(), NewCatalog(), "SELECT "+expr+" AS v")
	if err != nil {
		return nil, err
	}
	return result.Cell(0, 0), nil
}

func TestEvaluate_Logic(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"TRUE AND TRUE", true},
		{"TRUE AND FALSE", false},
		{"NULL AND FALSE", false},
		{"FALSE AND NULL", false},
		{"NULL AND TRUE", nil},
		{"NULL OR TRUE", true},
		{"TRUE OR NULL", true},
		{"NULL OR FALSE", nil},
		{"NOT TRUE", false},
		{"NOT NULL", nil},
		{"FALSE AND 1", false},
		{"TRUE OR 'x'", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(t, tt.expr)
			if err != nil {
				t.Fatalf("evaluate(%s) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("evaluate(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Comparison(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"1 = 1.0", true},
		{"2 > 1", true},
		{"2 <= 1", false},
		{"'abc' = 'ABC'", true},
		{"'abc' < 'ABD'", true},
		{"'10' > 9", true},
		{"TRUE > FALSE", true},
		// NULL compares equal to NULL and below everything else
		{"NULL = NULL", true},
		{"1 = NULL", false},
		{"NULL < 1", true},
		{"NULL IS NULL", true},
		{"1 IS NOT NULL", true},
		{"NULL IS NOT NULL", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(t, tt.expr)
			if err != nil {
				t.Fatalf("evaluate(%s) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("evaluate(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Predicates(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"1 IN (1, 2)", true},
		{"3 IN (1, 2)", false},
		{"3 NOT IN (1, 2)", true},
		{"1 IN (NULL, 1)", true},
		{"2 IN (NULL, 1)", false},
		{"NULL IN (1, 2)", nil},
		{"NULL NOT IN (1, 2)", nil},
		{"'b' IN ('A', 'B')", true},
		{"2 BETWEEN 1 AND 3", true},
		{"3 BETWEEN 1 AND 3", true},
		{"4 BETWEEN 1 AND 3", false},
		{"4 NOT BETWEEN 1 AND 3", true},
		{"NULL BETWEEN 1 AND 3", nil},
		{"'abc' LIKE 'A%'", true},
		{"'abc' NOT LIKE 'A%'", false},
		{"'a%c' LIKE 'a!%c' ESCAPE '!'", true},
		{"NULL LIKE 'a%'", nil},
		{"'abc' LIKE NULL", nil},
		{"123 LIKE '1%'", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(t, tt.expr)
			if err != nil {
				t.Fatalf("evaluate(%s) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("evaluate(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2", 3.0},
		{"7 / 2", 3.5},
		{"7 % 4", 3.0},
		{"2 * 3 - 1", 5.0},
		{"-(2)", -2.0},
		{"+'3'", 3.0},
		{"NULL + 1", nil},
		{"'a' + 1", "a1"},
		{"'a' || 'b'", "ab"},
		{"'a' || NULL", nil},
		{"CAST('12' AS INTEGER) + CAST(3 AS INTEGER)", int32(15)},
		{"CAST(5 AS BIGINT) * CAST(2 AS INTEGER)", int64(10)},
		{"CAST(7 AS INTEGER) / CAST(2 AS INTEGER)", 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpr(t, tt.expr)
			if err != nil {
				t.Fatalf("evaluate(%s) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("evaluate(%s) = %v (%T), want %v (%T)", tt.expr, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"1 AND TRUE", ErrEvaluation},
		{"NOT 1", ErrEvaluation},
		{"1 / 0", ErrEvaluation},
		{"-'abc'", ErrEvaluation},
		{"CAST('x' AS INTEGER)", ErrEvaluation},
		{"'a' LIKE '[a'", ErrPattern},
		{"?", ErrParameter},
		{"CAST('9223372036854775807' AS BIGINT) + CAST(1 AS BIGINT)", ErrEvaluation},
		{"CAST('-9223372036854775808' AS BIGINT) - CAST(1 AS BIGINT)", ErrEvaluation},
		{"CAST('9223372036854775807' AS BIGINT) * CAST(2 AS BIGINT)", ErrEvaluation},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := evalExpr(t, tt.expr)
			if !errors.Is(err, tt.want) {
				t.Errorf("evaluate(%s) error = %v, want %v", tt.expr, err, tt.want)
			}
		})
	}
}

// NULL compares equal to NULL and below every other value, so relational
// operators on a NULL column are true or false, never NULL.
func TestFilter_NullColumnComparisons(t *testing.T) {
	tests := []struct {
		where string
		want  []any
	}{
		{"age < 30", []any{"bob", "Dave"}},
		{"age <= 25", []any{"bob", "Dave"}},
		{"age > 25", []any{"Alice", "Charlie"}},
		{"age >= 0", []any{"Alice", "bob", "Charlie"}},
		{"age <> 30", []any{"bob", "Charlie", "Dave"}},
		{"age = NULL", []any{"Dave"}},
		{"age IS NOT NULL AND age < 30", []any{"bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			result := runQuery(t, "SELECT name FROM users WHERE "+tt.where+" ORDER BY id")
			assertColumn(t, result, "name", tt.want...)
		})
	}
}
