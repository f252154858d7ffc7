package query

import (
	"errors"
	"testing"

	"github.com/vegasq/qoq/relation"
)

// parseWhere parses expr as the WHERE clause of a trivial select
func parseWhere(t *testing.T, expr string) Expr {
	t.Helper()
	stmt, err := Parse("SELECT * FROM t WHERE " + expr)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", expr, err)
	}
	return stmt.Select.Where
}

func TestParser_ExpressionShape(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"AND binds tighter than OR", "a = 1 OR b = 2 AND c = 3", "((a = 1) OR ((b = 2) AND (c = 3)))"},
		{"multiplication binds tighter", "a + b * c = 0", "((a + (b * c)) = 0)"},
		{"parentheses", "(a + b) * c = 0", "(((a + b) * c) = 0)"},
		{"left associative", "a - b - c = 0", "(((a - b) - c) = 0)"},
		{"NOT over comparison", "NOT a = 1", "NOT (a = 1)"},
		{"double NOT", "NOT NOT a = 1", "NOT NOT (a = 1)"},
		{"concat", "a || 'x' = 'bx'", "((a || 'x') = 'bx')"},
		{"modulo", "a % 2 = 1", "((a % 2) = 1)"},
		{"negative literal folds", "a > -5", "(a > -5)"},
		{"negated column", "-a < 0", "(-a < 0)"},
		{"not equal spellings", "a != 1 AND b <> 2", "((a <> 1) AND (b <> 2))"},
		{"qualified column and param", "t.col >= ?", "(t.col >= ?)"},
		{"quoted string", "a = 'it''s'", "(a = 'it''s')"},
		{"booleans and null", "a = TRUE OR b = NULL", "((a = TRUE) OR (b = NULL))"},
		{"IN list", "a IN (1, 'x', b)", "a IN (1, 'x', b)"},
		{"NOT IN", "a NOT IN (1, 2)", "a NOT IN (1, 2)"},
		{"LIKE", "name LIKE 'a%'", "name LIKE 'a%'"},
		{"NOT LIKE with ESCAPE", "name NOT LIKE 'a!%%' ESCAPE '!'", "name NOT LIKE 'a!%%' ESCAPE '!'"},
		{"BETWEEN", "x BETWEEN 1 AND 5", "x BETWEEN 1 AND 5"},
		{"NOT BETWEEN with AND after", "x NOT BETWEEN 1 AND 5 AND y = 2", "(x NOT BETWEEN 1 AND 5 AND (y = 2))"},
		{"IS NULL", "x IS NULL", "x IS NULL"},
		{"IS NOT NULL", "x IS NOT NULL", "x IS NOT NULL"},
		{"EXISTS", "EXISTS (SELECT * FROM u)", "EXISTS (SELECT * FROM u)"},
		{"NOT EXISTS", "NOT EXISTS (SELECT * FROM u)", "NOT EXISTS (SELECT * FROM u)"},
		{"IN subquery", "a IN (SELECT id FROM u)", "a IN (SELECT id FROM u)"},
		{"scalar subquery", "a = (SELECT MAX(id) FROM u)", "(a = (SELECT MAX(id) FROM u))"},
		{"CAST", "CAST(a AS integer) = 1", "(CAST(a AS INTEGER) = 1)"},
		{"CAST with precision", "CAST(a AS DECIMAL(10, 2)) = 1", "(CAST(a AS DECIMAL) = 1)"},
		{"CONVERT", "CONVERT(a, varchar) = 'x'", "(CAST(a AS VARCHAR) = 'x')"},
		{"function call", "lower(a) = 'x'", "(LOWER(a) = 'x')"},
		{"COUNT star", "COUNT(*) > 1", "(COUNT(*) > 1)"},
		{"COUNT DISTINCT", "COUNT(DISTINCT a) > 1", "(COUNT(DISTINCT a) > 1)"},
		{"LEFT as a function", "LEFT(a, 2) = 'ab'", "(LEFT(a, 2) = 'ab')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseWhere(t, tt.expr).String()
			if got != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParser_Literals(t *testing.T) {
	tests := []struct {
		expr     string
		wantVal  any
		wantType relation.ColumnType
	}{
		{"42", 42.0, relation.TypeDouble},
		{"3.5", 3.5, relation.TypeDouble},
		{"1e2", 100.0, relation.TypeDouble},
		{"'abc'", "abc", relation.TypeVarchar},
		{"true", true, relation.TypeBoolean},
		{"NULL", nil, relation.TypeNull},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cmp, ok := parseWhere(t, "a = "+tt.expr).(*BinaryExpr)
			if !ok {
				t.Fatalf("WHERE is not a comparison")
			}
			lit, ok := cmp.Right.(*Literal)
			if !ok {
				t.Fatalf("right side = %T, want *Literal", cmp.Right)
			}
			if lit.Value != tt.wantVal || lit.Type != tt.wantType {
				t.Errorf("literal = %v (%v), want %v (%v)", lit.Value, lit.Type, tt.wantVal, tt.wantType)
			}
		})
	}
}

func TestParser_CaseExpression(t *testing.T) {
	tests := []struct {
		name        string
		expr        string
		wantOperand bool
		wantWhens   int
		wantElse    bool
	}{
		{"searched", "CASE WHEN a > 1 THEN 'big' WHEN a > 0 THEN 'small' END", false, 2, false},
		{"searched with ELSE", "CASE WHEN a > 1 THEN 'big' ELSE 'small' END", false, 1, true},
		{"simple", "CASE a WHEN 1 THEN 'one' WHEN 2 THEN 'two' ELSE 'many' END", true, 2, true},
		{"nested", "CASE WHEN a > 1 THEN CASE b WHEN 1 THEN 'x' END END", false, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse("SELECT " + tt.expr + " AS c FROM t")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			c, ok := stmt.Select.Columns[0].Expr.(*CaseExpr)
			if !ok {
				t.Fatalf("column = %T, want *CaseExpr", stmt.Select.Columns[0].Expr)
			}
			if (c.Operand != nil) != tt.wantOperand {
				t.Errorf("operand = %v, want present %v", c.Operand, tt.wantOperand)
			}
			if len(c.Whens) != tt.wantWhens {
				t.Errorf("whens = %d, want %d", len(c.Whens), tt.wantWhens)
			}
			if (c.Else != nil) != tt.wantElse {
				t.Errorf("else = %v, want present %v", c.Else, tt.wantElse)
			}
			if stmt.Select.Columns[0].Alias != "c" {
				t.Errorf("alias = %q, want c", stmt.Select.Columns[0].Alias)
			}
		})
	}
}

func TestParser_ExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"dangling operator", "a ="},
		{"missing IN paren", "a IN 1, 2"},
		{"unclosed IN list", "a IN (1, 2"},
		{"BETWEEN without AND", "a BETWEEN 1 OR 2"},
		{"IS without NULL", "a IS 5"},
		{"CASE without WHEN", "CASE ELSE 1 END = 1"},
		{"CASE without END", "CASE WHEN a THEN 1 = 1"},
		{"CAST unknown type", "CAST(a AS widget) = 1"},
		{"CAST without AS", "CAST(a integer) = 1"},
		{"unclosed paren", "(a = 1"},
		{"unclosed function", "UPPER(a = 'x'"},
		{"EXISTS without subquery", "EXISTS (1)"},
		{"star in WHERE", "* = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("SELECT * FROM t WHERE " + tt.expr)
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Parse(%q) error = %v, want ErrSyntax", tt.expr, err)
			}
		})
	}
}
