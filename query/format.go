package query

import (
	"fmt"
	"strconv"
	"strings"
)

// String methods render expressions back to SQL text. ORDER BY keys are
// matched against select-list expressions by comparing this text.

func (e *Literal) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}

func (e *Param) String() string { return "?" }

func (e *ColumnRef) String() string {
	if e.Table != "" {
		return e.Table + "." + e.Name
	}
	return e.Name
}

func (e *Star) String() string {
	if e.Table != "" {
		return e.Table + ".*"
	}
	return "*"
}

func (e *UnaryExpr) String() string {
	switch e.Op {
	case OpNot:
		return "NOT " + e.Operand.String()
	case OpNeg:
		return "-" + e.Operand.String()
	case OpPlus:
		return "+" + e.Operand.String()
	case OpIsNull:
		return e.Operand.String() + " IS NULL"
	default:
		return e.Operand.String() + " IS NOT NULL"
	}
}

var binaryOpText = map[BinaryOp]string{
	OpAnd:    "AND",
	OpOr:     "OR",
	OpEq:     "=",
	OpNe:     "<>",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpConcat: "||",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func not(n bool) string {
	if n {
		return " NOT"
	}
	return ""
}

func (e *LikeExpr) String() string {
	s := e.Operand.String() + not(e.Not) + " LIKE " + e.Pattern.String()
	if e.Escape != nil {
		s += " ESCAPE " + e.Escape.String()
	}
	return s
}

func joinExprs(list []Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func (e *InExpr) String() string {
	return e.Operand.String() + not(e.Not) + " IN (" + joinExprs(e.List) + ")"
}

func (e *InSubqueryExpr) String() string {
	return e.Operand.String() + not(e.Not) + " IN (" + e.Query.String() + ")"
}

func (e *BetweenExpr) String() string {
	return e.Operand.String() + not(e.Not) + " BETWEEN " + e.Low.String() + " AND " + e.High.String()
}

func (e *ExistsExpr) String() string {
	return strings.TrimPrefix(not(e.Not)+" EXISTS ("+e.Query.String()+")", " ")
}

func (e *SubqueryExpr) String() string { return "(" + e.Query.String() + ")" }

func (e *FunctionCall) String() string {
	if e.Star {
		return strings.ToUpper(e.Name) + "(*)"
	}
	distinct := ""
	if e.Distinct {
		distinct = "DISTINCT "
	}
	return strings.ToUpper(e.Name) + "(" + distinct + joinExprs(e.Args) + ")"
}

func (e *CaseExpr) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	if e.Operand != nil {
		b.WriteString(" " + e.Operand.String())
	}
	for _, w := range e.Whens {
		b.WriteString(" WHEN " + w.When.String() + " THEN " + w.Then.String())
	}
	if e.Else != nil {
		b.WriteString(" ELSE " + e.Else.String())
	}
	b.WriteString(" END")
	return b.String()
}

func (e *CastExpr) String() string {
	return "CAST(" + e.Operand.String() + " AS " + e.Type.String() + ")"
}

func tableString(t TableRef) string {
	switch t := t.(type) {
	case *TableName:
		if t.As != "" {
			return t.Name + " " + t.As
		}
		return t.Name
	case *TableSubquery:
		return "(" + t.Query.String() + ") " + t.As
	}
	return ""
}

func (s *Select) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Expr.String())
		if c.Alias != "" {
			b.WriteString(" AS " + c.Alias)
		}
	}
	if s.From != nil {
		b.WriteString(" FROM " + tableString(s.From))
	}
	for _, j := range s.Joins {
		b.WriteString(" " + j.Type.String() + " JOIN " + tableString(j.Table))
		if j.On != nil {
			b.WriteString(" ON " + j.On.String())
		}
	}
	if s.Where != nil {
		b.WriteString(" WHERE " + s.Where.String())
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY " + joinExprs(s.GroupBy))
	}
	if s.Having != nil {
		b.WriteString(" HAVING " + s.Having.String())
	}
	if s.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *s.Limit)
	}
	return b.String()
}

func (s *SelectStatement) String() string {
	var b strings.Builder
	b.WriteString(s.Select.String())
	for _, u := range s.Unions {
		if u.All {
			b.WriteString(" UNION ALL ")
		} else {
			b.WriteString(" UNION ")
		}
		b.WriteString(u.Select.String())
	}
	for i, o := range s.OrderBy {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(o.Expr.String())
		if o.Desc {
			b.WriteString(" DESC")
		}
	}
	if s.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *s.Limit)
	}
	return b.String()
}
