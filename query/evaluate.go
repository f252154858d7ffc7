package query

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/relation"
)

// evaluator computes expressions for one candidate row (tuple) or, for
// aggregate selects, one group of rows. Evaluators are not shared between
// goroutines; everything they read through sx is immutable during a run.
type evaluator struct {
	sx    *selectExecution
	tuple IndexTuple
	group []IndexTuple // nil outside aggregate projection
}

func (sx *selectExecution) rowEvaluator(t IndexTuple) *evaluator {
	return &evaluator{sx: sx, tuple: t}
}

func (sx *selectExecution) groupEvaluator(group []IndexTuple) *evaluator {
	ev := &evaluator{sx: sx, group: group}
	if len(group) > 0 {
		ev.tuple = group[0]
	} else {
		ev.tuple = make(IndexTuple, len(sx.tables))
	}
	if ev.group == nil {
		ev.group = []IndexTuple{}
	}
	return ev
}

// truth evaluates a condition. NULL counts as false; any other non-boolean
// value is an error.
func (ev *evaluator) truth(e Expr) (bool, error) {
	v, err := ev.eval(e)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, newError(CodeEvaluation, e.String(), "condition evaluated to %T, not boolean", v)
}

func (ev *evaluator) eval(e Expr) (any, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil

	case *Param:
		return ev.sx.st.param(n.Index)

	case *ColumnRef:
		s, ok := ev.sx.slots[n]
		if !ok {
			return nil, newError(CodeUnknownColumn, n.String(), "column was not resolved")
		}
		row := ev.tuple[s.table]
		if row == 0 {
			return nil, nil
		}
		return ev.sx.tables[s.table].rel.Cell(s.column, row-1), nil

	case *Star:
		return nil, newError(CodeSyntax, n.String(), "* is only allowed in the select list")

	case *UnaryExpr:
		return ev.evalUnary(n)

	case *BinaryExpr:
		return ev.evalBinary(n)

	case *LikeExpr:
		return ev.evalLike(n)

	case *InExpr:
		v, err := ev.eval(n.Operand)
		if err != nil || v == nil {
			return nil, err
		}
		for _, item := range n.List {
			candidate, err := ev.eval(item)
			if err != nil {
				return nil, err
			}
			if candidate == nil {
				continue
			}
			c, err := Compare(relation.TypeOf(v), v, candidate)
			if err != nil {
				return nil, err
			}
			if c == 0 {
				return !n.Not, nil
			}
		}
		return n.Not, nil

	case *InSubqueryExpr:
		v, err := ev.eval(n.Operand)
		if err != nil || v == nil {
			return nil, err
		}
		rel, err := ev.sx.st.subquery(n.Query)
		if err != nil {
			return nil, err
		}
		if rel.Width() == 0 {
			return n.Not, nil
		}
		t := relation.TypeOf(v)
		for i := 0; i < rel.Len(); i++ {
			candidate := rel.Cell(0, i)
			if candidate == nil {
				continue
			}
			c, err := Compare(t, v, candidate)
			if err != nil {
				return nil, err
			}
			if c == 0 {
				return !n.Not, nil
			}
		}
		return n.Not, nil

	case *BetweenExpr:
		v, err := ev.eval(n.Operand)
		if err != nil || v == nil {
			return nil, err
		}
		low, err := ev.eval(n.Low)
		if err != nil {
			return nil, err
		}
		high, err := ev.eval(n.High)
		if err != nil {
			return nil, err
		}
		t := relation.TypeOf(v)
		lc, err := Compare(t, v, low)
		if err != nil {
			return nil, err
		}
		hc, err := Compare(t, v, high)
		if err != nil {
			return nil, err
		}
		return (lc >= 0 && hc <= 0) != n.Not, nil

	case *ExistsExpr:
		rel, err := ev.sx.st.subquery(n.Query)
		if err != nil {
			return nil, err
		}
		return (rel.Len() > 0) != n.Not, nil

	case *SubqueryExpr:
		rel, err := ev.sx.st.subquery(n.Query)
		if err != nil {
			return nil, err
		}
		switch {
		case rel.Len() == 0 || rel.Width() == 0:
			return nil, nil
		case rel.Len() > 1:
			return nil, newError(CodeEvaluation, n.String(), "scalar subquery returned %d rows", rel.Len())
		}
		return rel.Cell(0, 0), nil

	case *FunctionCall:
		return ev.evalCall(n)

	case *CaseExpr:
		return ev.evalCase(n)

	case *CastExpr:
		v, err := ev.eval(n.Operand)
		if err != nil {
			return nil, err
		}
		out, err := CastValue(v, n.Type)
		if err != nil {
			return nil, newError(CodeEvaluation, n.String(), "%v", err)
		}
		return out, nil
	}
	return nil, newError(CodeEvaluation, fmt.Sprintf("%T", e), "unsupported expression")
}

func (ev *evaluator) evalUnary(n *UnaryExpr) (any, error) {
	v, err := ev.eval(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpIsNull:
		return v == nil, nil
	case OpIsNotNull:
		return v != nil, nil
	}
	if v == nil {
		return nil, nil
	}
	switch n.Op {
	case OpNot:
		b, ok := v.(bool)
		if !ok {
			return nil, newError(CodeEvaluation, n.String(), "NOT applied to %T", v)
		}
		return !b, nil
	case OpNeg:
		switch x := v.(type) {
		case int32:
			return -x, nil
		case int64:
			return -x, nil
		case decimal.Decimal:
			return x.Neg(), nil
		}
		f, err := toNumber(v)
		if err != nil {
			return nil, newError(CodeEvaluation, n.String(), "%v", err)
		}
		return -f, nil
	default: // OpPlus
		if _, ok := toFloat(v); ok {
			return v, nil
		}
		f, err := toNumber(v)
		if err != nil {
			return nil, newError(CodeEvaluation, n.String(), "%v", err)
		}
		return f, nil
	}
}

func (ev *evaluator) evalBinary(n *BinaryExpr) (any, error) {
	switch n.Op {
	case OpAnd, OpOr:
		return ev.evalLogical(n)
	}

	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		t := relation.TypeOf(left)
		if left == nil {
			t = relation.TypeOf(right)
		}
		c, err := Compare(t, left, right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case OpEq:
			return c == 0, nil
		case OpNe:
			return c != 0, nil
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpConcat:
		if left == nil || right == nil {
			return nil, nil
		}
		return ToString(left) + ToString(right), nil
	}

	if left == nil || right == nil {
		return nil, nil
	}
	if n.Op == OpAdd {
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return ToString(left) + ToString(right), nil
		}
	}
	out, err := arithmetic(n.Op, left, right)
	if err != nil {
		return nil, newError(CodeEvaluation, n.String(), "%v", err)
	}
	return out, nil
}

// evalLogical applies three-valued AND/OR with short-circuiting
func (ev *evaluator) evalLogical(n *BinaryExpr) (any, error) {
	left, err := ev.logicalOperand(n.Left)
	if err != nil {
		return nil, err
	}
	if left != nil {
		if n.Op == OpAnd && !*left {
			return false, nil
		}
		if n.Op == OpOr && *left {
			return true, nil
		}
	}
	right, err := ev.logicalOperand(n.Right)
	if err != nil {
		return nil, err
	}
	if right != nil {
		if n.Op == OpAnd && !*right {
			return false, nil
		}
		if n.Op == OpOr && *right {
			return true, nil
		}
	}
	if left == nil || right == nil {
		return nil, nil
	}
	return n.Op == OpAnd, nil
}

func (ev *evaluator) logicalOperand(e Expr) (*bool, error) {
	v, err := ev.eval(e)
	if err != nil || v == nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, newError(CodeEvaluation, e.String(), "logical operand evaluated to %T, not boolean", v)
	}
	return &b, nil
}

var errIntegerOverflow = errors.New("integer overflow")

// arithmetic applies + - * / % to two non-null numbers. Integers stay
// integers except for division and fail on int64 overflow, decimals stay
// exact, everything else is computed as float64.
func arithmetic(op BinaryOp, left, right any) (any, error) {
	switch numericResult(relation.TypeOf(left), relation.TypeOf(right)) {
	case relation.TypeInteger, relation.TypeBigint:
		if op != OpDiv {
			l, err := toInt64(left)
			if err != nil {
				return nil, err
			}
			r, err := toInt64(right)
			if err != nil {
				return nil, err
			}
			var out int64
			switch op {
			case OpAdd:
				out = l + r
				if (r > 0 && out < l) || (r < 0 && out > l) {
					return nil, errIntegerOverflow
				}
			case OpSub:
				out = l - r
				if (r < 0 && out < l) || (r > 0 && out > l) {
					return nil, errIntegerOverflow
				}
			case OpMul:
				out = l * r
				if l != 0 && (out/l != r || (l == -1 && r == math.MinInt64)) {
					return nil, errIntegerOverflow
				}
			case OpMod:
				if r == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				out = l % r
			}
			if _, ok := left.(int32); ok {
				if _, ok := right.(int32); ok && out >= math.MinInt32 && out <= math.MaxInt32 {
					return int32(out), nil
				}
			}
			return out, nil
		}
	case relation.TypeDecimal:
		l, err := toDecimal(left)
		if err != nil {
			return nil, err
		}
		r, err := toDecimal(right)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpAdd:
			return l.Add(r), nil
		case OpSub:
			return l.Sub(r), nil
		case OpMul:
			return l.Mul(r), nil
		}
		if r.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		if op == OpDiv {
			return l.Div(r), nil
		}
		return l.Mod(r), nil
	}

	l, err := toNumber(left)
	if err != nil {
		return nil, err
	}
	r, err := toNumber(right)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	}
	if r == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	if op == OpDiv {
		return l / r, nil
	}
	return math.Mod(l, r), nil
}

func (ev *evaluator) evalLike(n *LikeExpr) (any, error) {
	v, err := ev.eval(n.Operand)
	if err != nil || v == nil {
		return nil, err
	}
	pattern, err := ev.eval(n.Pattern)
	if err != nil || pattern == nil {
		return nil, err
	}
	escape := ""
	if n.Escape != nil {
		e, err := ev.eval(n.Escape)
		if err != nil {
			return nil, err
		}
		escape = ToString(e)
	}
	ok, err := ev.sx.st.engine.patterns.Match(ToString(v), ToString(pattern), escape)
	if err != nil {
		return nil, err
	}
	return ok != n.Not, nil
}

func (ev *evaluator) evalCase(n *CaseExpr) (any, error) {
	var operand any
	if n.Operand != nil {
		v, err := ev.eval(n.Operand)
		if err != nil {
			return nil, err
		}
		operand = v
	}
	for _, w := range n.Whens {
		if n.Operand == nil {
			ok, err := ev.truth(w.When)
			if err != nil {
				return nil, err
			}
			if ok {
				return ev.eval(w.Then)
			}
			continue
		}
		candidate, err := ev.eval(w.When)
		if err != nil {
			return nil, err
		}
		if operand == nil || candidate == nil {
			continue
		}
		c, err := Compare(relation.TypeOf(operand), operand, candidate)
		if err != nil {
			return nil, err
		}
		if c == 0 {
			return ev.eval(w.Then)
		}
	}
	if n.Else != nil {
		return ev.eval(n.Else)
	}
	return nil, nil
}

func (ev *evaluator) evalCall(n *FunctionCall) (any, error) {
	f, ok := ev.sx.functions[n]
	if !ok {
		return nil, newError(CodeUnknownFunction, n.Name, "function was not resolved")
	}

	if agg, ok := f.(AggregateFunction); ok {
		if ev.group == nil {
			return nil, newError(CodeEvaluation, n.String(), "aggregate function used outside the select list or HAVING")
		}
		columns, err := ev.aggregateArgs(n)
		if err != nil {
			return nil, err
		}
		out, err := agg.Aggregate(columns)
		if err != nil {
			return nil, newError(CodeEvaluation, n.String(), "%v", err)
		}
		return out, nil
	}

	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out, err := f.Evaluate(args)
	if err != nil {
		return nil, newError(CodeEvaluation, n.String(), "%v", err)
	}
	return out, nil
}

// aggregateArgs evaluates each argument once per row of the group
func (ev *evaluator) aggregateArgs(n *FunctionCall) ([][]any, error) {
	if n.Star {
		ones := make([]any, len(ev.group))
		for i := range ones {
			ones[i] = int64(1)
		}
		return [][]any{ones}, nil
	}

	columns := make([][]any, len(n.Args))
	for i := range columns {
		columns[i] = make([]any, 0, len(ev.group))
	}
	row := &evaluator{sx: ev.sx}
	for _, t := range ev.group {
		row.tuple = t
		for i, a := range n.Args {
			v, err := row.eval(a)
			if err != nil {
				return nil, err
			}
			columns[i] = append(columns[i], v)
		}
	}
	if n.Distinct && len(columns) > 0 {
		columns[0] = distinctValues(columns[0])
		// remaining arguments are per-row constants such as separators
		for i := 1; i < len(columns); i++ {
			columns[i] = columns[i][:min(len(columns[i]), len(columns[0]))]
		}
	}
	return columns, nil
}

func distinctValues(values []any) []any {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		key := valueKey(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// inferType computes the static type of a resolved expression
func (sx *selectExecution) inferType(e Expr) (relation.ColumnType, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Type, nil
	case *Param:
		v, err := sx.st.param(n.Index)
		if err != nil {
			return relation.TypeOther, err
		}
		return relation.TypeOf(v), nil
	case *ColumnRef:
		s, ok := sx.slots[n]
		if !ok {
			return relation.TypeOther, newError(CodeUnknownColumn, n.String(), "column was not resolved")
		}
		return sx.tables[s.table].rel.Column(s.column).Type, nil
	case *UnaryExpr:
		switch n.Op {
		case OpNeg, OpPlus:
			return sx.inferType(n.Operand)
		}
		return relation.TypeBoolean, nil
	case *BinaryExpr:
		switch n.Op {
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpConcat:
		default:
			return relation.TypeBoolean, nil
		}
		lt, err := sx.inferType(n.Left)
		if err != nil {
			return relation.TypeOther, err
		}
		rt, err := sx.inferType(n.Right)
		if err != nil {
			return relation.TypeOther, err
		}
		if n.Op == OpConcat || (n.Op == OpAdd && (lt.IsString() || rt.IsString())) {
			return relation.TypeVarchar, nil
		}
		t := numericResult(lt, rt)
		if n.Op == OpDiv && (t == relation.TypeInteger || t == relation.TypeBigint) {
			return relation.TypeDouble, nil
		}
		return t, nil
	case *LikeExpr, *InExpr, *InSubqueryExpr, *BetweenExpr, *ExistsExpr:
		return relation.TypeBoolean, nil
	case *SubqueryExpr:
		rel, err := sx.st.subquery(n.Query)
		if err != nil {
			return relation.TypeOther, err
		}
		if rel.Width() == 0 {
			return relation.TypeNull, nil
		}
		return rel.Column(0).Type, nil
	case *FunctionCall:
		f, ok := sx.functions[n]
		if !ok {
			return relation.TypeOther, newError(CodeUnknownFunction, n.Name, "function was not resolved")
		}
		args := make([]relation.ColumnType, len(n.Args))
		for i, a := range n.Args {
			t, err := sx.inferType(a)
			if err != nil {
				return relation.TypeOther, err
			}
			args[i] = t
		}
		if n.Star {
			args = []relation.ColumnType{relation.TypeBigint}
		}
		return f.ReturnType(args), nil
	case *CaseExpr:
		branches := make([]Expr, 0, len(n.Whens)+1)
		for _, w := range n.Whens {
			branches = append(branches, w.Then)
		}
		if n.Else != nil {
			branches = append(branches, n.Else)
		}
		for _, b := range branches {
			t, err := sx.inferType(b)
			if err != nil {
				return relation.TypeOther, err
			}
			if t != relation.TypeNull {
				return t, nil
			}
		}
		return relation.TypeNull, nil
	case *CastExpr:
		return n.Type, nil
	}
	return relation.TypeOther, nil
}
