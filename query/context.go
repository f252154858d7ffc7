package query

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vegasq/qoq/relation"
)

// ExecOption configures a single statement execution
type ExecOption func(*statementExecution)

// WithMaxRows caps the rows returned by a statement. It takes priority over
// the statement's own LIMIT. Zero means no cap.
func WithMaxRows(n int) ExecOption {
	return func(st *statementExecution) {
		st.maxRows = n
	}
}

// statementExecution holds the state of one statement run
type statementExecution struct {
	ctx        context.Context
	engine     *Engine
	env        Environment
	stmt       *SelectStatement
	params     []any
	maxRows    int
	subqueries *subqueryCache
	log        *zap.Logger

	// columns are the canonical result columns, frozen by the first select
	columns []relation.Column
	// order is the resolved statement ORDER BY
	order []orderKey
	// hidden counts order-only columns appended after the canonical ones
	hidden int
}

// orderKey is one resolved ORDER BY key
type orderKey struct {
	column int
	desc   bool
	typ    relation.ColumnType
}

func (st *statementExecution) param(i int) (any, error) {
	if i < 0 || i >= len(st.params) {
		return nil, newError(CodeParameter, "?", "parameter %d not bound (%d given)", i+1, len(st.params))
	}
	return st.params[i], nil
}

// subquery runs an independent nested statement once per statement execution
func (st *statementExecution) subquery(q *SelectStatement) (*relation.Relation, error) {
	return st.subqueries.get(q, func() (*relation.Relation, error) {
		nested := &statementExecution{
			ctx:        st.ctx,
			engine:     st.engine,
			env:        st.env,
			stmt:       q,
			params:     st.params,
			subqueries: st.subqueries,
			log:        st.log,
		}
		return nested.run()
	})
}

// subqueryCache computes each nested statement at most once
type subqueryCache struct {
	mu      sync.Mutex
	entries map[*SelectStatement]*subqueryEntry
}

type subqueryEntry struct {
	once sync.Once
	rel  *relation.Relation
	err  error
}

func newSubqueryCache() *subqueryCache {
	return &subqueryCache{entries: make(map[*SelectStatement]*subqueryEntry)}
}

func (c *subqueryCache) get(q *SelectStatement, compute func() (*relation.Relation, error)) (*relation.Relation, error) {
	c.mu.Lock()
	entry, ok := c.entries[q]
	if !ok {
		entry = &subqueryEntry{}
		c.entries[q] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.rel, entry.err = compute()
	})
	return entry.rel, entry.err
}

// binding ties one table reference to its relation
type binding struct {
	ref  TableRef
	name string
	rel  *relation.Relation
}

// matches reports whether a qualifier names this binding
func (b binding) matches(qualifier string) bool {
	if strings.EqualFold(b.name, qualifier) {
		return true
	}
	if t, ok := b.ref.(*TableName); ok && t.As == "" {
		return strings.EqualFold(t.Name, qualifier) || strings.EqualFold(lastSegment(qualifier), b.name)
	}
	return false
}

// resultColumn is one output column of a select
type resultColumn struct {
	name string
	typ  relation.ColumnType
	expr Expr
}

// slot locates a column: tables[table].rel column index column
type slot struct {
	table  int
	column int
}

// selectExecution holds the state of one select block run
type selectExecution struct {
	st     *statementExecution
	sel    *Select
	tables []binding
	// columns are the output columns, hidden order-only columns last
	columns []resultColumn
	// slots and functions are filled during resolution and read-only after
	slots     map[*ColumnRef]slot
	functions map[*FunctionCall]Function
	aggregate bool
}

func newSelectExecution(st *statementExecution, sel *Select) *selectExecution {
	return &selectExecution{
		st:        st,
		sel:       sel,
		slots:     make(map[*ColumnRef]slot),
		functions: make(map[*FunctionCall]Function),
	}
}

// walk visits e and its children depth-first, stopping at nested statements
func walk(e Expr, fn func(Expr) error) error {
	if e == nil {
		return nil
	}
	if err := fn(e); err != nil {
		return err
	}
	switch n := e.(type) {
	case *UnaryExpr:
		return walk(n.Operand, fn)
	case *BinaryExpr:
		if err := walk(n.Left, fn); err != nil {
			return err
		}
		return walk(n.Right, fn)
	case *LikeExpr:
		for _, c := range []Expr{n.Operand, n.Pattern, n.Escape} {
			if err := walk(c, fn); err != nil {
				return err
			}
		}
	case *InExpr:
		if err := walk(n.Operand, fn); err != nil {
			return err
		}
		for _, c := range n.List {
			if err := walk(c, fn); err != nil {
				return err
			}
		}
	case *InSubqueryExpr:
		return walk(n.Operand, fn)
	case *BetweenExpr:
		for _, c := range []Expr{n.Operand, n.Low, n.High} {
			if err := walk(c, fn); err != nil {
				return err
			}
		}
	case *FunctionCall:
		for _, c := range n.Args {
			if err := walk(c, fn); err != nil {
				return err
			}
		}
	case *CaseExpr:
		if err := walk(n.Operand, fn); err != nil {
			return err
		}
		for _, w := range n.Whens {
			if err := walk(w.When, fn); err != nil {
				return err
			}
			if err := walk(w.Then, fn); err != nil {
				return err
			}
		}
		return walk(n.Else, fn)
	case *CastExpr:
		return walk(n.Operand, fn)
	}
	return nil
}

// resolve binds every column reference and function call in e
func (sx *selectExecution) resolve(e Expr) error {
	return walk(e, func(n Expr) error {
		switch n := n.(type) {
		case *ColumnRef:
			if _, ok := sx.slots[n]; ok {
				return nil
			}
			s, err := sx.resolveColumn(n)
			if err != nil {
				return err
			}
			sx.slots[n] = s
		case *Star:
			return newError(CodeSyntax, n.String(), "* is only allowed in the select list")
		case *FunctionCall:
			f, err := sx.st.engine.functions.Lookup(n.Name)
			if err != nil {
				return err
			}
			argc := len(n.Args)
			if n.Star {
				argc = 1
			}
			if err := checkArity(f, argc); err != nil {
				return err
			}
			sx.functions[n] = f
		}
		return nil
	})
}

// resolveColumn finds the first table, in FROM/JOIN order, holding the column
func (sx *selectExecution) resolveColumn(ref *ColumnRef) (slot, error) {
	for ti, b := range sx.tables {
		if ref.Table != "" && !b.matches(ref.Table) {
			continue
		}
		if ci := b.rel.ColumnIndex(ref.Name); ci >= 0 {
			return slot{table: ti, column: ci}, nil
		}
	}
	return slot{}, newError(CodeUnknownColumn, ref.String(), "column not found in any table")
}

// containsAggregate reports whether e calls an aggregate function outside
// nested statements. e must already be resolved.
func (sx *selectExecution) containsAggregate(e Expr) bool {
	found := false
	_ = walk(e, func(n Expr) error {
		if call, ok := n.(*FunctionCall); ok && IsAggregate(sx.functions[call]) {
			found = true
		}
		return nil
	})
	return found
}
