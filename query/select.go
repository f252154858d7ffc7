package query

import (
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vegasq/qoq/relation"
)

// executeSelect runs one select block. The first select of a statement
// freezes the canonical result columns and resolves the statement ORDER BY.
func (st *statementExecution) executeSelect(sel *Select, first bool) (*relation.Relation, error) {
	sx := newSelectExecution(st, sel)
	if err := sx.bindTables(); err != nil {
		return nil, err
	}
	if err := sx.resolveColumns(); err != nil {
		return nil, err
	}
	if first {
		st.columns = make([]relation.Column, len(sx.columns))
		for i, c := range sx.columns {
			st.columns[i] = relation.Column{Name: c.name, Type: c.typ}
		}
		if err := sx.resolveOrderBy(); err != nil {
			return nil, err
		}
	}
	if err := sx.resolveClauses(); err != nil {
		return nil, err
	}

	out := relation.New(sx.outputColumns()...)
	if sel.From == nil {
		// No table: evaluate the select list once
		ev := sx.rowEvaluator(IndexTuple{})
		if sx.aggregate {
			ev = sx.groupEvaluator([]IndexTuple{{}})
		}
		row, err := ev.project()
		if err != nil {
			return nil, err
		}
		return out, out.AddRow(row...)
	}

	tuples, estimate := sx.intersections()
	parallel := st.engine.parallelThreshold >= 0 && estimate > st.engine.parallelThreshold
	st.log.Debug("executing select",
		zap.Int("tables", len(sx.tables)),
		zap.Int64("estimate", estimate),
		zap.Bool("parallel", parallel),
		zap.Bool("aggregate", sx.aggregate),
	)

	var err error
	if sx.aggregate {
		err = sx.runAggregate(out, tuples, parallel)
	} else {
		err = sx.runRows(out, tuples, parallel)
	}
	if err != nil {
		return nil, err
	}

	if sel.Distinct {
		if out, err = dedupeRows(out); err != nil {
			return nil, err
		}
	}
	if sel.Limit != nil {
		out.Truncate(int(*sel.Limit))
	}
	return out, nil
}

// bindTables resolves every FROM and JOIN table to a relation
func (sx *selectExecution) bindTables() error {
	if sx.sel.From == nil {
		return nil
	}
	refs := []TableRef{sx.sel.From}
	for _, j := range sx.sel.Joins {
		refs = append(refs, j.Table)
	}
	for _, ref := range refs {
		rel, err := sx.st.resolveTable(ref)
		if err != nil {
			return err
		}
		sx.tables = append(sx.tables, binding{ref: ref, name: ref.Alias(), rel: rel})
	}
	return nil
}

// resolveTable looks up a named table or runs a derived table
func (st *statementExecution) resolveTable(ref TableRef) (*relation.Relation, error) {
	switch t := ref.(type) {
	case *TableName:
		v, ok := st.env.Lookup(t.Name)
		if !ok {
			return nil, newError(CodeUnboundTable, t.Name, "table is not defined")
		}
		rel, ok := v.(*relation.Relation)
		if !ok || rel == nil {
			return nil, newError(CodeNotARelation, t.Name, "table is bound to %T, not a relation", v)
		}
		return rel, nil
	case *TableSubquery:
		rel, err := st.subquery(t.Query)
		if err != nil {
			return nil, fmt.Errorf("failed to execute subquery in FROM: %w", err)
		}
		return rel, nil
	}
	return nil, newError(CodeSyntax, fmt.Sprintf("%T", ref), "unsupported table reference")
}

// resolveColumns computes the select's result columns, expanding * and t.*.
// Names are unique case-insensitively: a star-expanded column replaces an
// earlier one of the same name in place, any other duplicate is dropped.
func (sx *selectExecution) resolveColumns() error {
	seen := make(map[string]int)
	add := func(name string, t relation.ColumnType, e Expr, star bool) {
		key := strings.ToLower(name)
		idx, dup := seen[key]
		if !dup {
			seen[key] = len(sx.columns)
			sx.columns = append(sx.columns, resultColumn{name: name, typ: t, expr: e})
			return
		}
		if star {
			sx.st.log.Debug("star column replaces duplicate result column",
				zap.String("column", name), zap.Int("position", idx))
			sx.columns[idx] = resultColumn{name: name, typ: t, expr: e}
			return
		}
		sx.st.log.Debug("dropped duplicate result column", zap.String("column", name))
	}

	for i, c := range sx.sel.Columns {
		if star, ok := c.Expr.(*Star); ok {
			matched := false
			for ti, b := range sx.tables {
				if star.Table != "" && !b.matches(star.Table) {
					continue
				}
				matched = true
				for ci, col := range b.rel.Columns() {
					ref := &ColumnRef{Table: b.name, Name: col.Name}
					sx.slots[ref] = slot{table: ti, column: ci}
					add(col.Name, col.Type, ref, true)
				}
			}
			if star.Table != "" && !matched {
				return newError(CodeStarScope, star.String(), "no table in the select matches")
			}
			continue
		}

		if err := sx.resolve(c.Expr); err != nil {
			return err
		}
		t, err := sx.inferType(c.Expr)
		if err != nil {
			return err
		}
		name := c.Alias
		if name == "" {
			if ref, ok := c.Expr.(*ColumnRef); ok {
				name = ref.Name
			} else {
				name = fmt.Sprintf("column_%d", i)
			}
		}
		add(name, t, c.Expr, false)
	}
	return nil
}

// resolveOrderBy binds each statement ORDER BY key to a result column,
// adding hidden columns for expressions not in the select list
func (sx *selectExecution) resolveOrderBy() error {
	st := sx.st
	visible := len(sx.columns)
	for _, item := range st.stmt.OrderBy {
		idx, err := sx.orderColumn(item.Expr, visible)
		if err != nil {
			return err
		}
		if idx < 0 {
			switch {
			case len(st.stmt.Unions) > 0:
				return newError(CodeOrderByUnion, item.Expr.String(),
					"ORDER BY in a union must reference a select-list column by name or position")
			case sx.sel.Distinct:
				return newError(CodeOrderByDistinct, item.Expr.String(),
					"ORDER BY in a DISTINCT select must reference a select-list column")
			}
			if err := sx.resolve(item.Expr); err != nil {
				return err
			}
			t, err := sx.inferType(item.Expr)
			if err != nil {
				return err
			}
			st.hidden++
			sx.columns = append(sx.columns, resultColumn{
				name: fmt.Sprintf("__order_by_column_%d", st.hidden),
				typ:  t,
				expr: item.Expr,
			})
			idx = len(sx.columns) - 1
		}
		st.order = append(st.order, orderKey{column: idx, desc: item.Desc, typ: sx.columns[idx].typ})
	}
	return nil
}

// orderColumn returns the result column an ORDER BY key refers to, or -1
func (sx *selectExecution) orderColumn(e Expr, visible int) (int, error) {
	switch n := e.(type) {
	case *ColumnRef:
		target, resolvable := sx.resolveColumn(n)
		for i, c := range sx.columns[:visible] {
			if n.Table == "" && strings.EqualFold(c.name, n.Name) {
				return i, nil
			}
			ref, ok := c.expr.(*ColumnRef)
			if !ok || !strings.EqualFold(ref.Name, n.Name) {
				continue
			}
			if n.Table == "" || (resolvable == nil && sx.slots[ref] == target) {
				return i, nil
			}
		}
		return -1, nil
	case *Literal:
		f, ok := n.Value.(float64)
		if !ok {
			break
		}
		pos := int(f)
		if float64(pos) != f || pos < 1 || pos > visible {
			return -1, newError(CodeOrderByOrdinal, n.String(),
				"ORDER BY position is out of range; the select list has %d columns", visible)
		}
		return pos - 1, nil
	}
	text := e.String()
	for i, c := range sx.columns[:visible] {
		if strings.EqualFold(c.expr.String(), text) {
			return i, nil
		}
	}
	return -1, nil
}

// resolveClauses binds WHERE, JOIN ON, GROUP BY and HAVING and decides
// whether the select aggregates
func (sx *selectExecution) resolveClauses() error {
	exprs := []Expr{sx.sel.Where, sx.sel.Having}
	for _, j := range sx.sel.Joins {
		exprs = append(exprs, j.On)
	}
	exprs = append(exprs, sx.sel.GroupBy...)
	for _, e := range exprs {
		if err := sx.resolve(e); err != nil {
			return err
		}
	}
	if sx.sel.Where != nil && sx.containsAggregate(sx.sel.Where) {
		return newError(CodeEvaluation, sx.sel.Where.String(), "aggregate functions are not allowed in WHERE")
	}

	sx.aggregate = len(sx.sel.GroupBy) > 0 || sx.sel.Having != nil
	for _, c := range sx.columns {
		if sx.containsAggregate(c.expr) {
			sx.aggregate = true
		}
	}
	return nil
}

func (sx *selectExecution) outputColumns() []relation.Column {
	cols := make([]relation.Column, len(sx.columns))
	for i, c := range sx.columns {
		cols[i] = relation.Column{Name: c.name, Type: c.typ}
	}
	return cols
}

// project evaluates every output column
func (ev *evaluator) project() ([]any, error) {
	row := make([]any, len(ev.sx.columns))
	for i, c := range ev.sx.columns {
		v, err := ev.eval(c.expr)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// earlyLimit returns the row count after which tuple generation may stop,
// or -1. Stopping early is only sound when nothing downstream reorders,
// groups or removes rows.
func (sx *selectExecution) earlyLimit() int {
	if sx.sel.Limit == nil || len(sx.st.stmt.OrderBy) > 0 || sx.sel.Distinct || sx.aggregate {
		return -1
	}
	return int(*sx.sel.Limit)
}

// runRows filters and projects each candidate tuple into out
func (sx *selectExecution) runRows(out *relation.Relation, tuples iter.Seq2[IndexTuple, error], parallel bool) error {
	limit := sx.earlyLimit()
	if limit == 0 {
		return nil
	}
	return sx.scan(tuples, parallel, func(t IndexTuple) ([]any, bool, error) {
		ev := sx.rowEvaluator(t)
		if sx.sel.Where != nil {
			ok, err := ev.truth(sx.sel.Where)
			if err != nil || !ok {
				return nil, false, err
			}
		}
		row, err := ev.project()
		return row, err == nil, err
	}, func(_ IndexTuple, row []any) (bool, error) {
		if err := out.AddRow(row...); err != nil {
			return false, err
		}
		return limit < 0 || out.Len() < limit, nil
	})
}

// runAggregate filters tuples, partitions them by GROUP BY key, applies
// HAVING and projects one row per partition
func (sx *selectExecution) runAggregate(out *relation.Relation, tuples iter.Seq2[IndexTuple, error], parallel bool) error {
	var (
		keys   []string
		groups = make(map[string][]IndexTuple)
	)
	err := sx.scan(tuples, parallel, func(t IndexTuple) ([]any, bool, error) {
		ev := sx.rowEvaluator(t)
		if sx.sel.Where != nil {
			ok, err := ev.truth(sx.sel.Where)
			if err != nil || !ok {
				return nil, false, err
			}
		}
		key := make([]any, len(sx.sel.GroupBy))
		for i, g := range sx.sel.GroupBy {
			v, err := ev.eval(g)
			if err != nil {
				return nil, false, err
			}
			key[i] = v
		}
		return key, true, nil
	}, func(t IndexTuple, key []any) (bool, error) {
		k := rowKey(key)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], t)
		return true, nil
	})
	if err != nil {
		return err
	}

	// Aggregates without GROUP BY produce one row even for empty input
	if len(keys) == 0 && len(sx.sel.GroupBy) == 0 {
		keys = append(keys, "")
		groups[""] = []IndexTuple{}
	}

	for _, k := range keys {
		ev := sx.groupEvaluator(groups[k])
		if sx.sel.Having != nil {
			ok, err := ev.truth(sx.sel.Having)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		row, err := ev.project()
		if err != nil {
			return err
		}
		if err := out.AddRow(row...); err != nil {
			return err
		}
	}
	return nil
}

// scan drains tuples in batches. eval runs per tuple, on a worker pool when
// parallel is set; its kept results reach emit sequentially in tuple order.
// emit returns false to stop the scan.
func (sx *selectExecution) scan(
	tuples iter.Seq2[IndexTuple, error],
	parallel bool,
	eval func(IndexTuple) ([]any, bool, error),
	emit func(IndexTuple, []any) (bool, error),
) error {
	engine := sx.st.engine
	batch := make([]IndexTuple, 0, engine.batchSize)
	rows := make([][]any, engine.batchSize)
	kept := make([]bool, engine.batchSize)

	flush := func() (bool, error) {
		defer func() { batch = batch[:0] }()
		if err := sx.st.ctx.Err(); err != nil {
			return false, err
		}
		if err := sx.evalBatch(batch, rows, kept, parallel, eval); err != nil {
			return false, err
		}
		for i, t := range batch {
			if !kept[i] {
				continue
			}
			more, err := emit(t, rows[i])
			if err != nil || !more {
				return false, err
			}
		}
		return true, nil
	}

	for t, err := range tuples {
		if err != nil {
			return err
		}
		batch = append(batch, t)
		if len(batch) < cap(batch) {
			continue
		}
		more, err := flush()
		if err != nil || !more {
			return err
		}
	}
	if len(batch) > 0 {
		_, err := flush()
		return err
	}
	return nil
}

// evalBatch fills rows and kept for every tuple of the batch
func (sx *selectExecution) evalBatch(batch []IndexTuple, rows [][]any, kept []bool, parallel bool, eval func(IndexTuple) ([]any, bool, error)) error {
	workers := sx.st.engine.workers
	if !parallel || workers < 2 || len(batch) < 2 {
		for i, t := range batch {
			row, ok, err := eval(t)
			if err != nil {
				return err
			}
			rows[i], kept[i] = row, ok
		}
		return nil
	}

	g, ctx := errgroup.WithContext(sx.st.ctx)
	g.SetLimit(workers)
	chunk := (len(batch) + workers - 1) / workers
	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				row, ok, err := eval(batch[i])
				if err != nil {
					return err
				}
				rows[i], kept[i] = row, ok
			}
			return nil
		})
	}
	return g.Wait()
}

// rowKey builds an equality key for a row of values
func rowKey(values []any) string {
	var key strings.Builder
	for i, v := range values {
		if i > 0 {
			key.WriteString("\x00||\x00") // Use unlikely separator to avoid collisions
		}
		key.WriteString(valueKey(v))
	}
	return key.String()
}

// valueKey renders a value with its type so 1 and "1" stay distinct
func valueKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case []byte:
		return fmt.Sprintf("[]byte:%x", val)
	}
	return fmt.Sprintf("%T:%s", v, ToString(v))
}

// dedupeRows returns r without rows equal to an earlier row
func dedupeRows(r *relation.Relation) (*relation.Relation, error) {
	out := relation.New(r.Columns()...)
	seen := make(map[string]struct{}, r.Len())
	for i := 0; i < r.Len(); i++ {
		row := r.Row(i)
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if err := out.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
