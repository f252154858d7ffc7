package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vegasq/qoq/relation"
)

// ExecuteStatement runs a parsed statement against the tables env resolves.
// params bind the statement's ? placeholders in order. The input relations
// are never modified; on error no partial result is returned.
func (e *Engine) ExecuteStatement(ctx context.Context, env Environment, stmt *SelectStatement, params []any, opts ...ExecOption) (*relation.Relation, error) {
	if stmt == nil || stmt.Select == nil {
		return nil, newError(CodeSyntax, "", "empty statement")
	}
	if env == nil {
		env = NewCatalog()
	}
	if len(params) < stmt.Params {
		return nil, newError(CodeParameter, "?", "statement has %d parameters, %d given", stmt.Params, len(params))
	}

	id := uuid.New()
	st := &statementExecution{
		ctx:        ctx,
		engine:     e,
		env:        env,
		stmt:       stmt,
		params:     params,
		subqueries: newSubqueryCache(),
		log:        e.logger.With(zap.Stringer("execution", id)),
	}
	for _, opt := range opts {
		opt(st)
	}

	start := time.Now()
	out, err := st.run()
	if err != nil {
		st.log.Debug("statement failed", zap.Error(err))
		return nil, err
	}
	st.log.Debug("statement executed",
		zap.Int("rows", out.Len()),
		zap.Int("columns", out.Width()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// run executes the statement: primary select, union branches, ORDER BY and
// the final limit
func (st *statementExecution) run() (*relation.Relation, error) {
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}

	target, err := st.executeSelect(st.stmt.Select, true)
	if err != nil {
		return nil, err
	}

	target, err = st.runUnions(target)
	if err != nil {
		return nil, err
	}

	if len(st.order) > 0 {
		if err := st.sort(target); err != nil {
			return nil, err
		}
		// hidden order-only columns were appended after the canonical ones
		for i := target.Width() - 1; i >= len(st.columns); i-- {
			if err := target.DeleteColumn(target.Column(i).Name); err != nil {
				return nil, fmt.Errorf("failed to drop order-by column: %w", err)
			}
		}
	}

	limit := -1
	switch {
	case st.maxRows > 0:
		limit = st.maxRows
	case st.stmt.Limit != nil:
		limit = int(*st.stmt.Limit)
	}
	if limit >= 0 {
		target.Truncate(limit)
	}
	return target, nil
}

// runUnions appends every union branch to target, deduplicating right after
// the last UNION DISTINCT branch
func (st *statementExecution) runUnions(target *relation.Relation) (*relation.Relation, error) {
	lastDistinct := -1
	for i, u := range st.stmt.Unions {
		if !u.All {
			lastDistinct = i
		}
	}

	for i, u := range st.stmt.Unions {
		if err := st.ctx.Err(); err != nil {
			return nil, err
		}
		branch, err := st.executeSelect(u.Select, false)
		if err != nil {
			return nil, fmt.Errorf("failed to execute union branch %d: %w", i+1, err)
		}
		if branch.Width() != len(st.columns) {
			return nil, newError(CodeUnionShape, u.Select.String(),
				"union branch has %d columns, the first select has %d", branch.Width(), len(st.columns))
		}
		for r := 0; r < branch.Len(); r++ {
			row, err := st.canonicalRow(branch.Row(r))
			if err != nil {
				return nil, err
			}
			if err := target.AddRow(row...); err != nil {
				return nil, err
			}
		}
		if i == lastDistinct {
			deduped, err := dedupeRows(target)
			if err != nil {
				return nil, err
			}
			st.log.Debug("deduplicated union",
				zap.Int("branch", i+1),
				zap.Int("before", target.Len()),
				zap.Int("after", deduped.Len()),
			)
			target = deduped
		}
	}
	return target, nil
}

// canonicalRow casts a union branch row to the canonical column types
func (st *statementExecution) canonicalRow(src []any) ([]any, error) {
	row := make([]any, len(src))
	for i, v := range src {
		cast, err := CastValue(v, st.columns[i].Type)
		if err != nil {
			return nil, newError(CodeUnionShape, st.columns[i].Name,
				"union value %s does not fit %s: %v", ToString(v), st.columns[i].Type, err)
		}
		row[i] = cast
	}
	return row, nil
}

// sort orders target by the resolved ORDER BY keys. The sort is stable so
// rows equal on every key keep their relative order.
func (st *statementExecution) sort(target *relation.Relation) error {
	var sortErr error
	target.SortStable(func(a, b []any) int {
		if sortErr != nil {
			return 0
		}
		for _, key := range st.order {
			c, err := Compare(key.typ, a[key.column], b[key.column])
			if err != nil {
				sortErr = err
				return 0
			}
			if c != 0 {
				if key.desc {
					return -c
				}
				return c
			}
		}
		return 0
	})
	if sortErr != nil {
		return fmt.Errorf("failed to sort result: %w", sortErr)
	}
	return nil
}
