package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

func newQueryCommand(a *app) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run one SELECT statement",
		Long: `Run one SELECT statement against the registered tables.

The statement is read from standard input when omitted or given as "-".
Each --param binds the next ? placeholder, in order.`,
		Example: `  qoq query -t people=data/*.parquet "SELECT name FROM people WHERE age > ?" -p 30
  qoq query -t fixtures.yaml -f csv < report.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readStatement(cmd, args)
			if err != nil {
				return err
			}
			values := make([]any, len(params))
			for i, p := range params {
				values[i] = parseParam(p)
			}
			return a.run(cmd.Context(), cmd, sql, values)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "positional parameter value (repeatable)")
	return cmd
}

func readStatement(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read statement: %w", err)
	}
	sql := strings.TrimSuffix(strings.TrimSpace(string(b)), ";")
	if sql == "" {
		return "", fmt.Errorf("no statement given")
	}
	return sql, nil
}

// run executes sql and writes the result with the configured formatter.
func (a *app) run(ctx context.Context, cmd *cobra.Command, sql string, params []any) error {
	rel, err := a.execute(ctx, sql, params)
	if err != nil {
		return err
	}
	f, err := a.formatter(cmd)
	if err != nil {
		return err
	}
	return f.Format(rel)
}

func (a *app) execute(ctx context.Context, sql string, params []any) (*relation.Relation, error) {
	stmt, err := query.Parse(sql)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rel, err := a.engine.ExecuteStatement(ctx, a.catalog, stmt, params, query.WithMaxRows(a.cfg.Engine.MaxRows))
	if err != nil {
		return nil, err
	}
	a.log.Info("query executed", "rows", rel.Len(), "elapsed", time.Since(start))
	return rel, nil
}

// parseParam reads a parameter the way a literal would be written: NULL,
// booleans, integers, floats, otherwise a string. Integers bind as BIGINT.
func parseParam(s string) any {
	switch strings.ToUpper(s) {
	case "NULL":
		return nil
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
