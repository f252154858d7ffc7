package driver

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vegasq/qoq/query"
	"github.com/vegasq/qoq/relation"
)

var errConnClosed = errors.New("qoq: connection is closed")

// conn is one logical connection. It holds no resources beyond its id.
type conn struct {
	id        uuid.UUID
	connector *Connector
	log       *zap.Logger
	closed    atomic.Bool
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
	_ driver.Validator          = (*conn)(nil)
)

func newConn(c *Connector) *conn {
	id := uuid.New()
	cn := &conn{
		id:        id,
		connector: c,
		log:       c.log.With(zap.Stringer("conn", id)),
	}
	cn.log.Debug("connection opened")
	return cn
}

// Prepare parses sql into a reusable statement
func (c *conn) Prepare(sql string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), sql)
}

// PrepareContext parses sql into a reusable statement
func (c *conn) PrepareContext(ctx context.Context, sql string) (driver.Stmt, error) {
	if c.closed.Load() {
		return nil, driver.ErrBadConn
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed, err := query.Parse(sql)
	if err != nil {
		return nil, err
	}
	return &stmt{conn: c, parsed: parsed}, nil
}

// QueryContext parses and runs sql without an explicit prepare
func (c *conn) QueryContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Rows, error) {
	if c.closed.Load() {
		return nil, driver.ErrBadConn
	}
	parsed, err := query.Parse(sql)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, parsed, args)
}

// query executes parsed on a separate goroutine so a done context can
// return before execution ends
func (c *conn) query(ctx context.Context, parsed *query.SelectStatement, args []driver.NamedValue) (driver.Rows, error) {
	params, err := bindParams(args)
	if err != nil {
		return nil, err
	}

	type result struct {
		rel *relation.Relation
		err error
	}
	done := make(chan result, 1)
	cn := c.connector
	go func() {
		rel, err := cn.engine.ExecuteStatement(ctx, cn.env, parsed, params, query.WithMaxRows(cn.maxRows))
		done <- result{rel, err}
	}()

	select {
	case <-ctx.Done():
		c.log.Debug("query abandoned", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return newRows(r.rel), nil
	}
}

// bindParams orders arguments by ordinal
func bindParams(args []driver.NamedValue) ([]any, error) {
	params := make([]any, len(args))
	for _, a := range args {
		if a.Name != "" {
			return nil, ErrNamedParameter
		}
		params[a.Ordinal-1] = a.Value
	}
	return params, nil
}

// CheckNamedValue passes every argument through unchanged so values such as
// int32 and decimal.Decimal reach the engine with their own types
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nv.Name != "" {
		return ErrNamedParameter
	}
	return nil
}

// Begin always fails; see BeginTx
func (c *conn) Begin() (driver.Tx, error) {
	return nil, ErrNoTransactions
}

// BeginTx always fails: statements are read-only and there is nothing to
// commit
func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, ErrNoTransactions
}

// Ping reports whether the connection is open
func (c *conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return driver.ErrBadConn
	}
	return ctx.Err()
}

// IsValid lets database/sql drop closed connections from its pool
func (c *conn) IsValid() bool {
	return !c.closed.Load()
}

// Close marks the connection closed
func (c *conn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.log.Debug("connection closed")
	}
	return nil
}

// stmt is a parsed statement bound to a connection
type stmt struct {
	conn   *conn
	parsed *query.SelectStatement
}

var (
	_ driver.Stmt             = (*stmt)(nil)
	_ driver.StmtQueryContext = (*stmt)(nil)
	_ driver.StmtExecContext  = (*stmt)(nil)
)

// NumInput returns the number of ? placeholders
func (s *stmt) NumInput() int {
	return s.parsed.Params
}

// Close is a no-op; a parsed statement holds no resources
func (s *stmt) Close() error {
	return nil
}

// Exec always fails with ErrReadOnly
func (s *stmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, ErrReadOnly
}

// ExecContext always fails with ErrReadOnly
func (s *stmt) ExecContext(context.Context, []driver.NamedValue) (driver.Result, error) {
	return nil, ErrReadOnly
}

// Query runs the statement with positional values
func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return s.QueryContext(context.Background(), named)
}

// QueryContext runs the statement
func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if s.conn.closed.Load() {
		return nil, driver.ErrBadConn
	}
	return s.conn.query(ctx, s.parsed, args)
}
