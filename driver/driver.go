package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vegasq/qoq/query"
)

// DriverName is the name the driver registers with database/sql
const DriverName = "qoq"

var (
	// ErrUnknownCatalog is returned when a DSN names no registered catalog
	ErrUnknownCatalog = errors.New("qoq: unknown catalog")

	// ErrReadOnly is returned for Exec; only queries are supported
	ErrReadOnly = errors.New("qoq: statements are read-only")

	// ErrNoTransactions is returned by Begin
	ErrNoTransactions = errors.New("qoq: transactions are not supported")

	// ErrNamedParameter is returned when an argument is bound by name
	ErrNamedParameter = errors.New("qoq: only positional parameters are supported")
)

func init() {
	sql.Register(DriverName, &Driver{})
}

var (
	catalogsMu sync.RWMutex
	catalogs   = make(map[string]query.Environment)
)

// RegisterCatalog makes env available to sql.Open under dsn
func RegisterCatalog(dsn string, env query.Environment) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[dsn] = env
}

// UnregisterCatalog removes a catalog registered with RegisterCatalog
func UnregisterCatalog(dsn string) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	delete(catalogs, dsn)
}

// Driver implements driver.Driver and driver.DriverContext. The DSN is the
// name of a catalog registered with RegisterCatalog.
type Driver struct{}

// Open returns a connection to the catalog registered under dsn
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// OpenConnector returns a connector for the catalog registered under dsn
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	catalogsMu.RLock()
	env, ok := catalogs[dsn]
	catalogsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCatalog, dsn)
	}
	return NewConnector(env), nil
}

// Connector opens connections bound to one environment
type Connector struct {
	env     query.Environment
	engine  *query.Engine
	log     *zap.Logger
	maxRows int
}

// ConnectorOption configures a Connector
type ConnectorOption func(*Connector)

// WithEngine sets the engine used to execute statements. The default is
// query.DefaultEngine().
func WithEngine(e *query.Engine) ConnectorOption {
	return func(c *Connector) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithLogger sets the logger for connection events
func WithLogger(l *zap.Logger) ConnectorOption {
	return func(c *Connector) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxRows caps every result set. Zero means no cap.
func WithMaxRows(n int) ConnectorOption {
	return func(c *Connector) {
		c.maxRows = n
	}
}

// NewConnector creates a connector for sql.OpenDB
func NewConnector(env query.Environment, opts ...ConnectorOption) *Connector {
	c := &Connector{
		env:    env,
		engine: query.DefaultEngine(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens a connection. It never blocks.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newConn(c), nil
}

// Driver returns the driver the connector belongs to
func (c *Connector) Driver() driver.Driver {
	return &Driver{}
}
