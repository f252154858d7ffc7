package query

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/vegasq/qoq/relation"
)

const (
	// DefaultParallelThreshold is the estimated number of candidate rows above
	// which WHERE and projection run on a worker pool.
	DefaultParallelThreshold = 10000

	// DefaultBatchSize is the number of candidate rows evaluated per batch.
	DefaultBatchSize = 1024
)

// Engine executes statements. It owns the function registry and the LIKE
// pattern cache shared by every statement it runs, and is safe for
// concurrent use.
type Engine struct {
	functions         *FunctionRegistry
	patterns          *PatternCache
	logger            *zap.Logger
	parallelThreshold int64
	workers           int
	batchSize         int
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for statement tracing
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFunctions replaces the built-in function registry
func WithFunctions(r *FunctionRegistry) Option {
	return func(e *Engine) {
		if r != nil {
			e.functions = r
		}
	}
}

// WithPatternCacheSize sets how many compiled LIKE patterns are kept
func WithPatternCacheSize(n int) Option {
	return func(e *Engine) {
		e.patterns = NewPatternCache(n)
	}
}

// WithParallelThreshold sets the candidate-row estimate above which
// evaluation runs in parallel. A negative value disables parallelism.
func WithParallelThreshold(n int64) Option {
	return func(e *Engine) {
		e.parallelThreshold = n
	}
}

// WithWorkers sets the number of goroutines used for parallel evaluation
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithBatchSize sets the number of candidate rows evaluated per batch
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEngine creates an engine with the built-in functions
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		functions:         NewBuiltinRegistry(),
		patterns:          NewPatternCache(DefaultPatternCacheSize),
		logger:            zap.NewNop(),
		parallelThreshold: DefaultParallelThreshold,
		workers:           runtime.GOMAXPROCS(0),
		batchSize:         DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// DefaultEngine returns a process-wide engine created on first use
func DefaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine()
	})
	return defaultEngine
}

// Functions returns the engine's function registry
func (e *Engine) Functions() *FunctionRegistry {
	return e.functions
}

// Patterns returns the engine's LIKE pattern cache
func (e *Engine) Patterns() *PatternCache {
	return e.patterns
}

// Query parses sql and executes it with positional parameters
func (e *Engine) Query(ctx context.Context, env Environment, sql string, params ...any) (*relation.Relation, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	return e.ExecuteStatement(ctx, env, stmt, params)
}
