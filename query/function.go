package query

import (
	"slices"
	"strings"
	"sync"

	"github.com/vegasq/qoq/relation"
)

// Function represents a scalar function that can be evaluated
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// ReturnType returns the static result type for the given argument types
	ReturnType(args []relation.ColumnType) relation.ColumnType
	// Evaluate evaluates the function with the given arguments
	Evaluate(args []any) (any, error)
}

// AggregateFunction is a Function that folds a group of rows into one value.
// Aggregate receives one slice of values per argument, each holding one
// value per row of the group.
type AggregateFunction interface {
	Function
	Aggregate(columns [][]any) (any, error)
}

// IsAggregate reports whether f folds groups of rows.
func IsAggregate(f Function) bool {
	_, ok := f.(AggregateFunction)
	return ok
}

// FunctionRegistry manages function lookup and registration
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry creates an empty function registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewBuiltinRegistry creates a registry holding every built-in function
func NewBuiltinRegistry() *FunctionRegistry {
	r := NewFunctionRegistry()
	for _, f := range builtins() {
		r.Register(f)
	}
	return r
}

// Register registers a function, replacing any function with the same name
func (r *FunctionRegistry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToUpper(f.Name())] = f
}

// RegisterFunc registers a scalar function from a plain Go func
func (r *FunctionRegistry) RegisterFunc(name string, minArgs int, returnType relation.ColumnType, fn func(args []any) (any, error)) {
	r.Register(&customFunc{name: strings.ToUpper(name), minArgs: minArgs, returnType: returnType, fn: fn})
}

// RegisterAggregateFunc registers an aggregate function from a plain Go func
func (r *FunctionRegistry) RegisterAggregateFunc(name string, minArgs int, returnType relation.ColumnType, fn func(columns [][]any) (any, error)) {
	r.Register(&customAggregate{
		customFunc: customFunc{name: strings.ToUpper(name), minArgs: minArgs, returnType: returnType},
		fn:         fn,
	})
}

// Lookup retrieves a function by name (case-insensitive)
func (r *FunctionRegistry) Lookup(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[strings.ToUpper(name)]
	if !exists {
		return nil, newError(CodeUnknownFunction, name, "function is not registered")
	}
	return f, nil
}

// Unregister removes a function; it reports whether one was registered
func (r *FunctionRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToUpper(name)
	_, exists := r.functions[key]
	delete(r.functions, key)
	return exists
}

// Names returns the registered function names in sorted order
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func builtins() []Function {
	return []Function{
		// String functions
		&UpperFunc{name: "UPPER"},
		&UpperFunc{name: "UCASE"},
		&LowerFunc{name: "LOWER"},
		&LowerFunc{name: "LCASE"},
		&ConcatFunc{},
		&LengthFunc{},
		&TrimFunc{},
		&LTrimFunc{},
		&RTrimFunc{},
		&LeftFunc{},
		&RightFunc{},
		&SubstringFunc{},
		&ReplaceFunc{},
		&ReverseFunc{},

		// Math functions
		&AbsFunc{},
		&CeilingFunc{},
		&FloorFunc{},
		&ModFunc{},
		&PowerFunc{},
		&SqrtFunc{},
		&ExpFunc{},
		&RoundFunc{},
		&SignFunc{},
		&trigFunc{name: "SIN"},
		&trigFunc{name: "COS"},
		&trigFunc{name: "TAN"},
		&trigFunc{name: "ASIN"},
		&trigFunc{name: "ACOS"},
		&trigFunc{name: "ATAN"},

		// Date/time functions
		&NowFunc{name: "NOW"},
		&NowFunc{name: "CURRENT_TIMESTAMP"},
		&CurrentDateFunc{},
		&DateTruncFunc{},
		&DatePartFunc{},
		&DateAddFunc{name: "DATE_ADD", sign: 1},
		&DateAddFunc{name: "DATE_SUB", sign: -1},
		&DateDiffFunc{},
		&partFunc{name: "YEAR"},
		&partFunc{name: "MONTH"},
		&partFunc{name: "DAY"},
		&partFunc{name: "HOUR"},
		&partFunc{name: "MINUTE"},
		&partFunc{name: "SECOND"},

		// Conversion and conditional functions
		&CastFunc{name: "CAST"},
		&CastFunc{name: "CONVERT"},
		&CoalesceFunc{},
		&IsNullFunc{},
		&NullIfFunc{},

		// Aggregate functions
		&CountFunc{},
		&MinMaxFunc{name: "MIN", sign: -1},
		&MinMaxFunc{name: "MAX", sign: 1},
		&SumFunc{},
		&AvgFunc{},
		&GroupConcatFunc{name: "GROUP_CONCAT"},
		&GroupConcatFunc{name: "STRING_AGG"},
	}
}

// customFunc adapts a Go func registered through RegisterFunc
type customFunc struct {
	name       string
	minArgs    int
	returnType relation.ColumnType
	fn         func(args []any) (any, error)
}

func (f *customFunc) Name() string                                         { return f.name }
func (f *customFunc) MinArity() int                                        { return f.minArgs }
func (f *customFunc) MaxArity() int                                        { return -1 }
func (f *customFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return f.returnType }
func (f *customFunc) Evaluate(args []any) (any, error)                     { return f.fn(args) }

// customAggregate adapts a Go func registered through RegisterAggregateFunc
type customAggregate struct {
	customFunc
	fn func(columns [][]any) (any, error)
}

func (f *customAggregate) Aggregate(columns [][]any) (any, error) { return f.fn(columns) }

func (f *customAggregate) Evaluate(args []any) (any, error) {
	return f.fn(singleRow(args))
}

// singleRow turns one row of arguments into aggregate columns
func singleRow(args []any) [][]any {
	columns := make([][]any, len(args))
	for i, a := range args {
		columns[i] = []any{a}
	}
	return columns
}

// checkArity validates the argument count of a call
func checkArity(f Function, n int) error {
	if n < f.MinArity() || (f.MaxArity() >= 0 && n > f.MaxArity()) {
		if f.MaxArity() < 0 {
			return newError(CodeEvaluation, f.Name(), "expected at least %d arguments, got %d", f.MinArity(), n)
		}
		if f.MinArity() == f.MaxArity() {
			return newError(CodeEvaluation, f.Name(), "expected %d arguments, got %d", f.MinArity(), n)
		}
		return newError(CodeEvaluation, f.Name(), "expected %d to %d arguments, got %d", f.MinArity(), f.MaxArity(), n)
	}
	return nil
}

func anyNil(args []any) bool {
	return slices.Contains(args, nil)
}

// numericResult widens numeric argument types the way arithmetic does
func numericResult(types ...relation.ColumnType) relation.ColumnType {
	result := relation.TypeInteger
	for _, t := range types {
		switch t {
		case relation.TypeDecimal:
			result = relation.TypeDecimal
		case relation.TypeDouble:
			if result != relation.TypeDecimal {
				result = relation.TypeDouble
			}
		case relation.TypeBigint:
			if result == relation.TypeInteger {
				result = relation.TypeBigint
			}
		case relation.TypeInteger, relation.TypeNull:
		default:
			if result != relation.TypeDecimal {
				result = relation.TypeDouble
			}
		}
	}
	return result
}
