package query

import (
	"fmt"

	"github.com/vegasq/qoq/relation"
)

// Type Conversion and Conditional Functions

// CastFunc converts a value to the type named by its second argument:
// CAST(value, 'integer') or CONVERT(value, 'varchar'). The parser turns
// CAST(x AS t) and CONVERT(x, t) into a CastExpr; this form serves
// programmatic calls and type names computed at runtime.
type CastFunc struct{ name string }

func (f *CastFunc) Name() string                                         { return f.name }
func (f *CastFunc) MinArity() int                                        { return 2 }
func (f *CastFunc) MaxArity() int                                        { return 2 }
func (f *CastFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeOther }
func (f *CastFunc) Evaluate(args []any) (any, error) {
	if args[1] == nil {
		return nil, fmt.Errorf("%s: type name is NULL", f.name)
	}
	t, err := relation.ParseColumnType(ToString(args[1]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	v, err := CastValue(args[0], t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	return v, nil
}

// CoalesceFunc returns the first non-null argument
type CoalesceFunc struct{}

func (f *CoalesceFunc) Name() string  { return "COALESCE" }
func (f *CoalesceFunc) MinArity() int { return 1 }
func (f *CoalesceFunc) MaxArity() int { return -1 }
func (f *CoalesceFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	return firstKnownType(args)
}
func (f *CoalesceFunc) Evaluate(args []any) (any, error) {
	for _, arg := range args {
		if arg != nil {
			return arg, nil
		}
	}
	return nil, nil
}

// IsNullFunc returns its second argument when the first is null: ISNULL(value, replacement)
type IsNullFunc struct{}

func (f *IsNullFunc) Name() string  { return "ISNULL" }
func (f *IsNullFunc) MinArity() int { return 2 }
func (f *IsNullFunc) MaxArity() int { return 2 }
func (f *IsNullFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	return firstKnownType(args)
}
func (f *IsNullFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return args[1], nil
	}
	return args[0], nil
}

// NullIfFunc returns null when both arguments are equal, else the first
type NullIfFunc struct{}

func (f *NullIfFunc) Name() string  { return "NULLIF" }
func (f *NullIfFunc) MinArity() int { return 2 }
func (f *NullIfFunc) MaxArity() int { return 2 }
func (f *NullIfFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	return firstKnownType(args[:1])
}
func (f *NullIfFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	c, err := Compare(relation.TypeOf(args[0]), args[0], args[1])
	if err != nil {
		return nil, fmt.Errorf("NULLIF: %w", err)
	}
	if c == 0 {
		return nil, nil
	}
	return args[0], nil
}

func firstKnownType(args []relation.ColumnType) relation.ColumnType {
	for _, t := range args {
		if t != relation.TypeNull {
			return t
		}
	}
	return relation.TypeNull
}
