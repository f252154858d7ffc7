package query

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/relation"
)

// Math Functions

func firstType(args []relation.ColumnType) relation.ColumnType {
	if len(args) == 0 {
		return relation.TypeDouble
	}
	return numericResult(args[0])
}

// AbsFunc returns the absolute value of a number, keeping its representation
type AbsFunc struct{}

func (f *AbsFunc) Name() string                                              { return "ABS" }
func (f *AbsFunc) MinArity() int                                             { return 1 }
func (f *AbsFunc) MaxArity() int                                             { return 1 }
func (f *AbsFunc) ReturnType(args []relation.ColumnType) relation.ColumnType { return firstType(args) }
func (f *AbsFunc) Evaluate(args []any) (any, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case int32:
		return max(v, -v), nil
	case int64:
		return max(v, -v), nil
	case decimal.Decimal:
		return v.Abs(), nil
	}
	num, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("ABS: %w", err)
	}
	return math.Abs(num), nil
}

// mathFunc applies a float64 function to one argument
func mathFunc(name string, arg any, fn func(float64) float64) (any, error) {
	if arg == nil {
		return nil, nil
	}
	num, err := toNumber(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fn(num), nil
}

// CeilingFunc returns the smallest integer greater than or equal to a number
type CeilingFunc struct{}

func (f *CeilingFunc) Name() string                                         { return "CEILING" }
func (f *CeilingFunc) MinArity() int                                        { return 1 }
func (f *CeilingFunc) MaxArity() int                                        { return 1 }
func (f *CeilingFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *CeilingFunc) Evaluate(args []any) (any, error) {
	return mathFunc("CEILING", args[0], math.Ceil)
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{}

func (f *FloorFunc) Name() string                                         { return "FLOOR" }
func (f *FloorFunc) MinArity() int                                        { return 1 }
func (f *FloorFunc) MaxArity() int                                        { return 1 }
func (f *FloorFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *FloorFunc) Evaluate(args []any) (any, error) {
	return mathFunc("FLOOR", args[0], math.Floor)
}

// SqrtFunc returns the square root of a non-negative number
type SqrtFunc struct{}

func (f *SqrtFunc) Name() string                                         { return "SQRT" }
func (f *SqrtFunc) MinArity() int                                        { return 1 }
func (f *SqrtFunc) MaxArity() int                                        { return 1 }
func (f *SqrtFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *SqrtFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	num, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("SQRT: %w", err)
	}
	if num < 0 {
		return nil, fmt.Errorf("SQRT: cannot take square root of negative number %v", num)
	}
	return math.Sqrt(num), nil
}

// ExpFunc returns e raised to a power
type ExpFunc struct{}

func (f *ExpFunc) Name() string                                         { return "EXP" }
func (f *ExpFunc) MinArity() int                                        { return 1 }
func (f *ExpFunc) MaxArity() int                                        { return 1 }
func (f *ExpFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *ExpFunc) Evaluate(args []any) (any, error) {
	return mathFunc("EXP", args[0], math.Exp)
}

var trigFuncs = map[string]func(float64) float64{
	"SIN":  math.Sin,
	"COS":  math.Cos,
	"TAN":  math.Tan,
	"ASIN": math.Asin,
	"ACOS": math.Acos,
	"ATAN": math.Atan,
}

// trigFunc implements SIN, COS, TAN and their inverses
type trigFunc struct{ name string }

func (f *trigFunc) Name() string                                         { return f.name }
func (f *trigFunc) MinArity() int                                        { return 1 }
func (f *trigFunc) MaxArity() int                                        { return 1 }
func (f *trigFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *trigFunc) Evaluate(args []any) (any, error) {
	return mathFunc(f.name, args[0], trigFuncs[f.name])
}

// ModFunc returns the remainder of a division: MOD(dividend, divisor)
type ModFunc struct{}

func (f *ModFunc) Name() string  { return "MOD" }
func (f *ModFunc) MinArity() int { return 2 }
func (f *ModFunc) MaxArity() int { return 2 }
func (f *ModFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	return numericResult(args...)
}
func (f *ModFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	return arithmetic(OpMod, args[0], args[1])
}

// PowerFunc raises a base to an exponent: POWER(base, exponent)
type PowerFunc struct{}

func (f *PowerFunc) Name() string                                         { return "POWER" }
func (f *PowerFunc) MinArity() int                                        { return 2 }
func (f *PowerFunc) MaxArity() int                                        { return 2 }
func (f *PowerFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *PowerFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	base, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("POWER: base: %w", err)
	}
	exp, err := toNumber(args[1])
	if err != nil {
		return nil, fmt.Errorf("POWER: exponent: %w", err)
	}
	return math.Pow(base, exp), nil
}

// RoundFunc rounds a number to the specified number of decimal places
type RoundFunc struct{}

func (f *RoundFunc) Name() string                                         { return "ROUND" }
func (f *RoundFunc) MinArity() int                                        { return 1 }
func (f *RoundFunc) MaxArity() int                                        { return 2 }
func (f *RoundFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDouble }
func (f *RoundFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	num, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("ROUND: %w", err)
	}

	// Default to 0 decimal places
	places := int64(0)
	if len(args) == 2 {
		places, err = toInt64(args[1])
		if err != nil {
			return nil, fmt.Errorf("ROUND: decimals argument: %w", err)
		}
	}

	multiplier := math.Pow(10, float64(places))
	return math.Round(num*multiplier) / multiplier, nil
}

// SignFunc returns -1, 0 or 1 according to the sign of a number
type SignFunc struct{}

func (f *SignFunc) Name() string                                         { return "SIGN" }
func (f *SignFunc) MinArity() int                                        { return 1 }
func (f *SignFunc) MaxArity() int                                        { return 1 }
func (f *SignFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeInteger }
func (f *SignFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	num, err := toNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("SIGN: %w", err)
	}
	switch {
	case num > 0:
		return int32(1), nil
	case num < 0:
		return int32(-1), nil
	}
	return int32(0), nil
}
