package query

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/relation"
)

// Aggregate Functions
//
// Each aggregate ignores NULL inputs. Over zero non-null inputs COUNT
// returns 0 and the others return NULL.

// CountFunc counts non-null values; COUNT(*) counts rows
type CountFunc struct{}

func (f *CountFunc) Name() string                                         { return "COUNT" }
func (f *CountFunc) MinArity() int                                        { return 1 }
func (f *CountFunc) MaxArity() int                                        { return 1 }
func (f *CountFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeBigint }
func (f *CountFunc) Evaluate(args []any) (any, error)                     { return f.Aggregate(singleRow(args)) }
func (f *CountFunc) Aggregate(columns [][]any) (any, error) {
	var n int64
	for _, v := range columns[0] {
		if v != nil {
			n++
		}
	}
	return n, nil
}

// MinMaxFunc returns the smallest (sign -1) or largest (sign 1) value
type MinMaxFunc struct {
	name string
	sign int
}

func (f *MinMaxFunc) Name() string  { return f.name }
func (f *MinMaxFunc) MinArity() int { return 1 }
func (f *MinMaxFunc) MaxArity() int { return 1 }
func (f *MinMaxFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	return firstKnownType(args)
}
func (f *MinMaxFunc) Evaluate(args []any) (any, error) { return f.Aggregate(singleRow(args)) }
func (f *MinMaxFunc) Aggregate(columns [][]any) (any, error) {
	var best any
	for _, v := range columns[0] {
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		c, err := Compare(relation.TypeOf(best), v, best)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		if c*f.sign > 0 {
			best = v
		}
	}
	return best, nil
}

// SumFunc adds values. Integers sum to BIGINT, decimals stay exact,
// anything else sums as DOUBLE.
type SumFunc struct{}

func (f *SumFunc) Name() string  { return "SUM" }
func (f *SumFunc) MinArity() int { return 1 }
func (f *SumFunc) MaxArity() int { return 1 }
func (f *SumFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	t := numericResult(args...)
	if t == relation.TypeInteger {
		return relation.TypeBigint
	}
	return t
}
func (f *SumFunc) Evaluate(args []any) (any, error) { return f.Aggregate(singleRow(args)) }
func (f *SumFunc) Aggregate(columns [][]any) (any, error) {
	s, _, err := sumValues("SUM", columns[0])
	return s, err
}

// sumValues returns the sum and count of the non-null values
func sumValues(name string, values []any) (any, int64, error) {
	var (
		count    int64
		intSum   int64
		floatSum float64
		decSum   decimal.Decimal
		kind     = relation.TypeBigint
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		count++
		switch n := v.(type) {
		case int32:
			intSum += int64(n)
			continue
		case int64:
			intSum += n
			continue
		case int:
			intSum += int64(n)
			continue
		case decimal.Decimal:
			kind = relation.TypeDecimal
			decSum = decSum.Add(n)
			continue
		}
		num, err := toNumber(v)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", name, err)
		}
		if kind == relation.TypeBigint {
			kind = relation.TypeDouble
		}
		floatSum += num
	}
	if count == 0 {
		return nil, 0, nil
	}
	switch kind {
	case relation.TypeDecimal:
		return decSum.Add(decimal.NewFromInt(intSum)).Add(decimal.NewFromFloat(floatSum)), count, nil
	case relation.TypeDouble:
		return floatSum + float64(intSum), count, nil
	}
	return intSum, count, nil
}

// AvgFunc returns the arithmetic mean of the values
type AvgFunc struct{}

func (f *AvgFunc) Name() string  { return "AVG" }
func (f *AvgFunc) MinArity() int { return 1 }
func (f *AvgFunc) MaxArity() int { return 1 }
func (f *AvgFunc) ReturnType(args []relation.ColumnType) relation.ColumnType {
	if numericResult(args...) == relation.TypeDecimal {
		return relation.TypeDecimal
	}
	return relation.TypeDouble
}
func (f *AvgFunc) Evaluate(args []any) (any, error) { return f.Aggregate(singleRow(args)) }
func (f *AvgFunc) Aggregate(columns [][]any) (any, error) {
	sum, count, err := sumValues("AVG", columns[0])
	if err != nil || count == 0 {
		return nil, err
	}
	switch s := sum.(type) {
	case decimal.Decimal:
		return s.Div(decimal.NewFromInt(count)), nil
	case int64:
		return float64(s) / float64(count), nil
	default:
		return s.(float64) / float64(count), nil
	}
}

// GroupConcatFunc joins values with a separator: GROUP_CONCAT(value [, separator])
// and STRING_AGG(value, separator). The default separator is a comma.
type GroupConcatFunc struct{ name string }

func (f *GroupConcatFunc) Name() string                                         { return f.name }
func (f *GroupConcatFunc) MinArity() int                                        { return 1 }
func (f *GroupConcatFunc) MaxArity() int                                        { return 2 }
func (f *GroupConcatFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *GroupConcatFunc) Evaluate(args []any) (any, error)                     { return f.Aggregate(singleRow(args)) }
func (f *GroupConcatFunc) Aggregate(columns [][]any) (any, error) {
	sep := ","
	if len(columns) > 1 && len(columns[1]) > 0 && columns[1][0] != nil {
		sep = ToString(columns[1][0])
	}
	parts := make([]string, 0, len(columns[0]))
	for _, v := range columns[0] {
		if v != nil {
			parts = append(parts, ToString(v))
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return strings.Join(parts, sep), nil
}
