package query

import (
	"cmp"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/vegasq/qoq/relation"
)

// Casers carry state and must not be shared between goroutines.
var folders = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

func foldString(s string) string {
	c := folders.Get().(*cases.Caser)
	defer folders.Put(c)
	return c.String(s)
}

// compareFold orders two strings ignoring case.
func compareFold(a, b string) int {
	if strings.EqualFold(a, b) {
		return 0
	}
	return strings.Compare(foldString(a), foldString(b))
}

// Compare orders two values of a column with the declared type t. nil sorts
// before every non-nil value and equals nil. String types compare without
// regard to case, numbers compare natively when both share a representation
// and as float64 otherwise, and BIT/BOOLEAN accept bools or 0/1 numbers.
// Anything else goes through NaturalCompare.
func Compare(t relation.ColumnType, left, right any) (int, error) {
	switch {
	case left == nil && right == nil:
		return 0, nil
	case left == nil:
		return -1, nil
	case right == nil:
		return 1, nil
	}

	switch {
	case t.IsString():
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return compareFold(ls, rs), nil
			}
		}
	case t.IsNumeric():
		if c, ok := compareNumbers(left, right); ok {
			return c, nil
		}
	case t.IsBoolean():
		if lb, ok := asBit(left); ok {
			if rb, ok := asBit(right); ok {
				return compareBool(lb, rb), nil
			}
		}
	}
	return naturalCompare(t, left, right)
}

// compareNumbers compares two numeric values. ok is false if either value
// is not a number.
func compareNumbers(left, right any) (int, bool) {
	switch l := left.(type) {
	case int32:
		if r, ok := right.(int32); ok {
			return cmp.Compare(l, r), true
		}
	case int64:
		if r, ok := right.(int64); ok {
			return cmp.Compare(l, r), true
		}
	case float64:
		if r, ok := right.(float64); ok {
			return compareFloat(l, r), true
		}
	case decimal.Decimal:
		if r, ok := right.(decimal.Decimal); ok {
			return l.Cmp(r), true
		}
	}
	lf, ok := toFloat(left)
	if !ok {
		return 0, false
	}
	rf, ok := toFloat(right)
	if !ok {
		return 0, false
	}
	return compareFloat(lf, rf), true
}

// compareFloat orders NaN before every other number.
func compareFloat(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	}
	return cmp.Compare(a, b)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// toFloat widens any Go numeric value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	}
	return 0, false
}

// asBit reads a bool, or a number equal to 0 or 1, as a bit.
func asBit(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if f, ok := toFloat(v); ok {
		switch f {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}
