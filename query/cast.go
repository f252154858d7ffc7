package query

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/qoq/relation"
)

// NaturalCompare orders two values of unknown column type. Numbers compare
// numerically, strings without regard to case, and mixed string/number,
// string/bool and string/time pairs by converting the string. Pairs that
// cannot be ordered return an ErrComparisonMismatch error.
func NaturalCompare(left, right any) (int, error) {
	return naturalCompare(relation.TypeOther, left, right)
}

func naturalCompare(t relation.ColumnType, left, right any) (int, error) {
	switch {
	case left == nil && right == nil:
		return 0, nil
	case left == nil:
		return -1, nil
	case right == nil:
		return 1, nil
	}

	if c, ok := compareNumbers(left, right); ok {
		return c, nil
	}
	if _, ok := toFloat(left); ok {
		switch right.(type) {
		case string, bool:
			c, err := naturalCompare(t, right, left)
			return -c, err
		}
	}

	switch l := left.(type) {
	case string:
		switch r := right.(type) {
		case string:
			return compareFold(l, r), nil
		case bool:
			if lb, ok := parseBool(l); ok {
				return compareBool(lb, r), nil
			}
		case time.Time:
			if lt, ok := parseTime(l); ok {
				return lt.Compare(r), nil
			}
		case []byte:
			return strings.Compare(l, string(r)), nil
		default:
			if rf, ok := toFloat(right); ok {
				if lf, err := strconv.ParseFloat(strings.TrimSpace(l), 64); err == nil {
					return compareFloat(lf, rf), nil
				}
				return compareFold(l, ToString(right)), nil
			}
		}
	case bool:
		switch r := right.(type) {
		case string:
			if rb, ok := parseBool(r); ok {
				return compareBool(l, rb), nil
			}
		default:
			if rb, ok := asBit(right); ok {
				return compareBool(l, rb), nil
			}
		}
	case time.Time:
		switch r := right.(type) {
		case time.Time:
			return l.Compare(r), nil
		case string:
			if rt, ok := parseTime(r); ok {
				return l.Compare(rt), nil
			}
		}
	case []byte:
		switch r := right.(type) {
		case []byte:
			return bytes.Compare(l, r), nil
		case string:
			return strings.Compare(string(l), r), nil
		}
	}

	return 0, newError(CodeComparisonMismatch, t.String(), "cannot compare %T with %T", left, right)
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	}
	return false, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
	time.TimeOnly,
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToString renders a value the way string functions and concatenation see it.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case decimal.Decimal:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Nanosecond() == 0 {
			return val.Format(time.DateTime)
		}
		return val.Format("2006-01-02 15:04:05.999999999")
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	case decimal.Decimal:
		return val.IntPart(), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to integer", val)
		}
		return toInt64(f)
	}
	if f, ok := toFloat(v); ok {
		if math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v out of integer range", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toNumber(v any) (float64, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", val)
		}
		return f, nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to number", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case int32:
		return decimal.NewFromInt32(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, fmt.Errorf("cannot convert %q to decimal", val)
		}
		return d, nil
	}
	f, err := toNumber(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		if b, ok := parseBool(val); ok {
			return b, nil
		}
		return false, fmt.Errorf("cannot convert %q to boolean", val)
	}
	if f, ok := toFloat(v); ok {
		return f != 0, nil
	}
	return false, fmt.Errorf("cannot convert %T to boolean", v)
}

func toTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		if t, ok := parseTime(val); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("cannot convert %q to date", val)
	}
	if n, err := toInt64(v); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to date", v)
}

// CastValue converts v to the Go representation of column type t.
// nil stays nil.
func CastValue(v any, t relation.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case relation.TypeVarchar, relation.TypeChar:
		return ToString(v), nil
	case relation.TypeInteger:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return nil, fmt.Errorf("%d out of INTEGER range", n)
		}
		return int32(n), nil
	case relation.TypeBigint:
		return toInt64(v)
	case relation.TypeDouble:
		return toNumber(v)
	case relation.TypeDecimal:
		return toDecimal(v)
	case relation.TypeBit, relation.TypeBoolean:
		return toBool(v)
	case relation.TypeDate:
		tm, err := toTime(v)
		if err != nil {
			return nil, err
		}
		y, m, d := tm.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, tm.Location()), nil
	case relation.TypeTime, relation.TypeTimestamp:
		return toTime(v)
	case relation.TypeBinary:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		return []byte(ToString(v)), nil
	default:
		return v, nil
	}
}
