package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/vegasq/qoq/relation"
)

// Date/Time Functions

// NowFunc returns the current timestamp (NOW, CURRENT_TIMESTAMP)
type NowFunc struct{ name string }

func (f *NowFunc) Name() string                                         { return f.name }
func (f *NowFunc) MinArity() int                                        { return 0 }
func (f *NowFunc) MaxArity() int                                        { return 0 }
func (f *NowFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeTimestamp }
func (f *NowFunc) Evaluate([]any) (any, error) {
	return time.Now(), nil
}

// CurrentDateFunc returns the current date at midnight
type CurrentDateFunc struct{}

func (f *CurrentDateFunc) Name() string                                         { return "CURRENT_DATE" }
func (f *CurrentDateFunc) MinArity() int                                        { return 0 }
func (f *CurrentDateFunc) MaxArity() int                                        { return 0 }
func (f *CurrentDateFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeDate }
func (f *CurrentDateFunc) Evaluate([]any) (any, error) {
	return truncateTime(time.Now(), "day")
}

func truncateTime(t time.Time, unit string) (time.Time, error) {
	switch strings.ToLower(unit) {
	case "year":
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location()), nil
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()), nil
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	case "hour":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()), nil
	case "minute":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location()), nil
	}
	return time.Time{}, fmt.Errorf("invalid unit: %s", unit)
}

func datePart(t time.Time, unit string) (int32, error) {
	switch strings.ToLower(unit) {
	case "year":
		return int32(t.Year()), nil
	case "month":
		return int32(t.Month()), nil
	case "day":
		return int32(t.Day()), nil
	case "hour":
		return int32(t.Hour()), nil
	case "minute":
		return int32(t.Minute()), nil
	case "second":
		return int32(t.Second()), nil
	case "dayofweek":
		return int32(t.Weekday()) + 1, nil
	case "dayofyear":
		return int32(t.YearDay()), nil
	}
	return 0, fmt.Errorf("invalid unit: %s", unit)
}

// DateTruncFunc truncates a date to the specified unit
type DateTruncFunc struct{}

func (f *DateTruncFunc) Name() string                                         { return "DATE_TRUNC" }
func (f *DateTruncFunc) MinArity() int                                        { return 2 }
func (f *DateTruncFunc) MaxArity() int                                        { return 2 }
func (f *DateTruncFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeTimestamp }
func (f *DateTruncFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	date, err := toTime(args[1])
	if err != nil {
		return nil, err
	}
	return truncateTime(date, ToString(args[0]))
}

// DatePartFunc extracts a part of a date
type DatePartFunc struct{}

func (f *DatePartFunc) Name() string                                         { return "DATE_PART" }
func (f *DatePartFunc) MinArity() int                                        { return 2 }
func (f *DatePartFunc) MaxArity() int                                        { return 2 }
func (f *DatePartFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeInteger }
func (f *DatePartFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	date, err := toTime(args[1])
	if err != nil {
		return nil, err
	}
	return datePart(date, ToString(args[0]))
}

// partFunc extracts one fixed part of a date (YEAR, MONTH, DAY, HOUR, MINUTE, SECOND)
type partFunc struct{ name string }

func (f *partFunc) Name() string                                         { return f.name }
func (f *partFunc) MinArity() int                                        { return 1 }
func (f *partFunc) MaxArity() int                                        { return 1 }
func (f *partFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeInteger }
func (f *partFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	date, err := toTime(args[0])
	if err != nil {
		return nil, err
	}
	return datePart(date, f.name)
}

// DateAddFunc adds an interval to a date: DATE_ADD(date, amount, unit).
// DATE_SUB is the same with the amount negated.
type DateAddFunc struct {
	name string
	sign int
}

func (f *DateAddFunc) Name() string                                         { return f.name }
func (f *DateAddFunc) MinArity() int                                        { return 3 }
func (f *DateAddFunc) MaxArity() int                                        { return 3 }
func (f *DateAddFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeTimestamp }
func (f *DateAddFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	date, err := toTime(args[0])
	if err != nil {
		return nil, err
	}
	amount, err := toInt64(args[1])
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if amount > 1<<30 || amount < -(1<<30) {
		return nil, fmt.Errorf("amount out of valid range")
	}
	n := int(amount) * f.sign

	switch unit := strings.ToLower(ToString(args[2])); unit {
	case "year":
		return date.AddDate(n, 0, 0), nil
	case "month":
		return date.AddDate(0, n, 0), nil
	case "day":
		return date.AddDate(0, 0, n), nil
	case "hour":
		return date.Add(time.Duration(n) * time.Hour), nil
	case "minute":
		return date.Add(time.Duration(n) * time.Minute), nil
	case "second":
		return date.Add(time.Duration(n) * time.Second), nil
	default:
		return nil, fmt.Errorf("invalid unit: %s", unit)
	}
}

// DateDiffFunc returns the difference between two dates in whole days
type DateDiffFunc struct{}

func (f *DateDiffFunc) Name() string                                         { return "DATE_DIFF" }
func (f *DateDiffFunc) MinArity() int                                        { return 2 }
func (f *DateDiffFunc) MaxArity() int                                        { return 2 }
func (f *DateDiffFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeBigint }
func (f *DateDiffFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	date1, err := toTime(args[0])
	if err != nil {
		return nil, fmt.Errorf("first date: %w", err)
	}
	date2, err := toTime(args[1])
	if err != nil {
		return nil, fmt.Errorf("second date: %w", err)
	}
	// partial days count as 0
	return int64(date1.Sub(date2).Hours() / 24), nil
}
