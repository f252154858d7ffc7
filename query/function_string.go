package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/qoq/relation"
)

// String Functions

// UpperFunc converts a string to uppercase (UPPER, UCASE)
type UpperFunc struct{ name string }

func (f *UpperFunc) Name() string                                         { return f.name }
func (f *UpperFunc) MinArity() int                                        { return 1 }
func (f *UpperFunc) MaxArity() int                                        { return 1 }
func (f *UpperFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *UpperFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return strings.ToUpper(ToString(args[0])), nil
}

// LowerFunc converts a string to lowercase (LOWER, LCASE)
type LowerFunc struct{ name string }

func (f *LowerFunc) Name() string                                         { return f.name }
func (f *LowerFunc) MinArity() int                                        { return 1 }
func (f *LowerFunc) MaxArity() int                                        { return 1 }
func (f *LowerFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *LowerFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return strings.ToLower(ToString(args[0])), nil
}

// ConcatFunc concatenates its arguments; NULL arguments are skipped
type ConcatFunc struct{}

func (f *ConcatFunc) Name() string                                         { return "CONCAT" }
func (f *ConcatFunc) MinArity() int                                        { return 1 }
func (f *ConcatFunc) MaxArity() int                                        { return -1 }
func (f *ConcatFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *ConcatFunc) Evaluate(args []any) (any, error) {
	var builder strings.Builder
	for _, arg := range args {
		builder.WriteString(ToString(arg))
	}
	return builder.String(), nil
}

// LengthFunc returns the number of characters in a string
type LengthFunc struct{}

func (f *LengthFunc) Name() string                                         { return "LENGTH" }
func (f *LengthFunc) MinArity() int                                        { return 1 }
func (f *LengthFunc) MaxArity() int                                        { return 1 }
func (f *LengthFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeInteger }
func (f *LengthFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return int32(len([]rune(ToString(args[0])))), nil
}

// TrimFunc trims whitespace from both ends of a string
type TrimFunc struct{}

func (f *TrimFunc) Name() string                                         { return "TRIM" }
func (f *TrimFunc) MinArity() int                                        { return 1 }
func (f *TrimFunc) MaxArity() int                                        { return 1 }
func (f *TrimFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *TrimFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return strings.TrimSpace(ToString(args[0])), nil
}

// LTrimFunc trims leading whitespace
type LTrimFunc struct{}

func (f *LTrimFunc) Name() string                                         { return "LTRIM" }
func (f *LTrimFunc) MinArity() int                                        { return 1 }
func (f *LTrimFunc) MaxArity() int                                        { return 1 }
func (f *LTrimFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *LTrimFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return strings.TrimLeft(ToString(args[0]), " \t\r\n"), nil
}

// RTrimFunc trims trailing whitespace
type RTrimFunc struct{}

func (f *RTrimFunc) Name() string                                         { return "RTRIM" }
func (f *RTrimFunc) MinArity() int                                        { return 1 }
func (f *RTrimFunc) MaxArity() int                                        { return 1 }
func (f *RTrimFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *RTrimFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return strings.TrimRight(ToString(args[0]), " \t\r\n"), nil
}

// LeftFunc returns the first n characters of a string
type LeftFunc struct{}

func (f *LeftFunc) Name() string                                         { return "LEFT" }
func (f *LeftFunc) MinArity() int                                        { return 2 }
func (f *LeftFunc) MaxArity() int                                        { return 2 }
func (f *LeftFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *LeftFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	runes := []rune(ToString(args[0]))
	n, err := toInt64(args[1])
	if err != nil {
		return nil, fmt.Errorf("LEFT: %w", err)
	}
	n = max(0, min(n, int64(len(runes))))
	return string(runes[:n]), nil
}

// RightFunc returns the last n characters of a string
type RightFunc struct{}

func (f *RightFunc) Name() string                                         { return "RIGHT" }
func (f *RightFunc) MinArity() int                                        { return 2 }
func (f *RightFunc) MaxArity() int                                        { return 2 }
func (f *RightFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *RightFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	runes := []rune(ToString(args[0]))
	n, err := toInt64(args[1])
	if err != nil {
		return nil, fmt.Errorf("RIGHT: %w", err)
	}
	n = max(0, min(n, int64(len(runes))))
	return string(runes[int64(len(runes))-n:]), nil
}

// SubstringFunc extracts a substring (1-indexed): SUBSTRING(str, start [, length])
type SubstringFunc struct{}

func (f *SubstringFunc) Name() string                                         { return "SUBSTRING" }
func (f *SubstringFunc) MinArity() int                                        { return 2 }
func (f *SubstringFunc) MaxArity() int                                        { return 3 }
func (f *SubstringFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *SubstringFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	runes := []rune(ToString(args[0]))
	start, err := toInt64(args[1])
	if err != nil {
		return nil, fmt.Errorf("SUBSTRING: start: %w", err)
	}
	// Convert from 1-indexed to 0-indexed
	from := max(0, min(start-1, int64(len(runes))))
	to := int64(len(runes))
	if len(args) == 3 {
		length, err := toInt64(args[2])
		if err != nil {
			return nil, fmt.Errorf("SUBSTRING: length: %w", err)
		}
		if length < 0 {
			return nil, fmt.Errorf("SUBSTRING: length must be non-negative, got %d", length)
		}
		to = min(to, from+length)
	}
	return string(runes[from:to]), nil
}

// ReplaceFunc replaces all occurrences of a substring
type ReplaceFunc struct{}

func (f *ReplaceFunc) Name() string                                         { return "REPLACE" }
func (f *ReplaceFunc) MinArity() int                                        { return 3 }
func (f *ReplaceFunc) MaxArity() int                                        { return 3 }
func (f *ReplaceFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *ReplaceFunc) Evaluate(args []any) (any, error) {
	if anyNil(args) {
		return nil, nil
	}
	return strings.ReplaceAll(ToString(args[0]), ToString(args[1]), ToString(args[2])), nil
}

// ReverseFunc reverses a string
type ReverseFunc struct{}

func (f *ReverseFunc) Name() string                                         { return "REVERSE" }
func (f *ReverseFunc) MinArity() int                                        { return 1 }
func (f *ReverseFunc) MaxArity() int                                        { return 1 }
func (f *ReverseFunc) ReturnType([]relation.ColumnType) relation.ColumnType { return relation.TypeVarchar }
func (f *ReverseFunc) Evaluate(args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	runes := []rune(ToString(args[0]))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}
