package query

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of a query error.
type ErrorCode string

const (
	// CodeSyntax indicates the statement text could not be parsed.
	CodeSyntax ErrorCode = "SYNTAX"

	// CodeUnboundTable indicates a table name has no binding in the environment.
	CodeUnboundTable ErrorCode = "UNBOUND_TABLE"

	// CodeNotARelation indicates a table name is bound to something other than a relation.
	CodeNotARelation ErrorCode = "NOT_A_RELATION"

	// CodeStarScope indicates a t.* reference matched no table.
	CodeStarScope ErrorCode = "STAR_SCOPE"

	// CodeUnknownColumn indicates a column reference matched no table column.
	CodeUnknownColumn ErrorCode = "UNKNOWN_COLUMN"

	// CodeOrderByOrdinal indicates an ORDER BY ordinal outside the select list.
	CodeOrderByOrdinal ErrorCode = "ORDER_BY_ORDINAL"

	// CodeOrderByUnion indicates a non-column ORDER BY expression in a UNION.
	CodeOrderByUnion ErrorCode = "ORDER_BY_UNION"

	// CodeOrderByDistinct indicates a non-column ORDER BY expression in a DISTINCT select.
	CodeOrderByDistinct ErrorCode = "ORDER_BY_DISTINCT"

	// CodePattern indicates an invalid LIKE pattern or escape.
	CodePattern ErrorCode = "PATTERN"

	// CodeComparisonMismatch indicates two values that cannot be ordered.
	CodeComparisonMismatch ErrorCode = "COMPARISON_MISMATCH"

	// CodeUnknownFunction indicates a call to a function that is not registered.
	CodeUnknownFunction ErrorCode = "UNKNOWN_FUNCTION"

	// CodeUnionShape indicates a UNION branch with the wrong column count.
	CodeUnionShape ErrorCode = "UNION_SHAPE"

	// CodeEvaluation indicates an expression could not be evaluated.
	CodeEvaluation ErrorCode = "EVALUATION"

	// CodeParameter indicates a missing positional parameter.
	CodeParameter ErrorCode = "PARAMETER"
)

// Error is the error type returned by parsing and execution.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Subject names the offending table, column, function or pattern.
	Subject string
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so the Err* sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrSyntax             = &Error{Code: CodeSyntax}
	ErrUnboundTable       = &Error{Code: CodeUnboundTable}
	ErrNotARelation       = &Error{Code: CodeNotARelation}
	ErrStarScope          = &Error{Code: CodeStarScope}
	ErrUnknownColumn      = &Error{Code: CodeUnknownColumn}
	ErrOrderByOrdinal     = &Error{Code: CodeOrderByOrdinal}
	ErrOrderByUnion       = &Error{Code: CodeOrderByUnion}
	ErrOrderByDistinct    = &Error{Code: CodeOrderByDistinct}
	ErrPattern            = &Error{Code: CodePattern}
	ErrComparisonMismatch = &Error{Code: CodeComparisonMismatch}
	ErrUnknownFunction    = &Error{Code: CodeUnknownFunction}
	ErrUnionShape         = &Error{Code: CodeUnionShape}
	ErrEvaluation         = &Error{Code: CodeEvaluation}
	ErrParameter          = &Error{Code: CodeParameter}
)

func newError(code ErrorCode, subject, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Subject: subject}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}
