package query

import "github.com/vegasq/qoq/relation"

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenAs
	TokenGroup
	TokenBy
	TokenHaving
	TokenOrder
	TokenAsc
	TokenDesc
	TokenLimit
	TokenTop
	TokenIn
	TokenLike
	TokenEscape
	TokenBetween
	TokenIs
	TokenNot
	TokenNull
	TokenDistinct
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenExists
	TokenJoin
	TokenInner
	TokenLeft
	TokenRight
	TokenFull
	TokenOuter
	TokenCross
	TokenOn
	TokenUnion
	TokenAll
	TokenCast

	// Operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %
	TokenConcat       // ||

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool
	TokenParam // ?

	// Delimiters
	TokenComma      // ,
	TokenDot        // .
	TokenLeftParen  // (
	TokenRightParen // )
	TokenSemicolon  // ;

	// Special
	TokenEOF
	TokenError
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Expr is a node of an expression tree. The set of implementations is closed.
type Expr interface {
	exprNode()
	String() string
}

// Literal is a constant value with its static type.
type Literal struct {
	Value any
	Type  relation.ColumnType
}

// Param is a positional "?" placeholder; Index is 0-based across the statement.
type Param struct {
	Index int
}

// ColumnRef references a column, optionally qualified by a table name or alias.
type ColumnRef struct {
	Table string
	Name  string
}

// Star is "*" or "t.*" in a select list.
type Star struct {
	Table string
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
	OpPlus
	OpIsNull
	OpIsNotNull
)

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
)

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// LikeExpr is "operand [NOT] LIKE pattern [ESCAPE escape]".
type LikeExpr struct {
	Operand Expr
	Pattern Expr
	Escape  Expr
	Not     bool
}

// InExpr is "operand [NOT] IN (list)".
type InExpr struct {
	Operand Expr
	List    []Expr
	Not     bool
}

// InSubqueryExpr is "operand [NOT] IN (SELECT ...)".
type InSubqueryExpr struct {
	Operand Expr
	Query   *SelectStatement
	Not     bool
}

// BetweenExpr is "operand [NOT] BETWEEN low AND high".
type BetweenExpr struct {
	Operand Expr
	Low     Expr
	High    Expr
	Not     bool
}

// ExistsExpr is "[NOT] EXISTS (SELECT ...)".
type ExistsExpr struct {
	Query *SelectStatement
	Not   bool
}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Query *SelectStatement
}

// FunctionCall invokes a registered scalar or aggregate function.
type FunctionCall struct {
	Name     string
	Args     []Expr
	Distinct bool // COUNT(DISTINCT x)
	Star     bool // COUNT(*)
}

// WhenClause is one WHEN ... THEN ... arm of a CASE expression.
type WhenClause struct {
	When Expr
	Then Expr
}

// CaseExpr is a searched (Operand == nil) or simple CASE expression.
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// CastExpr converts a value to a target type: CAST(x AS t) or CONVERT(x, t).
type CastExpr struct {
	Operand Expr
	Type    relation.ColumnType
}

func (*Literal) exprNode()        {}
func (*Param) exprNode()          {}
func (*ColumnRef) exprNode()      {}
func (*Star) exprNode()           {}
func (*UnaryExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*LikeExpr) exprNode()       {}
func (*InExpr) exprNode()         {}
func (*InSubqueryExpr) exprNode() {}
func (*BetweenExpr) exprNode()    {}
func (*ExistsExpr) exprNode()     {}
func (*SubqueryExpr) exprNode()   {}
func (*FunctionCall) exprNode()   {}
func (*CaseExpr) exprNode()       {}
func (*CastExpr) exprNode()       {}

// TableRef is a table source in FROM or JOIN. The set of implementations is closed.
// Every reference gets its own binding, so a relation joined to itself is two tables.
type TableRef interface {
	tableNode()
	// Alias is the name columns are qualified with.
	Alias() string
}

// TableName references a relation bound in the environment.
type TableName struct {
	Name string
	As   string
}

// TableSubquery is a derived table.
type TableSubquery struct {
	Query *SelectStatement
	As    string
}

func (*TableName) tableNode()     {}
func (*TableSubquery) tableNode() {}

// Alias returns the explicit alias, else the last dotted segment of the name.
func (t *TableName) Alias() string {
	if t.As != "" {
		return t.As
	}
	return lastSegment(t.Name)
}

// Alias returns the explicit alias of the derived table.
func (t *TableSubquery) Alias() string {
	return t.As
}

// JoinType represents the type of join operation
type JoinType int

const (
	JoinInner JoinType = iota // INNER JOIN (default)
	JoinLeft                  // LEFT JOIN / LEFT OUTER JOIN
	JoinRight                 // RIGHT JOIN / RIGHT OUTER JOIN
	JoinFull                  // FULL JOIN / FULL OUTER JOIN
	JoinCross                 // CROSS JOIN or comma-separated FROM list
)

func (j JoinType) String() string {
	switch j {
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	case JoinCross:
		return "CROSS"
	default:
		return "INNER"
	}
}

// Join represents a JOIN clause
type Join struct {
	Type  JoinType
	Table TableRef
	On    Expr // nil for CROSS JOIN
}

// SelectColumn is one entry of a select list.
type SelectColumn struct {
	Expr  Expr
	Alias string
}

// Select is a single SELECT ... FROM ... WHERE ... GROUP BY ... HAVING block.
type Select struct {
	Distinct bool
	Limit    *int64 // TOP n, or LIMIT on a statement without ORDER BY or UNION
	Columns  []SelectColumn
	From     TableRef // nil for a table-less select
	Joins    []Join
	Where    Expr
	GroupBy  []Expr
	Having   Expr
}

// Union is one UNION [ALL] branch.
type Union struct {
	All    bool
	Select *Select
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// SelectStatement is a full statement: a select, its union branches, and the
// statement-level ORDER BY and LIMIT.
type SelectStatement struct {
	Select  *Select
	Unions  []Union
	OrderBy []OrderItem
	Limit   *int64
	Params  int // number of positional parameters
}
