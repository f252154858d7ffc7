package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses SQL queries into AST
type Parser struct {
	tokens       []Token
	pos          int
	params       int
	depthCounter *ExpressionDepthCounter
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:       tokens,
		pos:          0,
		depthCounter: NewExpressionDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// errorf builds a syntax error positioned at the current token
func (p *Parser) errorf(format string, args ...any) error {
	tok := p.current()
	subject := tok.Value
	if tok.Type == TokenEOF {
		subject = "end of input"
	}
	return newError(CodeSyntax, subject, "%s at offset %d", fmt.Sprintf(format, args...), tok.Pos)
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType, what string) error {
	if p.current().Type != tokType {
		return p.errorf("expected %s", what)
	}
	p.advance()
	return nil
}

// Parse parses a SQL SELECT statement
func Parse(query string) (*SelectStatement, error) {
	// Validate query length
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	tokens := Tokenize(query)

	// Validate token count
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	stmt, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}

	if parser.current().Type == TokenSemicolon {
		parser.advance()
	}
	if parser.current().Type == TokenError {
		return nil, parser.errorf("invalid character in query")
	}
	if parser.current().Type != TokenEOF {
		return nil, parser.errorf("unexpected trailing tokens after query")
	}

	stmt.Params = parser.params
	return stmt, nil
}

// parseStatement parses: select [UNION [ALL] select]... [ORDER BY ...] [LIMIT n]
func (p *Parser) parseStatement() (*SelectStatement, error) {
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	stmt := &SelectStatement{Select: sel}

	for p.current().Type == TokenUnion {
		p.advance()
		all := false
		if p.current().Type == TokenAll {
			all = true
			p.advance()
		}
		branch, err := p.parseSelect()
		if err != nil {
			return nil, fmt.Errorf("failed to parse UNION branch: %w", err)
		}
		stmt.Unions = append(stmt.Unions, Union{All: all, Select: branch})
	}

	if p.current().Type == TokenOrder {
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = orderBy
	}

	if p.current().Type == TokenLimit {
		p.advance()
		limit, err := p.parseCount("LIMIT")
		if err != nil {
			return nil, err
		}
		// A plain select keeps its own limit so rows can stop early.
		if len(stmt.Unions) == 0 && len(stmt.OrderBy) == 0 && sel.Limit == nil {
			sel.Limit = limit
		} else {
			stmt.Limit = limit
		}
	}

	return stmt, nil
}

// parseSelect parses a single SELECT block without ORDER BY or LIMIT
func (p *Parser) parseSelect() (*Select, error) {
	if err := p.expect(TokenSelect, "SELECT"); err != nil {
		return nil, err
	}

	sel := &Select{}
	if p.current().Type == TokenDistinct {
		sel.Distinct = true
		p.advance()
	} else if p.current().Type == TokenAll {
		p.advance()
	}

	if p.current().Type == TokenTop {
		p.advance()
		top, err := p.parseCount("TOP")
		if err != nil {
			return nil, err
		}
		sel.Limit = top
	}

	columns, err := p.parseSelectList()
	if err != nil {
		return nil, fmt.Errorf("failed to parse SELECT list: %w", err)
	}
	sel.Columns = columns

	if p.current().Type == TokenFrom {
		p.advance()
		from, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		sel.From = from

		for {
			if p.current().Type == TokenComma {
				p.advance()
				table, err := p.parseTableRef()
				if err != nil {
					return nil, err
				}
				sel.Joins = append(sel.Joins, Join{Type: JoinCross, Table: table})
				continue
			}
			if !isJoinStart(p.current().Type) {
				break
			}
			join, err := p.parseJoin()
			if err != nil {
				return nil, fmt.Errorf("failed to parse JOIN: %w", err)
			}
			sel.Joins = append(sel.Joins, *join)
		}
	}

	if p.current().Type == TokenWhere {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		sel.Where = expr
	}

	if p.current().Type == TokenGroup {
		p.advance()
		if err := p.expect(TokenBy, "BY after GROUP"); err != nil {
			return nil, err
		}
		groupBy, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = groupBy
	}

	if p.current().Type == TokenHaving {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		sel.Having = expr
	}

	return sel, nil
}

func isJoinStart(t TokenType) bool {
	switch t {
	case TokenJoin, TokenInner, TokenLeft, TokenRight, TokenFull, TokenCross:
		return true
	}
	return false
}

// parseTableRef parses a table name or parenthesized subquery with optional alias
func (p *Parser) parseTableRef() (TableRef, error) {
	if p.current().Type == TokenLeftParen {
		p.advance() // consume (
		subquery, err := p.parseStatement()
		if err != nil {
			return nil, fmt.Errorf("failed to parse subquery in FROM: %w", err)
		}
		if err := p.expect(TokenRightParen, ") after subquery"); err != nil {
			return nil, err
		}
		return &TableSubquery{Query: subquery, As: p.parseAlias()}, nil
	}

	var name string
	switch p.current().Type {
	case TokenString:
		name = p.current().Value
		p.advance()
	case TokenIdent:
		parts, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		name = strings.Join(parts, ".")
	default:
		return nil, p.errorf("expected table name or subquery")
	}
	if err := ValidateIdentifier(name); err != nil {
		return nil, err
	}
	return &TableName{Name: name, As: p.parseAlias()}, nil
}

// parseAlias parses an optional [AS] alias
func (p *Parser) parseAlias() string {
	if p.current().Type == TokenAs && isWord(p.peek()) {
		p.advance()
		alias := p.current().Value
		p.advance()
		return alias
	}
	if p.current().Type == TokenIdent {
		alias := p.current().Value
		p.advance()
		return alias
	}
	return ""
}

// isWord reports whether tok is an identifier or a keyword. After an
// explicit AS either one names an alias.
func isWord(tok Token) bool {
	if tok.Type == TokenIdent {
		return true
	}
	kw, ok := keywords[strings.ToUpper(tok.Value)]
	return ok && kw == tok.Type
}

// parseDottedName parses ident(.ident)*
func (p *Parser) parseDottedName() ([]string, error) {
	parts := []string{p.current().Value}
	p.advance()
	for p.current().Type == TokenDot && p.peek().Type == TokenIdent {
		p.advance()
		parts = append(parts, p.current().Value)
		p.advance()
	}
	return parts, nil
}

// parseJoin parses a JOIN clause
func (p *Parser) parseJoin() (*Join, error) {
	join := &Join{}

	switch p.current().Type {
	case TokenCross:
		join.Type = JoinCross
		p.advance()
	case TokenInner:
		join.Type = JoinInner
		p.advance()
	case TokenLeft, TokenRight, TokenFull:
		join.Type = map[TokenType]JoinType{TokenLeft: JoinLeft, TokenRight: JoinRight, TokenFull: JoinFull}[p.current().Type]
		p.advance()
		// Optional OUTER keyword
		if p.current().Type == TokenOuter {
			p.advance()
		}
	case TokenJoin:
		join.Type = JoinInner
	}
	if err := p.expect(TokenJoin, "JOIN"); err != nil {
		return nil, err
	}

	table, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	join.Table = table

	if join.Type == JoinCross {
		return join, nil
	}
	if p.current().Type != TokenOn {
		if join.Type == JoinInner {
			join.Type = JoinCross
			return join, nil
		}
		return nil, p.errorf("expected ON clause after %s JOIN table", join.Type)
	}
	p.advance()
	condition, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("failed to parse JOIN condition: %w", err)
	}
	join.On = condition
	return join, nil
}

// parseSelectList parses a comma-separated select list
func (p *Parser) parseSelectList() ([]SelectColumn, error) {
	var columns []SelectColumn
	for {
		col, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
		if p.current().Type != TokenComma {
			return columns, nil
		}
		p.advance()
	}
}

// parseSelectItem parses *, t.*, or an expression with optional alias
func (p *Parser) parseSelectItem() (SelectColumn, error) {
	if p.current().Type == TokenStar {
		p.advance()
		return SelectColumn{Expr: &Star{}}, nil
	}
	if p.current().Type == TokenIdent && p.peek().Type == TokenDot {
		// t.* needs two tokens of lookahead past the identifier
		if p.pos+2 < len(p.tokens) && p.tokens[p.pos+2].Type == TokenStar {
			table := p.current().Value
			p.pos += 3
			return SelectColumn{Expr: &Star{Table: table}}, nil
		}
	}

	expr, err := p.parseOr()
	if err != nil {
		return SelectColumn{}, err
	}
	col := SelectColumn{Expr: expr}

	switch p.current().Type {
	case TokenAs:
		p.advance()
		if !isWord(p.current()) && p.current().Type != TokenString {
			return SelectColumn{}, p.errorf("expected alias after AS")
		}
		col.Alias = p.current().Value
		p.advance()
	case TokenIdent, TokenString:
		// implicit alias
		col.Alias = p.current().Value
		p.advance()
	}
	if err := ValidateIdentifier(col.Alias); err != nil {
		return SelectColumn{}, err
	}
	return col, nil
}

// parseExprList parses expr(, expr)*
func (p *Parser) parseExprList() ([]Expr, error) {
	var list []Expr
	for {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list = append(list, expr)
		if p.current().Type != TokenComma {
			return list, nil
		}
		p.advance()
	}
}

// parseOrderBy parses ORDER BY expr [ASC|DESC] (, ...)*
func (p *Parser) parseOrderBy() ([]OrderItem, error) {
	if err := p.expect(TokenOrder, "ORDER"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenBy, "BY after ORDER"); err != nil {
		return nil, err
	}

	var items []OrderItem
	for {
		expr, err := p.parseOr()
		if err != nil {
			return nil, fmt.Errorf("failed to parse ORDER BY: %w", err)
		}
		item := OrderItem{Expr: expr}

		// Check for ASC/DESC modifier
		if p.current().Type == TokenAsc {
			p.advance()
		} else if p.current().Type == TokenDesc {
			item.Desc = true
			p.advance()
		}
		items = append(items, item)

		if p.current().Type != TokenComma {
			return items, nil
		}
		p.advance()
	}
}

// parseCount parses the non-negative integer after LIMIT or TOP
func (p *Parser) parseCount(clause string) (*int64, error) {
	if p.current().Type != TokenNumber {
		return nil, p.errorf("expected number after %s", clause)
	}

	numStr := p.current().Value
	n, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return nil, p.errorf("invalid %s value", clause)
	}
	if n < 0 {
		return nil, p.errorf("%s must be non-negative", clause)
	}

	p.advance()
	return &n, nil
}
