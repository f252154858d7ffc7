package query

import (
	"strconv"
	"strings"

	"github.com/vegasq/qoq/relation"
)

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Expr, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right}
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}

	return left, nil
}

// parseNot parses prefix NOT
func (p *Parser) parseNot() (Expr, error) {
	if p.current().Type != TokenNot {
		return p.parseComparison()
	}
	p.advance()
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if exists, ok := operand.(*ExistsExpr); ok {
		exists.Not = !exists.Not
		return exists, nil
	}
	return &UnaryExpr{Op: OpNot, Operand: operand}, nil
}

var comparisonOps = map[TokenType]BinaryOp{
	TokenEqual:        OpEq,
	TokenNotEqual:     OpNe,
	TokenLess:         OpLt,
	TokenLessEqual:    OpLe,
	TokenGreater:      OpGt,
	TokenGreaterEqual: OpGe,
}

// parseComparison parses comparison expressions (including IN, LIKE, BETWEEN, IS NULL)
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if op, ok := comparisonOps[p.current().Type]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	}

	switch p.current().Type {
	case TokenIs:
		p.advance()
		op := OpIsNull
		if p.current().Type == TokenNot {
			op = OpIsNotNull
			p.advance()
		}
		if err := p.expect(TokenNull, "NULL after IS"); err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Operand: left}, nil
	case TokenNot:
		// Could be "NOT IN", "NOT LIKE", "NOT BETWEEN"
		switch p.peek().Type {
		case TokenIn, TokenLike, TokenBetween:
			p.advance()
			return p.parsePredicate(left, true)
		}
		return left, nil
	case TokenIn, TokenLike, TokenBetween:
		return p.parsePredicate(left, false)
	}

	return left, nil
}

// parsePredicate parses the IN, LIKE or BETWEEN tail of a comparison
func (p *Parser) parsePredicate(left Expr, negate bool) (Expr, error) {
	switch p.current().Type {
	case TokenIn:
		p.advance()
		if err := p.expect(TokenLeftParen, "( after IN"); err != nil {
			return nil, err
		}
		if p.current().Type == TokenSelect {
			subquery, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenRightParen, ") after IN subquery"); err != nil {
				return nil, err
			}
			return &InSubqueryExpr{Operand: left, Query: subquery, Not: negate}, nil
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, ") after IN list"); err != nil {
			return nil, err
		}
		return &InExpr{Operand: left, List: list, Not: negate}, nil

	case TokenLike:
		p.advance()
		pattern, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		like := &LikeExpr{Operand: left, Pattern: pattern, Not: negate}
		if p.current().Type == TokenEscape {
			p.advance()
			if like.Escape, err = p.parseAdditive(); err != nil {
				return nil, err
			}
		}
		return like, nil

	default: // TokenBetween
		p.advance()
		low, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenAnd, "AND in BETWEEN"); err != nil {
			return nil, err
		}
		high, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Operand: left, Low: low, High: high, Not: negate}, nil
	}
}

// parseAdditive parses + - and ||
func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.current().Type {
		case TokenPlus:
			op = OpAdd
		case TokenMinus:
			op = OpSub
		case TokenConcat:
			op = OpConcat
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

// parseMultiplicative parses * / %
func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.current().Type {
		case TokenStar:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		case TokenPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

// parseUnary parses prefix + and -
func (p *Parser) parseUnary() (Expr, error) {
	switch p.current().Type {
	case TokenMinus, TokenPlus:
		neg := p.current().Type == TokenMinus
		p.advance()
		if err := p.depthCounter.Enter(); err != nil {
			return nil, err
		}
		defer p.depthCounter.Exit()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*Literal); ok {
			if f, ok := lit.Value.(float64); ok {
				if neg {
					f = -f
				}
				return &Literal{Value: f, Type: relation.TypeDouble}, nil
			}
		}
		if neg {
			return &UnaryExpr{Op: OpNeg, Operand: operand}, nil
		}
		return &UnaryExpr{Op: OpPlus, Operand: operand}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, parameters, column references, function
// calls, CASE, CAST, EXISTS and parenthesized expressions
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, newError(CodeSyntax, tok.Value, "invalid number at offset %d", tok.Pos)
		}
		return &Literal{Value: f, Type: relation.TypeDouble}, nil

	case TokenString:
		p.advance()
		return &Literal{Value: tok.Value, Type: relation.TypeVarchar}, nil

	case TokenBool:
		p.advance()
		return &Literal{Value: strings.EqualFold(tok.Value, "true"), Type: relation.TypeBoolean}, nil

	case TokenNull:
		p.advance()
		return &Literal{Value: nil, Type: relation.TypeNull}, nil

	case TokenParam:
		p.advance()
		param := &Param{Index: p.params}
		p.params++
		return param, nil

	case TokenLeftParen:
		p.advance()
		if err := p.depthCounter.Enter(); err != nil {
			return nil, err
		}
		defer p.depthCounter.Exit()
		if p.current().Type == TokenSelect {
			subquery, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenRightParen, ") after subquery"); err != nil {
				return nil, err
			}
			return &SubqueryExpr{Query: subquery}, nil
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, ")"); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenExists:
		p.advance()
		if err := p.expect(TokenLeftParen, "( after EXISTS"); err != nil {
			return nil, err
		}
		subquery, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, ") after EXISTS subquery"); err != nil {
			return nil, err
		}
		return &ExistsExpr{Query: subquery}, nil

	case TokenCase:
		return p.parseCaseExpression()

	case TokenCast:
		return p.parseCast()

	case TokenLeft, TokenRight:
		// LEFT and RIGHT are also string functions
		if p.peek().Type == TokenLeftParen {
			return p.parseFunctionCall()
		}

	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			if strings.EqualFold(tok.Value, "CONVERT") {
				return p.parseConvert()
			}
			return p.parseFunctionCall()
		}
		parts, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		name := parts[len(parts)-1]
		if err := ValidateIdentifier(name); err != nil {
			return nil, err
		}
		return &ColumnRef{Table: strings.Join(parts[:len(parts)-1], "."), Name: name}, nil
	}

	return nil, p.errorf("unexpected token in expression")
}

// parseFunctionCall parses name([DISTINCT] args) or name(*)
func (p *Parser) parseFunctionCall() (Expr, error) {
	call := &FunctionCall{Name: strings.ToUpper(p.current().Value)}
	p.advance() // name
	p.advance() // (

	if p.current().Type == TokenStar {
		p.advance()
		call.Star = true
		if err := p.expect(TokenRightParen, ") after *"); err != nil {
			return nil, err
		}
		return call, nil
	}
	if p.current().Type == TokenDistinct {
		call.Distinct = true
		p.advance()
	}
	if p.current().Type == TokenRightParen {
		p.advance()
		return call, nil
	}

	args, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	call.Args = args
	if err := p.expect(TokenRightParen, ") after function arguments"); err != nil {
		return nil, err
	}
	return call, nil
}

// parseTypeName parses a type name with an optional (precision[, scale]) suffix
func (p *Parser) parseTypeName() (relation.ColumnType, error) {
	if p.current().Type != TokenIdent && p.current().Type != TokenString {
		return 0, p.errorf("expected type name")
	}
	t, err := relation.ParseColumnType(p.current().Value)
	if err != nil {
		return 0, p.errorf("unknown type")
	}
	p.advance()
	if p.current().Type == TokenLeftParen {
		for p.current().Type != TokenRightParen && p.current().Type != TokenEOF {
			p.advance()
		}
		if err := p.expect(TokenRightParen, ")"); err != nil {
			return 0, err
		}
	}
	return t, nil
}

// parseCast parses CAST(expr AS type)
func (p *Parser) parseCast() (Expr, error) {
	p.advance() // CAST
	if err := p.expect(TokenLeftParen, "( after CAST"); err != nil {
		return nil, err
	}
	operand, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenAs, "AS in CAST"); err != nil {
		return nil, err
	}
	t, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenRightParen, ") after CAST"); err != nil {
		return nil, err
	}
	return &CastExpr{Operand: operand, Type: t}, nil
}

// parseConvert parses CONVERT(expr, type)
func (p *Parser) parseConvert() (Expr, error) {
	p.advance() // CONVERT
	p.advance() // (
	operand, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenComma, ", in CONVERT"); err != nil {
		return nil, err
	}
	t, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenRightParen, ") after CONVERT"); err != nil {
		return nil, err
	}
	return &CastExpr{Operand: operand, Type: t}, nil
}

// parseCaseExpression parses CASE [operand] WHEN ... THEN ... [ELSE ...] END
func (p *Parser) parseCaseExpression() (Expr, error) {
	p.advance() // CASE
	c := &CaseExpr{}
	if p.current().Type != TokenWhen {
		operand, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		c.Operand = operand
	}

	for p.current().Type == TokenWhen {
		p.advance()
		when, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenThen, "THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, WhenClause{When: when, Then: then})
	}
	if len(c.Whens) == 0 {
		return nil, p.errorf("CASE requires at least one WHEN")
	}

	if p.current().Type == TokenElse {
		p.advance()
		elseExpr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		c.Else = elseExpr
	}
	if err := p.expect(TokenEnd, "END"); err != nil {
		return nil, err
	}
	return c, nil
}
