package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes SQL query strings
type Lexer struct {
	input string
	pos   int // byte offset of the next rune
	start int // byte offset of ch
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	l.start = l.pos
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += size
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// skipWhitespace skips whitespace and "--" line comments
func (l *Lexer) skipWhitespace() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

// readString reads a quoted string; a doubled quote stands for one quote.
// ok is false when the closing quote is missing.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for {
		if l.ch == 0 {
			return result.String(), false
		}
		if l.ch == quote {
			if l.peekChar() != quote {
				l.readChar() // skip closing quote
				return result.String(), true
			}
			l.readChar()
		}
		result.WriteRune(l.ch)
		l.readChar()
	}
}

// readBracketed reads a [bracketed] identifier
func (l *Lexer) readBracketed() (string, bool) {
	var result strings.Builder
	l.readChar() // skip [
	for l.ch != ']' {
		if l.ch == 0 {
			return result.String(), false
		}
		result.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // skip ]
	return result.String(), true
}

// readNumber reads an unsigned number with optional fraction and exponent
func (l *Lexer) readNumber() string {
	var result strings.Builder
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	if (l.ch == 'e' || l.ch == 'E') && (unicode.IsDigit(l.peekChar()) || l.peekChar() == '-' || l.peekChar() == '+') {
		result.WriteRune(l.ch)
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			result.WriteRune(l.ch)
			l.readChar()
		}
		for unicode.IsDigit(l.ch) {
			result.WriteRune(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

func (l *Lexer) single(t TokenType, value string, pos int) Token {
	l.readChar()
	return Token{Type: t, Value: value, Pos: pos}
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.start
	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: pos}
	case '=':
		return l.single(TokenEqual, "=", pos)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			return l.single(TokenNotEqual, "!=", pos)
		}
		return l.single(TokenError, "!", pos)
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			return l.single(TokenLessEqual, "<=", pos)
		case '>':
			l.readChar()
			return l.single(TokenNotEqual, "<>", pos)
		}
		return l.single(TokenLess, "<", pos)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			return l.single(TokenGreaterEqual, ">=", pos)
		}
		return l.single(TokenGreater, ">", pos)
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			return l.single(TokenConcat, "||", pos)
		}
		return l.single(TokenError, "|", pos)
	case '\'', '"':
		value, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TokenError, Value: "unterminated string", Pos: pos}
		}
		return Token{Type: TokenString, Value: value, Pos: pos}
	case '[':
		value, ok := l.readBracketed()
		if !ok {
			return Token{Type: TokenError, Value: "unterminated identifier", Pos: pos}
		}
		return Token{Type: TokenIdent, Value: value, Pos: pos}
	case '+':
		return l.single(TokenPlus, "+", pos)
	case '-':
		return l.single(TokenMinus, "-", pos)
	case '*':
		return l.single(TokenStar, "*", pos)
	case '/':
		return l.single(TokenSlash, "/", pos)
	case '%':
		return l.single(TokenPercent, "%", pos)
	case '?':
		return l.single(TokenParam, "?", pos)
	case ',':
		return l.single(TokenComma, ",", pos)
	case ';':
		return l.single(TokenSemicolon, ";", pos)
	case '(':
		return l.single(TokenLeftParen, "(", pos)
	case ')':
		return l.single(TokenRightParen, ")", pos)
	case '.':
		if unicode.IsDigit(l.peekChar()) {
			return Token{Type: TokenNumber, Value: l.readNumber(), Pos: pos}
		}
		return l.single(TokenDot, ".", pos)
	}

	if unicode.IsDigit(l.ch) {
		return Token{Type: TokenNumber, Value: l.readNumber(), Pos: pos}
	}
	if unicode.IsLetter(l.ch) || l.ch == '_' || l.ch == '$' {
		value := l.readIdentifier()
		return Token{Type: identifierType(value), Value: value, Pos: pos}
	}
	return l.single(TokenError, string(l.ch), pos)
}

var keywords = map[string]TokenType{
	"SELECT":   TokenSelect,
	"FROM":     TokenFrom,
	"WHERE":    TokenWhere,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"AS":       TokenAs,
	"GROUP":    TokenGroup,
	"BY":       TokenBy,
	"HAVING":   TokenHaving,
	"ORDER":    TokenOrder,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"LIMIT":    TokenLimit,
	"TOP":      TokenTop,
	"IN":       TokenIn,
	"LIKE":     TokenLike,
	"ESCAPE":   TokenEscape,
	"BETWEEN":  TokenBetween,
	"IS":       TokenIs,
	"NOT":      TokenNot,
	"NULL":     TokenNull,
	"DISTINCT": TokenDistinct,
	"CASE":     TokenCase,
	"WHEN":     TokenWhen,
	"THEN":     TokenThen,
	"ELSE":     TokenElse,
	"END":      TokenEnd,
	"EXISTS":   TokenExists,
	"JOIN":     TokenJoin,
	"INNER":    TokenInner,
	"LEFT":     TokenLeft,
	"RIGHT":    TokenRight,
	"FULL":     TokenFull,
	"OUTER":    TokenOuter,
	"CROSS":    TokenCross,
	"ON":       TokenOn,
	"UNION":    TokenUnion,
	"ALL":      TokenAll,
	"CAST":     TokenCast,
	"TRUE":     TokenBool,
	"FALSE":    TokenBool,
}

// identifierType determines if an identifier is a keyword
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToUpper(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
