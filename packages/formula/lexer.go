package formula

import "unicode"

// TokenType represents the lexical class of a formula token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenVariable
	TokenOperator
	TokenLeftParen
	TokenRightParen
	TokenWhitespace
	TokenError
)

// String returns a readable name for the token type
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "number"
	case TokenVariable:
		return "variable"
	case TokenOperator:
		return "operator"
	case TokenLeftParen:
		return "left paren"
	case TokenRightParen:
		return "right paren"
	case TokenWhitespace:
		return "whitespace"
	default:
		return "error"
	}
}

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charLParen     = '('
	charRParen     = ')'
	charAsterisk   = '*'
	charPlus       = '+'
	charMinus      = '-'
	charPeriod     = '.'
	charSlash      = '/'
	charUnderscore = '_'
)

// Token represents a lexical token with position information. Number is
// only meaningful for TokenNumber tokens that came out of the parser, where
// Value holds the canonical string form of Number.
type Token struct {
	Type   TokenType
	Value  string
	Number float64
	Pos    int // rune position in input
}

// Lexer splits a formula string into raw lexemes. it does not interpret
// token order or count parentheses; that is the parser's job.
type Lexer struct {
	input string
	runes []rune
	pos   int
}

// NewLexer creates a new lexer for the given formula text
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		runes: []rune(input),
	}
}

// Next returns the next non-whitespace lexeme, or a TokenEOF token once the
// input is exhausted. unrecognized runs of characters come back as
// TokenError so the parser can reject them.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	if l.pos >= len(l.runes) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	startPos := l.pos
	ch := l.current()

	switch ch {
	case charLParen:
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Pos: startPos}
	case charRParen:
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Pos: startPos}
	case charPlus, charMinus, charAsterisk, charSlash:
		l.pos++
		return Token{Type: TokenOperator, Value: string(ch), Pos: startPos}
	}

	if isAlpha(ch) || ch == charUnderscore {
		return l.scanVariable()
	}

	if isDigit(ch) || (ch == charPeriod && isDigit(l.peek(1))) {
		return l.scanNumber()
	}

	return l.scanUnknown()
}

// Tokenize drains the lexer and returns every lexeme, without the EOF token
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.Next()
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return charNull
	}
	return l.runes[l.pos]
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) && unicode.IsSpace(l.current()) {
		l.pos++
	}
}

// scanVariable scans a letter or underscore followed by letters, digits and
// underscores
func (l *Lexer) scanVariable() Token {
	startPos := l.pos
	for l.pos < len(l.runes) {
		ch := l.current()
		if !isAlpha(ch) && !isDigit(ch) && ch != charUnderscore {
			break
		}
		l.pos++
	}
	return Token{Type: TokenVariable, Value: string(l.runes[startPos:l.pos]), Pos: startPos}
}

// scanNumber scans a number token including decimals and scientific
// notation. a trailing period ("5.") is part of the number.
func (l *Lexer) scanNumber() Token {
	startPos := l.pos

	// scan integer part
	for l.pos < len(l.runes) && isDigit(l.current()) {
		l.pos++
	}

	// check for decimal part
	if l.current() == charPeriod {
		l.pos++ // consume '.'
		for l.pos < len(l.runes) && isDigit(l.current()) {
			l.pos++
		}
	}

	// check for scientific notation (e or E)
	if l.current() == 'e' || l.current() == 'E' {
		savedPos := l.pos
		l.pos++ // consume 'e' or 'E'

		// optional + or - sign
		if l.current() == charPlus || l.current() == charMinus {
			l.pos++
		}

		// must have at least one digit after e/E
		if !isDigit(l.current()) {
			// not scientific notation, restore position
			l.pos = savedPos
		} else {
			for l.pos < len(l.runes) && isDigit(l.current()) {
				l.pos++
			}
		}
	}

	return Token{Type: TokenNumber, Value: string(l.runes[startPos:l.pos]), Pos: startPos}
}

// scanUnknown consumes a run of characters that cannot start any valid token
func (l *Lexer) scanUnknown() Token {
	startPos := l.pos
	l.pos++
	for l.pos < len(l.runes) && !l.startsToken() {
		l.pos++
	}
	return Token{Type: TokenError, Value: string(l.runes[startPos:l.pos]), Pos: startPos}
}

// startsToken reports whether a recognized lexeme (or whitespace) begins at
// the current position
func (l *Lexer) startsToken() bool {
	ch := l.current()
	switch ch {
	case charLParen, charRParen, charPlus, charMinus, charAsterisk, charSlash:
		return true
	}
	if unicode.IsSpace(ch) || isAlpha(ch) || isDigit(ch) || ch == charUnderscore {
		return true
	}
	return ch == charPeriod && isDigit(l.peek(1))
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// IsVariable reports whether s is a syntactically legal variable: a letter
// or underscore followed by letters, digits and underscores
func IsVariable(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if isAlpha(ch) || ch == charUnderscore {
			continue
		}
		if i > 0 && isDigit(ch) {
			continue
		}
		return false
	}
	return true
}
