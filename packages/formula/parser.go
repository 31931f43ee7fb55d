package formula

import (
	"fmt"
	"math"
	"strconv"
)

// Normalizer maps a variable as typed to its canonical form
type Normalizer func(string) string

// Validator decides whether a normalized variable is acceptable
type Validator func(string) bool

// Identity is the default normalizer
func Identity(s string) string { return s }

// AnyVariable is the default validator
func AnyVariable(string) bool { return true }

// ParseState tracks the class of the previously accepted token
type ParseState int

const (
	StateStart ParseState = iota
	StateAfterOperator       // after an operator or a left parenthesis
	StateAfterOperand        // after a number, a variable or a right parenthesis
)

// tokenTransitions maps the current state to valid next token types
var tokenTransitions = map[ParseState]map[TokenType]bool{
	StateStart: {
		TokenNumber:    true,
		TokenVariable:  true,
		TokenLeftParen: true,
	},
	StateAfterOperator: {
		TokenNumber:    true,
		TokenVariable:  true,
		TokenLeftParen: true,
	},
	StateAfterOperand: {
		TokenOperator:   true,
		TokenRightParen: true,
		TokenEOF:        true,
	},
}

// Parser turns formula text into a validated Formula in a single left to
// right scan
type Parser struct {
	lexer      *Lexer
	normalize  Normalizer
	isValid    Validator
	state      ParseState
	parenDepth int
	tokens     []Token
}

// NewParser creates a parser for input. nil policies fall back to Identity
// and AnyVariable.
func NewParser(input string, normalize Normalizer, isValid Validator) *Parser {
	if normalize == nil {
		normalize = Identity
	}
	if isValid == nil {
		isValid = AnyVariable
	}
	return &Parser{
		lexer:     NewLexer(input),
		normalize: normalize,
		isValid:   isValid,
		state:     StateStart,
	}
}

// Parse builds a Formula from input, normalizing and validating every
// variable. it fails with a *FormatError when the input is not a well formed
// infix expression.
func Parse(input string, normalize Normalizer, isValid Validator) (*Formula, error) {
	return NewParser(input, normalize, isValid).Parse()
}

// New parses input with the identity normalizer and no validation
func New(input string) (*Formula, error) {
	return Parse(input, nil, nil)
}

// Parse runs the parser to completion
func (p *Parser) Parse() (*Formula, error) {
	for {
		tok := p.lexer.Next()

		if tok.Type == TokenError {
			return nil, newFormatError(tok.Pos, fmt.Sprintf("unrecognized token '%s'", tok.Value))
		}

		if !tokenTransitions[p.state][tok.Type] {
			return nil, p.unexpected(tok)
		}

		if tok.Type == TokenEOF {
			break
		}

		accepted, err := p.accept(tok)
		if err != nil {
			return nil, err
		}
		p.tokens = append(p.tokens, accepted)
		p.updateState(tok.Type)
	}

	if p.parenDepth != 0 {
		return nil, newFormatError(-1, "unbalanced parentheses: missing closing parenthesis")
	}

	return &Formula{tokens: p.tokens}, nil
}

// accept canonicalizes a token that is legal in the current state
func (p *Parser) accept(tok Token) (Token, error) {
	switch tok.Type {
	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil || math.IsInf(value, 0) {
			return Token{}, newFormatError(tok.Pos, fmt.Sprintf("number out of range '%s'", tok.Value))
		}
		tok.Number = value
		tok.Value = FormatNumber(value)
	case TokenVariable:
		normalized := p.normalize(tok.Value)
		if !IsVariable(normalized) {
			return Token{}, newFormatError(tok.Pos,
				fmt.Sprintf("variable '%s' normalizes to illegal variable '%s'", tok.Value, normalized))
		}
		if !p.isValid(normalized) {
			return Token{}, newFormatError(tok.Pos, fmt.Sprintf("invalid variable '%s'", normalized))
		}
		tok.Value = normalized
	case TokenLeftParen:
		p.parenDepth++
	case TokenRightParen:
		p.parenDepth--
		if p.parenDepth < 0 {
			return Token{}, newFormatError(tok.Pos, "unbalanced parentheses: unexpected closing parenthesis")
		}
	}
	return tok, nil
}

// updateState updates the parser state based on the token type
func (p *Parser) updateState(tokenType TokenType) {
	switch tokenType {
	case TokenNumber, TokenVariable, TokenRightParen:
		p.state = StateAfterOperand
	case TokenOperator, TokenLeftParen:
		p.state = StateAfterOperator
	}
}

func (p *Parser) unexpected(tok Token) *FormatError {
	if tok.Type == TokenEOF {
		switch p.state {
		case StateStart:
			return newFormatError(tok.Pos, "formula is empty")
		default:
			return newFormatError(tok.Pos, "formula ends with an operator or open parenthesis")
		}
	}
	if p.state == StateStart {
		return newFormatError(tok.Pos, fmt.Sprintf("formula cannot begin with '%s'", tok.Value))
	}
	prev := p.tokens[len(p.tokens)-1]
	return newFormatError(tok.Pos, fmt.Sprintf("unexpected token '%s' after '%s'", tok.Value, prev.Value))
}

// FormatNumber renders a number in the canonical form used by formula
// tokens. the output always lexes back as a single number token.
func FormatNumber(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
