package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexemes(input string) []string {
	var out []string
	for _, tok := range NewLexer(input).Tokenize() {
		out = append(out, tok.Value)
	}
	return out
}

func TestLexerSplitsLexemes(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"1+2", []string{"1", "+", "2"}},
		{"  X1  +  X2   ", []string{"X1", "+", "X2"}},
		{"(a_1*3.5e-2)/b", []string{"(", "a_1", "*", "3.5e-2", ")", "/", "b"}},
		{".5+5.", []string{".5", "+", "5."}},
		{"2e", []string{"2", "e"}},
		{"5x", []string{"5", "x"}},
		{"_under9", []string{"_under9"}},
		{"3 $$ 4", []string{"3", "$$", "4"}},
		{"", nil},
		{"\t\n ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexemes(tt.input))
		})
	}
}

func TestLexerTokenTypes(t *testing.T) {
	tokens := NewLexer("(x + 1) * ?").Tokenize()
	types := make([]TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenLeftParen, TokenVariable, TokenOperator, TokenNumber,
		TokenRightParen, TokenOperator, TokenError,
	}, types)
	assert.Equal(t, 10, tokens[6].Pos)
}

func TestLexerNextIsLazy(t *testing.T) {
	l := NewLexer("a+b")
	assert.Equal(t, "a", l.Next().Value)
	assert.Equal(t, "+", l.Next().Value)
	assert.Equal(t, "b", l.Next().Value)
	assert.Equal(t, TokenEOF, l.Next().Type)
	assert.Equal(t, TokenEOF, l.Next().Type)
}

func TestIsVariable(t *testing.T) {
	valid := []string{"a", "A1", "_", "x_2y", "abc123"}
	invalid := []string{"", "1a", "a b", "a-1", "a.b", "é"}

	for _, s := range valid {
		assert.True(t, IsVariable(s), s)
	}
	for _, s := range invalid {
		assert.False(t, IsVariable(s), s)
	}
}
