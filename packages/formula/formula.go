// Package formula tokenizes, validates and evaluates infix arithmetic
// formulas over named variables.
package formula

import "strings"

// Formula is an immutable, validated infix expression held as its canonical
// token sequence. it is never empty, never ends in an operator and its
// parentheses are balanced; these hold from construction onwards and are not
// re-checked.
type Formula struct {
	tokens []Token
}

// Tokens returns a copy of the canonical tokens
func (f *Formula) Tokens() []Token {
	out := make([]Token, len(f.tokens))
	copy(out, f.tokens)
	return out
}

// Variables returns each distinct normalized variable once, in order of
// first appearance
func (f *Formula) Variables() []string {
	seen := make(map[string]struct{})
	var result []string
	for _, tok := range f.tokens {
		if tok.Type != TokenVariable {
			continue
		}
		if _, exists := seen[tok.Value]; exists {
			continue
		}
		seen[tok.Value] = struct{}{}
		result = append(result, tok.Value)
	}
	return result
}

// String concatenates the canonical tokens with no separating whitespace.
// parsing the result again with the same policy yields an equal Formula.
func (f *Formula) String() string {
	var sb strings.Builder
	for _, tok := range f.tokens {
		sb.WriteString(tok.Value)
	}
	return sb.String()
}

// Equal reports whether two formulas have the same token sequence. numbers
// are compared as doubles, everything else as strings.
func (f *Formula) Equal(other *Formula) bool {
	if f == nil || other == nil {
		return f == other
	}
	if len(f.tokens) != len(other.tokens) {
		return false
	}
	for i, tok := range f.tokens {
		o := other.tokens[i]
		if tok.Type != o.Type {
			return false
		}
		if tok.Type == TokenNumber {
			if tok.Number != o.Number {
				return false
			}
			continue
		}
		if tok.Value != o.Value {
			return false
		}
	}
	return true
}
