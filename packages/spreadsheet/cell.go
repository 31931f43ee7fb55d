package spreadsheet

import (
	"math"
	"strconv"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula"
)

// ContentType tags which field of Contents is meaningful
type ContentType uint8

const (
	ContentTypeString  ContentType = 0 // raw text, "" means the cell does not exist
	ContentTypeNumber  ContentType = 1
	ContentTypeFormula ContentType = 2
)

// Contents is what the user typed into a cell, classified
type Contents struct {
	Type    ContentType
	Text    string
	Number  float64
	Formula *formula.Formula
}

// TextContents creates string contents
func TextContents(text string) Contents {
	return Contents{Type: ContentTypeString, Text: text}
}

// NumberContents creates numeric contents
func NumberContents(v float64) Contents {
	return Contents{Type: ContentTypeNumber, Number: v}
}

// FormulaContents creates formula contents
func FormulaContents(f *formula.Formula) Contents {
	return Contents{Type: ContentTypeFormula, Formula: f}
}

// IsEmpty reports whether the contents denote an absent cell
func (c Contents) IsEmpty() bool {
	return c.Type == ContentTypeString && c.Text == ""
}

// String returns the raw form that classifies back to equal contents:
// "=" plus the canonical formula, the canonical number, or the text
func (c Contents) String() string {
	switch c.Type {
	case ContentTypeNumber:
		return formula.FormatNumber(c.Number)
	case ContentTypeFormula:
		return "=" + c.Formula.String()
	default:
		return c.Text
	}
}

// Equal compares contents by type and payload
func (c Contents) Equal(other Contents) bool {
	if c.Type != other.Type {
		return false
	}
	switch c.Type {
	case ContentTypeNumber:
		return c.Number == other.Number
	case ContentTypeFormula:
		return c.Formula.Equal(other.Formula)
	default:
		return c.Text == other.Text
	}
}

// parseNumber accepts decimal literals with optional surrounding whitespace
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ErrorCode classifies a formula error for display, following spreadsheet
// conventions
type ErrorCode uint8

const (
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - malformed evaluation
	ErrorCodeRef   ErrorCode = 4 // #REF! - referenced cell is not a number
)

// ErrorMapper maps error codes to their display strings
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
}

// ValueType tags which field of Value is meaningful
type ValueType uint8

const (
	ValueTypeString ValueType = 0
	ValueTypeNumber ValueType = 1
	ValueTypeError  ValueType = 2
)

// Value is what a cell evaluates to
type Value struct {
	Type   ValueType
	Text   string
	Number float64
	Err    *formula.EvalError
	Code   ErrorCode
}

// TextValue creates a string value
func TextValue(text string) Value {
	return Value{Type: ValueTypeString, Text: text}
}

// NumberValue creates a numeric value
func NumberValue(v float64) Value {
	return Value{Type: ValueTypeNumber, Number: v}
}

// ErrorValue creates an error value, classifying the reason
func ErrorValue(err *formula.EvalError) Value {
	code := ErrorCodeValue
	switch {
	case err.Reason == formula.ReasonDivideByZero:
		code = ErrorCodeDiv0
	case strings.HasPrefix(err.Reason, unresolvedPrefix):
		code = ErrorCodeRef
	}
	return Value{Type: ValueTypeError, Err: err, Code: code}
}

// String renders the value for display
func (v Value) String() string {
	switch v.Type {
	case ValueTypeNumber:
		return formula.FormatNumber(v.Number)
	case ValueTypeError:
		return ErrorMapper[v.Code]
	default:
		return v.Text
	}
}

// Cell is one non-empty entry of the store
type Cell struct {
	Name     string
	Contents Contents
	Value    Value
}
