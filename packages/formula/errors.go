package formula

import "errors"

// ErrFormat is matched by every FormatError via errors.Is
var ErrFormat = errors.New("formula format error")

// FormatError reports a malformed formula. no Formula is produced when
// construction fails.
type FormatError struct {
	Message string
	Pos     int // rune position of the offending token, -1 if not applicable
}

func (e *FormatError) Error() string {
	if e.Message == "" {
		return ErrFormat.Error()
	}
	return e.Message
}

// Is lets errors.Is(err, ErrFormat) match any FormatError
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func newFormatError(pos int, message string) *FormatError {
	return &FormatError{Message: message, Pos: pos}
}

// Reasons reported by the evaluator
const (
	ReasonDivideByZero = "Divide by Zero"
	ReasonMissingParen = "No left parenthesis found"
	ReasonMissingValue = "Missing operand"
)

// EvalError is an evaluation-time failure. it is a value, not a fault: the
// evaluator returns it instead of panicking and spreadsheets store it as a
// cell's value.
type EvalError struct {
	Reason string
}

func (e *EvalError) Error() string {
	return e.Reason
}

// NewEvalError creates an evaluation error with the given reason
func NewEvalError(reason string) *EvalError {
	return &EvalError{Reason: reason}
}
