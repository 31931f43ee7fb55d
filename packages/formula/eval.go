package formula

// Lookup resolves a normalized variable to a number. a non-nil error means
// the variable cannot be resolved; its message becomes the EvalError reason.
type Lookup func(name string) (float64, error)

// operatorRanks orders the four operators. note that '-' outranks '+' and
// '/' outranks '*', so "a+b-c" folds as a+(b-c) and "a*b/c" as a*(b/c).
var operatorRanks = map[string]int{
	"+": 0,
	"-": 1,
	"*": 2,
	"/": 3,
}

// rank returns the operator rank, or -1 for a left parenthesis
func rank(op string) int {
	if r, ok := operatorRanks[op]; ok {
		return r
	}
	return -1
}

// evalStack holds the operand and operator stacks of one evaluation
type evalStack struct {
	operands  []float64
	operators []string
}

func (s *evalStack) pushOperand(v float64) {
	s.operands = append(s.operands, v)
}

func (s *evalStack) pushOperator(op string) {
	s.operators = append(s.operators, op)
}

func (s *evalStack) topOperator() (string, bool) {
	if len(s.operators) == 0 {
		return "", false
	}
	return s.operators[len(s.operators)-1], true
}

func (s *evalStack) popOperator() string {
	op := s.operators[len(s.operators)-1]
	s.operators = s.operators[:len(s.operators)-1]
	return op
}

// fold pops the top operator and two operands and pushes left OP right
func (s *evalStack) fold() *EvalError {
	if len(s.operands) < 2 || len(s.operators) == 0 {
		return NewEvalError(ReasonMissingValue)
	}
	right := s.operands[len(s.operands)-1]
	left := s.operands[len(s.operands)-2]
	s.operands = s.operands[:len(s.operands)-2]

	var result float64
	switch op := s.popOperator(); op {
	case "+":
		result = left + right
	case "-":
		result = left - right
	case "*":
		result = left * right
	case "/":
		if right == 0 {
			return NewEvalError(ReasonDivideByZero)
		}
		result = left / right
	default:
		return NewEvalError(ReasonMissingParen)
	}
	s.pushOperand(result)
	return nil
}

// Evaluate computes the formula's value, resolving variables through lookup.
// it never panics: every failure comes back as an *EvalError, and a divide
// by zero or unresolvable variable stops evaluation immediately.
func (f *Formula) Evaluate(lookup Lookup) (float64, error) {
	stack := &evalStack{
		operands:  make([]float64, 0, len(f.tokens)),
		operators: make([]string, 0, 4),
	}

	for _, tok := range f.tokens {
		switch tok.Type {
		case TokenNumber:
			stack.pushOperand(tok.Number)

		case TokenVariable:
			value, err := lookup(tok.Value)
			if err != nil {
				return 0, NewEvalError(err.Error())
			}
			stack.pushOperand(value)

		case TokenLeftParen:
			// a left paren has rank -1, so nothing outside the group folds
			// into it until the matching right paren is seen
			stack.pushOperator(tok.Value)

		case TokenRightParen:
			for {
				op, ok := stack.topOperator()
				if !ok {
					return 0, NewEvalError(ReasonMissingParen)
				}
				if op == "(" {
					stack.popOperator()
					break
				}
				if err := stack.fold(); err != nil {
					return 0, err
				}
			}

		case TokenOperator:
			incoming := rank(tok.Value)
			for len(stack.operands) > 1 {
				op, ok := stack.topOperator()
				if !ok || rank(op) < incoming {
					break
				}
				if err := stack.fold(); err != nil {
					return 0, err
				}
			}
			stack.pushOperator(tok.Value)
		}
	}

	for len(stack.operators) > 0 {
		if err := stack.fold(); err != nil {
			return 0, err
		}
	}

	if len(stack.operands) != 1 {
		return 0, NewEvalError(ReasonMissingValue)
	}
	return stack.operands[0], nil
}
