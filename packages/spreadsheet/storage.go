package spreadsheet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vogtb/go-spreadsheet/packages/depgraph"
	"github.com/vogtb/go-spreadsheet/packages/formula"
)

const unresolvedPrefix = "variable '"

// Storage holds the cell table and the dependency graph keyed by the same
// normalized names. only non-empty cells are present in cells.
type Storage struct {
	cells map[string]*Cell
	graph *depgraph.DependencyGraph
}

// NewStorage creates empty storage
func NewStorage() *Storage {
	return &Storage{
		cells: make(map[string]*Cell),
		graph: depgraph.NewDependencyGraph(),
	}
}

// lookup resolves a name only if the cell currently holds a number
func (st *Storage) lookup(name string) (float64, error) {
	if cell, exists := st.cells[name]; exists && cell.Value.Type == ValueTypeNumber {
		return cell.Value.Number, nil
	}
	return 0, fmt.Errorf("%s%s' not found or not valid in spreadsheet", unresolvedPrefix, name)
}

// evaluate computes the value of contents against the current cell values
func (st *Storage) evaluate(contents Contents) Value {
	switch contents.Type {
	case ContentTypeNumber:
		return NumberValue(contents.Number)
	case ContentTypeFormula:
		result, err := contents.Formula.Evaluate(st.lookup)
		if err != nil {
			var evalErr *formula.EvalError
			if !errors.As(err, &evalErr) {
				evalErr = formula.NewEvalError(err.Error())
			}
			return ErrorValue(evalErr)
		}
		return NumberValue(result)
	default:
		return TextValue(contents.Text)
	}
}

// install puts contents in place, removing the cell when they are empty.
// the value is left for recalculate.
func (st *Storage) install(name string, contents Contents) {
	if contents.IsEmpty() {
		delete(st.cells, name)
		return
	}
	if cell, exists := st.cells[name]; exists {
		cell.Contents = contents
		return
	}
	st.cells[name] = &Cell{Name: name, Contents: contents}
}

// recalculate re-evaluates every present cell in order
func (st *Storage) recalculate(order []string) {
	for _, name := range order {
		cell, exists := st.cells[name]
		if !exists {
			continue
		}
		cell.Value = st.evaluate(cell.Contents)
	}
}

// names returns the names of all non-empty cells, sorted
func (st *Storage) names() []string {
	result := make([]string, 0, len(st.cells))
	for name := range st.cells {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
