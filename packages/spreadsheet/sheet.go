// Package spreadsheet stores named cells holding text, numbers or formulas
// and keeps every formula cell consistent with the cells it references.
package spreadsheet

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/vogtb/go-spreadsheet/packages/depgraph"
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/logging"
)

// AppErrorCode represents gRPC-style error codes for application-level errors.
// note that we are skipping error codes that don't make sense for our use-case,
// like unauthenticated, or permission denied.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// InvalidArgument indicates client specified an invalid argument, such
	// as a malformed cell name or formula.
	InvalidArgument AppErrorCode = 3

	// NotFound means a requested file or snapshot was not found.
	NotFound AppErrorCode = 5

	// FailedPrecondition indicates operation was rejected because the
	// system is not in a state required for the operation's execution.
	FailedPrecondition AppErrorCode = 9

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal AppErrorCode = 13

	// DataLoss indicates a document could not be read or written intact.
	DataLoss AppErrorCode = 15
)

// sentinels for the error taxonomy, test with errors.Is
var (
	ErrInvalidName   = errors.New("invalid cell name")
	ErrFormulaFormat = formula.ErrFormat
	ErrCircular      = depgraph.ErrCircular
	ErrPersistence   = errors.New("spreadsheet read/write error")
)

// AppError represents errors at the application level (not formula
// evaluation errors, which are stored as cell values)
type AppError struct {
	Code    AppErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// cellNamePattern is the syntax every normalized cell name must have
var cellNamePattern = regexp.MustCompile(`^[a-zA-Z]+[0-9]+$`)

// Spreadsheet is the store: it combines the cell table, the dependency graph,
// formula parsing and evaluation into one API. all methods are safe for
// concurrent use; readers see either the state before or after a mutation.
type Spreadsheet struct {
	mu        sync.RWMutex
	storage   *Storage
	isValid   func(string) bool
	normalize func(string) string
	version   string
	changed   bool
	revision  uint64
	logger    logging.Logger
}

// Option configures a Spreadsheet
type Option func(*Spreadsheet)

// WithLogger sets the logger used by the spreadsheet
func WithLogger(logger logging.Logger) Option {
	return func(s *Spreadsheet) {
		s.logger = logger.WithComponent("spreadsheet")
	}
}

// New creates an empty spreadsheet. a cell name is valid when its
// normalized form is letters followed by digits and isValid accepts it.
func New(isValid func(string) bool, normalize func(string) string, version string, opts ...Option) *Spreadsheet {
	if isValid == nil {
		isValid = formula.AnyVariable
	}
	if normalize == nil {
		normalize = formula.Identity
	}
	s := &Spreadsheet{
		storage:   NewStorage(),
		isValid:   isValid,
		normalize: normalize,
		version:   version,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefault creates a spreadsheet that accepts every well-formed name as
// typed, with version "default"
func NewDefault(opts ...Option) *Spreadsheet {
	return New(nil, nil, "default", opts...)
}

// validVariable is the policy formulas in this sheet are parsed with
func (s *Spreadsheet) validVariable(name string) bool {
	return cellNamePattern.MatchString(name) && s.isValid(name)
}

// canonicalName normalizes name and checks it
func (s *Spreadsheet) canonicalName(name string) (string, error) {
	normalized := s.normalize(name)
	if !s.validVariable(normalized) {
		return "", NewApplicationError(InvalidArgument,
			fmt.Sprintf("variable '%s' is not considered a valid variable", name), ErrInvalidName)
	}
	return normalized, nil
}

// classify turns raw user input into contents
func (s *Spreadsheet) classify(raw string) (Contents, error) {
	if v, ok := parseNumber(raw); ok {
		return NumberContents(v), nil
	}
	if strings.HasPrefix(raw, "=") {
		f, err := formula.Parse(raw[1:], s.normalize, s.validVariable)
		if err != nil {
			return Contents{}, NewApplicationError(InvalidArgument,
				fmt.Sprintf("invalid formula '%s': %v", raw, err), err)
		}
		return FormulaContents(f), nil
	}
	return TextContents(raw), nil
}

// SetContentsOfCell classifies content as a number, a formula (leading "=")
// or text, stores it in the named cell and recalculates everything that
// depends on it. the returned names are the cell itself plus every cell
// that was recalculated, sorted.
//
// the change is computed against a speculative view of the dependency graph
// and only committed when no cycle was found, so a rejected call leaves the
// spreadsheet untouched.
func (s *Spreadsheet) SetContentsOfCell(name, content string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, err := s.canonicalName(name)
	if err != nil {
		s.logger.Warn("rejected cell name", logging.F("cell", name), logging.Err(err))
		return nil, err
	}

	contents, err := s.classify(content)
	if err != nil {
		s.logger.Warn("rejected formula", logging.F("cell", canonical), logging.Err(err))
		return nil, err
	}

	var dependees []string
	if contents.Type == ContentTypeFormula {
		dependees = contents.Formula.Variables()
		for _, v := range dependees {
			if v == canonical {
				circ := &depgraph.CircularError{Path: []string{canonical, canonical}}
				return nil, s.circular(canonical, circ)
			}
		}
	}

	// phase one: order the recalculation against the graph as it would be
	overlay := s.storage.graph.WithDependees(canonical, dependees)
	order, err := depgraph.CalculationOrder(overlay, canonical)
	if err != nil {
		return nil, s.circular(canonical, err)
	}

	// phase two: commit, nothing below can fail
	overlay.Commit()
	s.storage.install(canonical, contents)
	s.storage.recalculate(order)
	s.changed = true
	s.revision++

	affected := make([]string, len(order))
	copy(affected, order)
	sort.Strings(affected)

	s.logger.Debug("cell committed",
		logging.F("cell", canonical), logging.F("contents", contents.String()), logging.F("affected", len(affected)))
	return affected, nil
}

func (s *Spreadsheet) circular(name string, err error) error {
	appErr := NewApplicationError(FailedPrecondition,
		fmt.Sprintf("cell '%s' would depend on itself: %v", name, err), err)
	s.logger.Warn("rejected circular formula", logging.F("cell", name), logging.Err(err))
	return appErr
}

// CellContents returns the contents of a cell. an absent cell has empty text
// contents.
func (s *Spreadsheet) CellContents(name string) (Contents, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, err := s.canonicalName(name)
	if err != nil {
		return Contents{}, err
	}
	if cell, exists := s.storage.cells[canonical]; exists {
		return cell.Contents, nil
	}
	return TextContents(""), nil
}

// CellValue returns the value of a cell. an absent cell has an empty text
// value.
func (s *Spreadsheet) CellValue(name string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, err := s.canonicalName(name)
	if err != nil {
		return Value{}, err
	}
	if cell, exists := s.storage.cells[canonical]; exists {
		return cell.Value, nil
	}
	return TextValue(""), nil
}

// Cells returns copies of the named cells that exist, in the given order.
// names must already be canonical; unknown names are skipped.
func (s *Spreadsheet) Cells(names ...string) []Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Cell, 0, len(names))
	for _, name := range names {
		if cell, exists := s.storage.cells[name]; exists {
			result = append(result, *cell)
		}
	}
	return result
}

// NamesOfAllNonemptyCells returns every cell name with non-empty contents,
// sorted
func (s *Spreadsheet) NamesOfAllNonemptyCells() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storage.names()
}

// DirectDependents returns the cells whose formulas reference name directly
func (s *Spreadsheet) DirectDependents(name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, err := s.canonicalName(name)
	if err != nil {
		return nil, err
	}
	return s.storage.graph.Dependents(canonical), nil
}

// CellsToRecalculate returns the named cells and everything that depends on
// them, ordered so that every cell comes after the cells it references
func (s *Spreadsheet) CellsToRecalculate(names ...string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := make([]string, 0, len(names))
	for _, name := range names {
		canonical, err := s.canonicalName(name)
		if err != nil {
			return nil, err
		}
		start = append(start, canonical)
	}

	order, err := depgraph.CalculationOrder(s.storage.graph, start...)
	if err != nil {
		return nil, NewApplicationError(FailedPrecondition, err.Error(), err)
	}
	return order, nil
}

// DependencyCount returns the number of dependency pairs between cells
func (s *Spreadsheet) DependencyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storage.graph.Size()
}

// Changed reports whether the spreadsheet was modified since it was created,
// loaded or last saved
func (s *Spreadsheet) Changed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Version returns the version tag written to saved documents
func (s *Spreadsheet) Version() string {
	return s.version
}

// CanonicalName returns the normalized form of name, or ErrInvalidName if
// the normalized name is not a valid cell name for this sheet
func (s *Spreadsheet) CanonicalName(name string) (string, error) {
	return s.canonicalName(name)
}

// RunnableSpreadsheet provides a chainable interface for
// spreadsheet operations that automatically handles errors.
// once an error occurs, all subsequent operations become no-ops.
type RunnableSpreadsheet struct {
	spreadsheet *Spreadsheet
	err         error
	printLn     func(string)
	affected    []string
}

// NewRunnableSpreadsheet creates a new RunnableSpreadsheet. printLn is
// used by Log.
func NewRunnableSpreadsheet(s *Spreadsheet, printLn func(string)) *RunnableSpreadsheet {
	if printLn == nil {
		printLn = func(string) {}
	}
	return &RunnableSpreadsheet{
		spreadsheet: s,
		printLn:     printLn,
	}
}

// Set sets the contents of a cell (chainable)
func (r *RunnableSpreadsheet) Set(name, content string) *RunnableSpreadsheet {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	r.affected, r.err = r.spreadsheet.SetContentsOfCell(name, content)
	return r
}

// SetBatch sets multiple cells in name order (chainable)
func (r *RunnableSpreadsheet) SetBatch(cells map[string]string) *RunnableSpreadsheet {
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.Set(name, cells[name])
	}
	return r
}

// Affected returns the names affected by the last successful Set
func (r *RunnableSpreadsheet) Affected() []string {
	return r.affected
}

// Value returns a cell's value, recording any error in the chain
func (r *RunnableSpreadsheet) Value(name string) Value {
	if r.err != nil {
		return Value{}
	}
	val, err := r.spreadsheet.CellValue(name)
	if err != nil {
		r.err = err
		return Value{}
	}
	return val
}

// Log prints a cell's value using the provided printLn function (chainable)
func (r *RunnableSpreadsheet) Log(name string) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	val, err := r.spreadsheet.CellValue(name)
	if err != nil {
		r.err = err
		return r
	}
	r.printLn(fmt.Sprintf("%s: %s", name, val.String()))
	return r
}

// Then runs fn on the chain unless it has already failed
func (r *RunnableSpreadsheet) Then(fn func(*RunnableSpreadsheet) *RunnableSpreadsheet) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	return fn(r)
}

// OnError lets fn replace or clear the current error
func (r *RunnableSpreadsheet) OnError(fn func(error) error) *RunnableSpreadsheet {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if there's an error (chainable)
func (r *RunnableSpreadsheet) Must() *RunnableSpreadsheet {
	if r.err != nil {
		panic(r.err)
	}
	return r
}

// Error returns the first error of the chain
func (r *RunnableSpreadsheet) Error() error {
	return r.err
}

// Spreadsheet returns the underlying spreadsheet
func (r *RunnableSpreadsheet) Spreadsheet() *Spreadsheet {
	return r.spreadsheet
}
