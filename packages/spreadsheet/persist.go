package spreadsheet

import (
	"errors"
	"fmt"
	"os"

	"github.com/vogtb/go-spreadsheet/packages/logging"
	"github.com/vogtb/go-spreadsheet/packages/persist"
)

func persistenceError(code AppErrorCode, message string, err error) *AppError {
	return NewApplicationError(code, message, fmt.Errorf("%w: %w", ErrPersistence, err))
}

// Document returns the persisted form of the spreadsheet, cells sorted by
// name. it fails if a stored name no longer satisfies the validity policy.
func (s *Spreadsheet) Document() (*persist.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, _, err := s.document()
	return doc, err
}

// document must be called with the lock held
func (s *Spreadsheet) document() (*persist.Document, uint64, error) {
	doc := &persist.Document{Version: s.version}
	for _, name := range s.storage.names() {
		if !s.validVariable(name) {
			return nil, 0, persistenceError(FailedPrecondition,
				fmt.Sprintf("invalid variable '%s' found within the spreadsheet", name), ErrInvalidName)
		}
		doc.Cells = append(doc.Cells, persist.CellRecord{
			Name:     name,
			Contents: s.storage.cells[name].Contents.String(),
		})
	}
	return doc, s.revision, nil
}

// Save writes the spreadsheet to path, XML unless the extension is .yaml or
// .yml. the file is written outside the lock; changed is only cleared if no
// edit happened meanwhile.
func (s *Spreadsheet) Save(path string) error {
	s.mu.RLock()
	doc, revision, err := s.document()
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn("save rejected", logging.F("path", path), logging.Err(err))
		return err
	}

	if err := persist.WriteFile(path, doc); err != nil {
		s.logger.Error("save failed", logging.F("path", path), logging.Err(err))
		return persistenceError(DataLoss, fmt.Sprintf("failed to save '%s': %v", path, err), err)
	}

	s.mu.Lock()
	if s.revision == revision {
		s.changed = false
	}
	s.mu.Unlock()

	s.logger.Info("spreadsheet saved", logging.F("path", path), logging.F("cells", len(doc.Cells)))
	return nil
}

// FromDocument builds a new spreadsheet from doc. the document's version must
// equal version and every cell must be accepted; otherwise nothing is
// returned.
func FromDocument(doc *persist.Document, isValid func(string) bool, normalize func(string) string, version string, opts ...Option) (*Spreadsheet, error) {
	if doc.Version != version {
		return nil, persistenceError(FailedPrecondition,
			fmt.Sprintf("version mismatch: document is '%s', expected '%s'", doc.Version, version),
			errors.New("version mismatch"))
	}

	s := New(isValid, normalize, version, opts...)
	for _, cell := range doc.Cells {
		if _, err := s.SetContentsOfCell(cell.Name, cell.Contents); err != nil {
			return nil, persistenceError(DataLoss,
				fmt.Sprintf("cell '%s' could not be loaded: %v", cell.Name, err), err)
		}
	}
	s.changed = false
	return s, nil
}

// Load reads the spreadsheet saved at path. it fails with ErrPersistence if
// the file is unreadable or malformed, its version differs from version, or
// any cell is rejected.
func Load(path string, isValid func(string) bool, normalize func(string) string, version string, opts ...Option) (*Spreadsheet, error) {
	doc, err := persist.ReadFile(path)
	if err != nil {
		code := DataLoss
		if errors.Is(err, os.ErrNotExist) {
			code = NotFound
		}
		return nil, persistenceError(code, fmt.Sprintf("failed to load '%s': %v", path, err), err)
	}

	s, err := FromDocument(doc, isValid, normalize, version, opts...)
	if err != nil {
		return nil, err
	}
	s.logger.Info("spreadsheet loaded", logging.F("path", path), logging.F("cells", len(doc.Cells)))
	return s, nil
}
