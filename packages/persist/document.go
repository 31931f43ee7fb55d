// Package persist reads and writes whole spreadsheet documents: XML and YAML
// files on disk, and named snapshots in a SQLite database.
package persist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrMalformed is wrapped by every decode failure
var ErrMalformed = errors.New("malformed spreadsheet document")

// CellRecord is one non-empty cell as it is stored: its normalized name and
// its raw contents ("=" + canonical formula for formula cells)
type CellRecord struct {
	Name     string `yaml:"name" json:"name"`
	Contents string `yaml:"contents" json:"contents"`
}

// Document is the persisted form of a spreadsheet
type Document struct {
	Version string       `yaml:"version" json:"version"`
	Cells   []CellRecord `yaml:"cells" json:"cells"`
}

// Codec encodes and decodes documents in one file format
type Codec interface {
	Encode(w io.Writer, doc *Document) error
	Decode(r io.Reader) (*Document, error)
	Name() string
}

// CodecForPath picks a codec by file extension. .yaml and .yml select YAML,
// everything else is XML.
func CodecForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}
	default:
		return XMLCodec{}
	}
}

// WriteFile encodes doc next to path and renames it into place, so a failed
// write never leaves a partial document behind
func WriteFile(path string, doc *Document) (err error) {
	codec := CodecForPath(path)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = codec.Encode(tmp, doc); err != nil {
		return fmt.Errorf("failed to encode %s document: %w", codec.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move document into place: %w", err)
	}
	return nil
}

// ReadFile decodes the document at path
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	codec := CodecForPath(path)
	doc, err := codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// SavedVersion returns the version tag of the document at path without
// keeping its cells
func SavedVersion(path string) (string, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return doc.Version, nil
}

// validate checks the fields every codec requires
func (d *Document) validate() error {
	if d.Version == "" {
		return fmt.Errorf("%w: missing version", ErrMalformed)
	}
	for i, cell := range d.Cells {
		if cell.Name == "" {
			return fmt.Errorf("%w: cell %d has no name", ErrMalformed, i)
		}
	}
	return nil
}
