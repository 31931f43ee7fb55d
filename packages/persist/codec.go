package persist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type xmlDocument struct {
	XMLName xml.Name  `xml:"spreadsheet"`
	Version string    `xml:"version,attr"`
	Cells   []xmlCell `xml:"cell"`
}

type xmlCell struct {
	Name     string `xml:"name"`
	Contents string `xml:"contents"`
}

// XMLCodec reads and writes
//
//	<spreadsheet version="1.0">
//		<cell>
//			<name>A1</name>
//			<contents>=B1*2</contents>
//		</cell>
//	</spreadsheet>
type XMLCodec struct{}

// Name returns the name of the codec
func (XMLCodec) Name() string { return "xml" }

// Encode writes doc as tab-indented XML
func (XMLCodec) Encode(w io.Writer, doc *Document) error {
	out := xmlDocument{Version: doc.Version}
	for _, cell := range doc.Cells {
		out.Cells = append(out.Cells, xmlCell(cell))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode reads an XML document. a missing version or a nameless cell is
// malformed.
func (XMLCodec) Decode(r io.Reader) (*Document, error) {
	var in xmlDocument
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := &Document{Version: in.Version}
	for _, cell := range in.Cells {
		doc.Cells = append(doc.Cells, CellRecord(cell))
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// YAMLCodec reads and writes documents as YAML
type YAMLCodec struct{}

// Name returns the name of the codec
func (YAMLCodec) Name() string { return "yaml" }

// Encode writes doc as YAML
func (YAMLCodec) Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a YAML document
func (YAMLCodec) Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
