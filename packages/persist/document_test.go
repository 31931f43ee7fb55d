package persist

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		Version: "1.0",
		Cells: []CellRecord{
			{Name: "A1", Contents: "5"},
			{Name: "B1", Contents: "=A1*2"},
			{Name: "C1", Contents: "hello <world> & \"friends\""},
		},
	}
}

func TestXMLEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XMLCodec{}.Encode(&buf, &Document{
		Version: "1.0",
		Cells:   []CellRecord{{Name: "A1", Contents: "=B1+1"}},
	}))

	expected := `<?xml version="1.0" encoding="UTF-8"?>
<spreadsheet version="1.0">
	<cell>
		<name>A1</name>
		<contents>=B1+1</contents>
	</cell>
</spreadsheet>
`
	assert.Equal(t, expected, buf.String())
}

func TestCodecRoundTrip(t *testing.T) {
	for _, codec := range []Codec{XMLCodec{}, YAMLCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, codec.Encode(&buf, sampleDocument()))

			doc, err := codec.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, sampleDocument(), doc)
		})
	}
}

func TestXMLDecodeSpaceIndented(t *testing.T) {
	input := `<?xml version="1.0" encoding="utf-8"?>
<spreadsheet version="default">
  <cell>
    <name>A1</name>
    <contents>2</contents>
  </cell>
  <cell>
    <name>A2</name>
    <contents>=A1*3</contents>
  </cell>
</spreadsheet>`

	doc, err := XMLCodec{}.Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "default", doc.Version)
	assert.Equal(t, []CellRecord{{Name: "A1", Contents: "2"}, {Name: "A2", Contents: "=A1*3"}}, doc.Cells)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		input string
	}{
		{"xml not xml", XMLCodec{}, "this is not xml"},
		{"xml wrong root", XMLCodec{}, `<workbook version="1.0"></workbook>`},
		{"xml no version", XMLCodec{}, `<spreadsheet><cell><name>A1</name><contents>1</contents></cell></spreadsheet>`},
		{"xml nameless cell", XMLCodec{}, `<spreadsheet version="1.0"><cell><contents>1</contents></cell></spreadsheet>`},
		{"yaml empty", YAMLCodec{}, ""},
		{"yaml garbage", YAMLCodec{}, "version: [1, 2"},
		{"yaml no version", YAMLCodec{}, "cells:\n  - name: A1\n    contents: \"1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tt.codec.Decode(strings.NewReader(tt.input))
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestCodecForPath(t *testing.T) {
	assert.Equal(t, "yaml", CodecForPath("a/b.yaml").Name())
	assert.Equal(t, "yaml", CodecForPath("B.YML").Name())
	assert.Equal(t, "xml", CodecForPath("sheet.xml").Name())
	assert.Equal(t, "xml", CodecForPath("sheet.sprd").Name())
}

func TestWriteAndReadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"sheet.xml", "sheet.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, sampleDocument()))

			doc, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, sampleDocument(), doc)

			version, err := SavedVersion(path)
			require.NoError(t, err)
			assert.Equal(t, "1.0", version)
		})
	}

	// no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteFileFailureKeepsOldDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.xml")
	require.NoError(t, WriteFile(path, sampleDocument()))

	// a directory in the way of the rename target makes the move fail
	blocked := filepath.Join(dir, "blocked.xml")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), []byte("x"), 0o644))
	assert.Error(t, WriteFile(blocked, sampleDocument()))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument(), doc)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
