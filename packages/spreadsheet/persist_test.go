package spreadsheet

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/persist"
)

func populated(t *testing.T) *Spreadsheet {
	t.Helper()
	s := New(nil, strings.ToUpper, "1.0")
	r := NewRunnableSpreadsheet(s, nil).
		Set("a1", "2.00").
		Set("b1", "= a1 * 3").
		Set("c1", "label").
		Set("d1", "=b1/0")
	require.NoError(t, r.Error())
	return s
}

func TestDocument(t *testing.T) {
	doc, err := populated(t).Document()
	require.NoError(t, err)
	assert.Equal(t, &persist.Document{
		Version: "1.0",
		Cells: []persist.CellRecord{
			{Name: "A1", Contents: "2"},
			{Name: "B1", Contents: "=A1*3"},
			{Name: "C1", Contents: "label"},
			{Name: "D1", Contents: "=B1/0"},
		},
	}, doc)
}

func TestSaveAndLoad(t *testing.T) {
	for _, file := range []string{"sheet.xml", "sheet.yaml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			s := populated(t)
			require.True(t, s.Changed())

			require.NoError(t, s.Save(path))
			assert.False(t, s.Changed())

			loaded, err := Load(path, nil, strings.ToUpper, "1.0")
			require.NoError(t, err)
			assert.False(t, loaded.Changed())
			assert.Equal(t, s.NamesOfAllNonemptyCells(), loaded.NamesOfAllNonemptyCells())

			for _, name := range s.NamesOfAllNonemptyCells() {
				want, _ := s.CellContents(name)
				got, _ := loaded.CellContents(name)
				assert.True(t, want.Equal(got), "%s: %s != %s", name, want, got)

				wantValue, _ := s.CellValue(name)
				gotValue, _ := loaded.CellValue(name)
				assert.Equal(t, wantValue.String(), gotValue.String(), name)
			}
		})
	}
}

func TestLoadOrderDoesNotMatter(t *testing.T) {
	doc := &persist.Document{
		Version: "1.0",
		Cells: []persist.CellRecord{
			{Name: "C1", Contents: "=B1+1"},
			{Name: "B1", Contents: "=A1*2"},
			{Name: "A1", Contents: "5"},
		},
	}
	s, err := FromDocument(doc, nil, nil, "1.0")
	require.NoError(t, err)

	v, err := s.CellValue("C1")
	require.NoError(t, err)
	assert.Equal(t, 11.0, v.Number)
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()

	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		return path
	}

	tests := []struct {
		name string
		path string
		code AppErrorCode
	}{
		{"missing", filepath.Join(dir, "absent.xml"), NotFound},
		{"malformed", write("bad.xml", "<spreadsheet"), DataLoss},
		{"version mismatch", write("v2.xml", `<spreadsheet version="2.0"></spreadsheet>`), FailedPrecondition},
		{"circular", write("cycle.xml", `<spreadsheet version="1.0">
			<cell><name>A1</name><contents>=B1</contents></cell>
			<cell><name>B1</name><contents>=A1</contents></cell>
		</spreadsheet>`), DataLoss},
		{"invalid name", write("name.xml", `<spreadsheet version="1.0">
			<cell><name>A_1</name><contents>1</contents></cell>
		</spreadsheet>`), DataLoss},
		{"bad formula", write("formula.yaml", "version: \"1.0\"\ncells:\n  - name: A1\n    contents: \"=1+\"\n"), DataLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(tt.path, nil, strings.ToUpper, "1.0")
			assert.Nil(t, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPersistence), "got %v", err)

			var appErr *AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestSaveRejectsNamesInvalidUnderPolicy(t *testing.T) {
	allowed := map[string]bool{"A1": true}
	isValid := func(name string) bool { return allowed[name] }

	s := New(isValid, nil, "1.0")
	_, err := s.SetContentsOfCell("A1", "1")
	require.NoError(t, err)

	// the policy tightens after the cell was written
	delete(allowed, "A1")
	path := filepath.Join(t.TempDir(), "sheet.xml")
	err = s.Save(path)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, s.Changed())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveToUnwritablePath(t *testing.T) {
	s := populated(t)
	err := s.Save(filepath.Join(t.TempDir(), "no", "such", "dir", "sheet.xml"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, s.Changed())
}
