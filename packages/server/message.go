package server

import (
	"encoding/json"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// client -> server operations
const (
	OpSet      = "set"
	OpGet      = "get"
	OpSnapshot = "snapshot"
)

// server -> client message types
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// Request is a single operation sent by a client.
type Request struct {
	Op       string `json:"op"`
	Name     string `json:"name,omitempty"`
	Contents string `json:"contents,omitempty"`
}

// CellUpdate is the display form of one cell. empty contents mean the cell
// was cleared.
type CellUpdate struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
	Value    string `json:"value"`
}

// Message is what the server pushes to clients.
type Message struct {
	Type    string       `json:"type"`
	Cells   []CellUpdate `json:"cells,omitempty"`
	Message string       `json:"message,omitempty"`
}

func updateFor(sheet *spreadsheet.Spreadsheet, names []string) Message {
	found := make(map[string]spreadsheet.Cell, len(names))
	for _, cell := range sheet.Cells(names...) {
		found[cell.Name] = cell
	}

	msg := Message{Type: TypeUpdate, Cells: make([]CellUpdate, 0, len(names))}
	for _, name := range names {
		update := CellUpdate{Name: name}
		if cell, ok := found[name]; ok {
			update.Contents = cell.Contents.String()
			update.Value = cell.Value.String()
		}
		msg.Cells = append(msg.Cells, update)
	}
	return msg
}

func errorFor(err error) Message {
	return Message{Type: TypeError, Message: err.Error()}
}

func encode(msg Message) []byte {
	// Message only holds strings, marshalling cannot fail
	data, _ := json.Marshal(msg)
	return data
}
