package logging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JSONFormatter formats log entries as one JSON object per line
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format formats a log entry as JSON
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	output := make(map[string]any)

	output["timestamp"] = entry.Timestamp.Format(time.RFC3339)
	output["level"] = entry.Level.String()
	output["message"] = entry.Message

	if entry.Component != "" {
		output["component"] = entry.Component
	}

	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = field.Value
		}
		output["fields"] = fields
	}

	data, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Name returns the name of the formatter
func (f *JSONFormatter) Name() string {
	return "json"
}

// TextFormatter formats log entries as plain text
type TextFormatter struct {
	// IncludeTimestamp controls whether to include the timestamp
	IncludeTimestamp bool
}

// NewTextFormatter creates a new text formatter with default settings
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{IncludeTimestamp: true}
}

// Format formats a log entry as plain text. fields keep the order they were
// given in.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var sb strings.Builder

	if f.IncludeTimestamp {
		fmt.Fprintf(&sb, "[%s] ", entry.Timestamp.Format("2006-01-02 15:04:05.000"))
	}
	fmt.Fprintf(&sb, "[%s] ", entry.Level.String())
	if entry.Component != "" {
		fmt.Fprintf(&sb, "[%s] ", entry.Component)
	}
	sb.WriteString(entry.Message)

	for _, field := range entry.Fields {
		fmt.Fprintf(&sb, " %s=%v", field.Key, field.Value)
	}

	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// Name returns the name of the formatter
func (f *TextFormatter) Name() string {
	return "text"
}
