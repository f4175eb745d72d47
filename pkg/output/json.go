package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter formats output as JSON, indented when pretty.
type JSONFormatter struct {
	name   string
	pretty bool
	indent string
}

// NewJSONFormatter creates the compact "json" formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{name: "json", indent: "  "}
}

// NewPrettyJSONFormatter creates the indented "json-pretty" formatter.
func NewPrettyJSONFormatter() *JSONFormatter {
	return &JSONFormatter{name: "json-pretty", pretty: true, indent: "    "}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return f.name
}

// Supports returns true for any data.
func (f *JSONFormatter) Supports(any) bool {
	return true
}

// Format encodes data followed by a newline. Raw JSON bytes are
// re-indented rather than re-encoded.
func (f *JSONFormatter) Format(w io.Writer, data any, config *FormatConfig) error {
	pretty := f.pretty || (config != nil && config.Pretty)

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", f.indent)
	}

	if raw, ok := data.([]byte); ok {
		if !json.Valid(raw) {
			return fmt.Errorf("output is not valid JSON")
		}
		data = json.RawMessage(raw)
	}

	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// FormatError formats an error as a JSON object.
func (f *JSONFormatter) FormatError(w io.Writer, err error, config *FormatConfig) error {
	return f.Format(w, map[string]any{"error": err.Error()}, config)
}
