package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Supports returns true for any data.
func (f *YAMLFormatter) Supports(any) bool {
	return true
}

// Format writes data as YAML. Raw JSON bytes are decoded first so a JSON
// reply renders as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, data any, _ *FormatConfig) error {
	if data == nil {
		_, err := w.Write([]byte("null\n"))
		return err
	}

	if raw, ok := data.([]byte); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("failed to decode JSON for YAML output: %w", err)
		}
		data = decoded
	}

	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	encoder.SetIndent(2)

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// FormatError formats an error as a YAML mapping.
func (f *YAMLFormatter) FormatError(w io.Writer, err error, config *FormatConfig) error {
	return f.Format(w, map[string]any{"error": err.Error()}, config)
}
