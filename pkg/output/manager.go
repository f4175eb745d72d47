package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Manager selects formatters by name.
type Manager struct {
	formatters    map[string]Formatter
	defaultFormat string
	config        *FormatConfig
}

// NewManager creates a manager with the json, json-pretty, yaml, table and
// plain formatters registered.
func NewManager() *Manager {
	m := &Manager{
		formatters:    make(map[string]Formatter),
		defaultFormat: "plain",
		config:        NewFormatConfig(),
	}

	m.RegisterFormatter(NewJSONFormatter())
	m.RegisterFormatter(NewPrettyJSONFormatter())
	m.RegisterFormatter(NewYAMLFormatter())
	m.RegisterFormatter(NewTableFormatter())
	m.RegisterFormatter(NewPlainFormatter())

	return m
}

// RegisterFormatter registers a new formatter.
func (m *Manager) RegisterFormatter(formatter Formatter) {
	m.formatters[formatter.Name()] = formatter
}

// GetFormatter returns a formatter by name.
func (m *Manager) GetFormatter(name string) (Formatter, error) {
	formatter, ok := m.formatters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("formatter '%s' not found", name)
	}
	return formatter, nil
}

// Names returns the registered formatter names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.formatters))
	for name := range m.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaultFormat sets the format used when none is given.
func (m *Manager) SetDefaultFormat(format string) {
	m.defaultFormat = format
}

// SetConfig sets the format configuration.
func (m *Manager) SetConfig(config *FormatConfig) {
	m.config = config
}

// Config returns the current format configuration.
func (m *Manager) Config() *FormatConfig {
	return m.config
}

// Format formats data using the named format.
func (m *Manager) Format(w io.Writer, data any, format string) error {
	return m.FormatWithConfig(w, data, format, m.config)
}

// FormatWithConfig formats data using the named format and config.
func (m *Manager) FormatWithConfig(w io.Writer, data any, format string, config *FormatConfig) error {
	if format == "" {
		format = m.defaultFormat
	}

	formatter, err := m.GetFormatter(format)
	if err != nil {
		return err
	}
	if !formatter.Supports(data) {
		return fmt.Errorf("formatter '%s' does not support data type %T", format, data)
	}
	return formatter.Format(w, data, config)
}

// FormatError formats err in the named format; formats without an error
// representation print "Error: <message>".
func (m *Manager) FormatError(w io.Writer, err error, format string) error {
	if err == nil {
		return nil
	}
	if format == "" {
		format = m.defaultFormat
	}

	formatter, fmtErr := m.GetFormatter(format)
	if fmtErr == nil {
		if f, ok := formatter.(interface {
			FormatError(io.Writer, error, *FormatConfig) error
		}); ok {
			return f.FormatError(w, err, m.config)
		}
	}

	_, werr := fmt.Fprintf(w, "Error: %v\n", err)
	return werr
}
