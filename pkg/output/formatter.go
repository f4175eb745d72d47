// Package output renders results, replies and listings for the terminal.
//
// Every output format is a Formatter registered with a Manager under its
// name: json, json-pretty, yaml, table and plain.
package output

import (
	"io"
)

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes data to w.
	Format(w io.Writer, data any, config *FormatConfig) error

	// Name returns the name of the formatter (e.g., "json", "yaml", "table").
	Name() string

	// Supports returns true if the formatter can handle the given data type.
	Supports(data any) bool
}

// Column selects one field of a table row.
type Column struct {
	// Field is a struct field name, a json tag, or a map key.
	Field string
	// Header defaults to the upper-cased field.
	Header string
}

// FormatConfig contains configuration options for formatting output.
type FormatConfig struct {
	// Pretty enables indentation for JSON.
	Pretty bool

	// Colors enables colored output.
	Colors bool

	// ShowHeaders controls header display for tables.
	ShowHeaders bool

	// Columns fixes table columns; they are detected from the first row
	// otherwise.
	Columns []Column

	// MaxWidth truncates table cells; zero means unlimited.
	MaxWidth int
}

// NewFormatConfig creates a new FormatConfig with sensible defaults.
func NewFormatConfig() *FormatConfig {
	return &FormatConfig{
		Colors:      true,
		ShowHeaders: true,
	}
}

// WithPretty sets the pretty-printing option.
func (c *FormatConfig) WithPretty(pretty bool) *FormatConfig {
	c.Pretty = pretty
	return c
}

// WithColors sets the colors option.
func (c *FormatConfig) WithColors(colors bool) *FormatConfig {
	c.Colors = colors
	return c
}

// WithColumns fixes the table columns.
func (c *FormatConfig) WithColumns(columns ...Column) *FormatConfig {
	c.Columns = columns
	return c
}

// WithMaxWidth sets the maximum width of a table cell.
func (c *FormatConfig) WithMaxWidth(width int) *FormatConfig {
	c.MaxWidth = width
	return c
}
