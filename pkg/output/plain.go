package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// PlainFormatter writes human-readable text: raw bytes and strings as they
// are, lists one item per line, maps as sorted "key: value" lines.
type PlainFormatter struct{}

// NewPlainFormatter creates a new plain formatter.
func NewPlainFormatter() *PlainFormatter {
	return &PlainFormatter{}
}

// Name returns the formatter name.
func (f *PlainFormatter) Name() string {
	return "plain"
}

// Supports returns true for any data.
func (f *PlainFormatter) Supports(any) bool {
	return true
}

// Format writes data as text, ending with a newline unless empty.
func (f *PlainFormatter) Format(w io.Writer, data any, _ *FormatConfig) error {
	text := plainText(data)
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

// FormatError writes the error message prefixed with "Error: ".
func (f *PlainFormatter) FormatError(w io.Writer, err error, _ *FormatConfig) error {
	_, werr := fmt.Fprintf(w, "Error: %v\n", err)
	return werr
}

func plainText(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case []string:
		return strings.Join(v, "\n")
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		lines := make([]string, rv.Len())
		for i := range lines {
			lines[i] = formatValue(rv.Index(i).Interface())
		}
		return strings.Join(lines, "\n")
	case reflect.Map:
		lines := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			lines = append(lines, fmt.Sprintf("%v: %s", key.Interface(), formatValue(rv.MapIndex(key).Interface())))
		}
		sort.Strings(lines)
		return strings.Join(lines, "\n")
	}
	return fmt.Sprint(data)
}
