package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/pterm/pterm"
)

// TableFormatter formats output as a table using pterm.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Supports returns true for non-empty slices and maps, structs, and raw
// JSON holding one of those.
func (f *TableFormatter) Supports(data any) bool {
	if data == nil {
		return false
	}
	if raw, ok := data.([]byte); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return false
		}
		return f.Supports(decoded)
	}

	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() > 0
	case reflect.Struct:
		return true
	case reflect.Ptr:
		return !v.IsNil() && f.Supports(v.Elem().Interface())
	}
	return false
}

// Format renders slices as one row per element, and maps or structs as
// two-column key/value tables.
func (f *TableFormatter) Format(w io.Writer, data any, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}
	if data == nil {
		return fmt.Errorf("cannot format nil data as table")
	}

	if raw, ok := data.([]byte); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("failed to decode JSON for table output: %w", err)
		}
		data = decoded
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("cannot format nil pointer as table")
		}
		v = v.Elem()
	}

	var rows [][]string
	var err error
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		rows, err = f.formatSlice(v, config)
	case reflect.Map:
		rows, err = f.formatMap(v, config)
	case reflect.Struct:
		rows = f.formatStruct(v, config)
	default:
		return fmt.Errorf("unsupported data type for table formatting: %s", v.Kind())
	}
	if err != nil {
		return err
	}

	if config.MaxWidth > 3 {
		for _, row := range rows {
			for i, cell := range row {
				if len(cell) > config.MaxWidth {
					row[i] = cell[:config.MaxWidth-3] + "..."
				}
			}
		}
	}

	table := pterm.DefaultTable.WithHasHeader(config.ShowHeaders)
	if config.Colors {
		table = table.WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold))
	} else {
		pterm.DisableColor()
		defer pterm.EnableColor()
	}

	rendered, err := table.WithData(rows).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = io.WriteString(w, rendered+"\n")
	return err
}

func (f *TableFormatter) formatSlice(v reflect.Value, config *FormatConfig) ([][]string, error) {
	if v.Len() == 0 {
		return nil, fmt.Errorf("empty slice")
	}

	columns := config.Columns
	if len(columns) == 0 {
		columns = detectColumns(v.Index(0))
	}
	if len(columns) == 0 {
		// scalars: a single VALUE column
		rows := [][]string{}
		if config.ShowHeaders {
			rows = append(rows, []string{"VALUE"})
		}
		for i := 0; i < v.Len(); i++ {
			rows = append(rows, []string{formatValue(v.Index(i).Interface())})
		}
		return rows, nil
	}

	rows := make([][]string, 0, v.Len()+1)
	if config.ShowHeaders {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = col.Header
			if headers[i] == "" {
				headers[i] = strings.ToUpper(col.Field)
			}
		}
		rows = append(rows, headers)
	}

	for i := 0; i < v.Len(); i++ {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = formatValue(extractField(v.Index(i), col.Field))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *TableFormatter) formatMap(v reflect.Value, config *FormatConfig) ([][]string, error) {
	if v.Len() == 0 {
		return nil, fmt.Errorf("empty map")
	}

	rows := make([][]string, 0, v.Len()+1)
	if config.ShowHeaders {
		rows = append(rows, []string{"KEY", "VALUE"})
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	for _, key := range keys {
		rows = append(rows, []string{
			fmt.Sprint(key.Interface()),
			formatValue(v.MapIndex(key).Interface()),
		})
	}
	return rows, nil
}

func (f *TableFormatter) formatStruct(v reflect.Value, config *FormatConfig) [][]string {
	t := v.Type()
	rows := make([][]string, 0, t.NumField()+1)
	if config.ShowHeaders {
		rows = append(rows, []string{"FIELD", "VALUE"})
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		rows = append(rows, []string{fieldName(field), formatValue(v.Field(i).Interface())})
	}
	return rows
}

// detectColumns derives columns from a struct's exported fields or a map's
// sorted keys.
func detectColumns(v reflect.Value) []Column {
	v = indirect(v)

	var columns []Column
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := fieldName(field)
			columns = append(columns, Column{Field: name, Header: strings.ToUpper(name)})
		}
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		for _, key := range v.MapKeys() {
			keys = append(keys, fmt.Sprint(key.Interface()))
		}
		sort.Strings(keys)
		for _, key := range keys {
			columns = append(columns, Column{Field: key, Header: strings.ToUpper(key)})
		}
	}
	return columns
}

func extractField(v reflect.Value, field string) any {
	v = indirect(v)

	switch v.Kind() {
	case reflect.Map:
		for _, key := range v.MapKeys() {
			if fmt.Sprint(key.Interface()) == field {
				return v.MapIndex(key).Interface()
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() && (t.Field(i).Name == field || fieldName(t.Field(i)) == field) {
				return v.Field(i).Interface()
			}
		}
	}
	return nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// fieldName prefers the json tag name.
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = formatValue(p)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}
