// Package secrets detects and masks secrets in command arguments and log
// output.
//
// Detection has two layers: argument names matching a glob pattern
// (client_secret, *password*) and values matching a known secret format
// (cephx keys, bearer tokens) wherever they appear.
package secrets

import (
	"fmt"
	"regexp"
	"strings"
)

// Detector finds and masks secrets.
type Detector struct {
	style         Style
	fieldPatterns []*regexp.Regexp
	valuePatterns []*compiledValuePattern
}

type compiledValuePattern struct {
	name    string
	pattern *regexp.Regexp
}

// NewDetector compiles field globs and value patterns.
func NewDetector(style Style, fields []string, values []ValuePattern) (*Detector, error) {
	d := &Detector{style: style}

	for _, glob := range fields {
		re, err := globToRegex(glob)
		if err != nil {
			return nil, fmt.Errorf("invalid field pattern %q: %w", glob, err)
		}
		d.fieldPatterns = append(d.fieldPatterns, re)
	}

	for _, vp := range values {
		re, err := regexp.Compile(vp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid value pattern %q: %w", vp.Name, err)
		}
		d.valuePatterns = append(d.valuePatterns, &compiledValuePattern{name: vp.Name, pattern: re})
	}

	return d, nil
}

var defaultDetector = mustDefault()

func mustDefault() *Detector {
	d, err := NewDetector(StylePartial, DefaultFieldPatterns(), DefaultValuePatterns())
	if err != nil {
		panic(err)
	}
	return d
}

// Default returns the detector built from the default patterns.
func Default() *Detector {
	return defaultDetector
}

// IsSecretField reports whether name matches a field pattern.
func (d *Detector) IsSecretField(name string) bool {
	lower := strings.ToLower(name)
	for _, re := range d.fieldPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsSecretValue reports whether value contains a known secret format and
// names the pattern that matched.
func (d *Detector) IsSecretValue(value string) (bool, string) {
	for _, vp := range d.valuePatterns {
		if vp.pattern.MatchString(value) {
			return true, vp.name
		}
	}
	return false, ""
}

// Mask masks value with the detector's style.
func (d *Detector) Mask(value string) string {
	return MaskValue(value, d.style)
}

// MaskString masks every secret value found in text.
func (d *Detector) MaskString(text string) string {
	for _, vp := range d.valuePatterns {
		text = vp.pattern.ReplaceAllStringFunc(text, d.Mask)
	}
	return text
}

// MaskArgs returns a copy of args with secret fields and values masked.
// Lists are masked element by element.
func (d *Detector) MaskArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if d.IsSecretField(k) {
			out[k] = d.Mask(fmt.Sprint(v))
			continue
		}
		out[k] = d.maskValue(v)
	}
	return out
}

func (d *Detector) maskValue(v any) any {
	switch val := v.(type) {
	case string:
		return d.MaskString(val)
	case []any:
		masked := make([]any, len(val))
		for i, item := range val {
			masked[i] = d.maskValue(item)
		}
		return masked
	case map[string]any:
		return d.MaskArgs(val)
	}
	return v
}

// globToRegex converts a glob with * and ? wildcards to an anchored regex.
func globToRegex(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
