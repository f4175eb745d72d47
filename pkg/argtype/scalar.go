package argtype

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Int accepts decimal or 0x-prefixed integers, optionally range limited.
type Int struct {
	bounds []int64
}

func newInt(p Params) (ArgType, error) {
	spec, err := p.String("range")
	if err != nil {
		return nil, err
	}

	t := &Int{}
	for _, part := range splitRange(spec) {
		v, err := parseInt(part)
		if err != nil {
			return nil, DescriptorError("bad int range %q", spec)
		}
		t.bounds = append(t.bounds, v)
	}
	if len(t.bounds) > 2 {
		return nil, DescriptorError("bad int range %q", spec)
	}
	return t, nil
}

// Kind implements ArgType.
func (t *Int) Kind() string { return TypeInt }

// Validate implements ArgType.
func (t *Int) Validate(token string, _ bool) (Value, error) {
	v, err := parseInt(token)
	if errors.Is(err, strconv.ErrRange) {
		return Value{}, ValidationError("%s not in range %s", token, t.limits())
	}
	if err != nil {
		return Value{}, FormatError("%s doesn't represent an int", token)
	}
	if len(t.bounds) >= 1 && v < t.bounds[0] {
		return Value{}, ValidationError("%d not in range %s", v, t.rangeString())
	}
	if len(t.bounds) == 2 && v > t.bounds[1] {
		return Value{}, ValidationError("%d not in range %s", v, t.rangeString())
	}
	return Value{Val: v}, nil
}

func (t *Int) rangeString() string {
	switch len(t.bounds) {
	case 1:
		return fmt.Sprintf("[%d-]", t.bounds[0])
	case 2:
		return fmt.Sprintf("[%d-%d]", t.bounds[0], t.bounds[1])
	}
	return ""
}

// limits is the range shown for values that overflow int64.
func (t *Int) limits() string {
	if r := t.rangeString(); r != "" {
		return r
	}
	return fmt.Sprintf("[%d-%d]", int64(math.MinInt64), int64(math.MaxInt64))
}

func (t *Int) String() string {
	return "<int" + t.rangeString() + ">"
}

func parseInt(s string) (int64, error) {
	digits := strings.TrimLeft(s, "+-")
	if !strings.HasPrefix(digits, "0x") && !strings.HasPrefix(digits, "0X") {
		return strconv.ParseInt(s, 10, 64)
	}
	if len(s)-len(digits) > 1 {
		return 0, strconv.ErrSyntax
	}

	// ParseUint takes no sign, so "0x-5" stays malformed.
	u, err := strconv.ParseUint(digits[2:], 16, 64)
	if err != nil {
		return 0, err
	}
	neg := strings.HasPrefix(s, "-")
	if u > math.MaxInt64 && !(neg && u == 1<<63) {
		return 0, strconv.ErrRange
	}
	if neg {
		return -int64(u), nil
	}
	return int64(u), nil
}

// Float accepts any float literal, optionally range limited.
type Float struct {
	bounds []float64
}

func newFloat(p Params) (ArgType, error) {
	spec, err := p.String("range")
	if err != nil {
		return nil, err
	}

	t := &Float{}
	for _, part := range splitRange(spec) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, DescriptorError("bad float range %q", spec)
		}
		t.bounds = append(t.bounds, v)
	}
	if len(t.bounds) > 2 {
		return nil, DescriptorError("bad float range %q", spec)
	}
	return t, nil
}

// Kind implements ArgType.
func (t *Float) Kind() string { return TypeFloat }

// Validate implements ArgType.
func (t *Float) Validate(token string, _ bool) (Value, error) {
	v, err := strconv.ParseFloat(token, 64)
	if errors.Is(err, strconv.ErrRange) && math.IsInf(v, 0) {
		return Value{}, ValidationError("%s overflows a float", token)
	}
	if err != nil {
		return Value{}, FormatError("%s doesn't represent a float", token)
	}
	// NaN passes every bound check, and neither NaN nor Inf encodes as JSON.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}, ValidationError("%s is not a finite number", token)
	}
	if len(t.bounds) >= 1 && v < t.bounds[0] {
		return Value{}, ValidationError("%v not in range %s", v, t.rangeString())
	}
	if len(t.bounds) == 2 && v > t.bounds[1] {
		return Value{}, ValidationError("%v not in range %s", v, t.rangeString())
	}
	return Value{Val: v}, nil
}

func (t *Float) rangeString() string {
	switch len(t.bounds) {
	case 1:
		return fmt.Sprintf("[%v-]", t.bounds[0])
	case 2:
		return fmt.Sprintf("[%v-%v]", t.bounds[0], t.bounds[1])
	}
	return ""
}

func (t *Float) String() string {
	return "<float" + t.rangeString() + ">"
}

func splitRange(spec string) []string {
	if spec == "" {
		return nil
	}
	return strings.Split(spec, "|")
}

// String accepts any token without the configured bad characters.
type String struct {
	badchars string
}

func newString(p Params) (ArgType, error) {
	bad, err := p.String("badchars")
	if err != nil {
		return nil, err
	}
	return &String{badchars: bad}, nil
}

// Kind implements ArgType.
func (t *String) Kind() string { return TypeString }

// Validate implements ArgType.
func (t *String) Validate(token string, _ bool) (Value, error) {
	if i := strings.IndexAny(token, t.badchars); i >= 0 {
		r, _ := utf8.DecodeRuneInString(token[i:])
		return Value{}, FormatError("bad char %c in %s", r, token)
	}
	return Value{Val: token}, nil
}

func (t *String) String() string {
	if t.badchars != "" {
		return fmt.Sprintf("<string(without chars in %s)>", t.badchars)
	}
	return "<string>"
}

// Choices accepts one of a fixed, ordered set of words.
type Choices struct {
	options []string
}

func newChoices(p Params) (ArgType, error) {
	spec, err := p.String("strings")
	if err != nil {
		return nil, err
	}
	return &Choices{options: strings.Split(spec, "|")}, nil
}

// Kind implements ArgType.
func (t *Choices) Kind() string { return TypeChoices }

// Options returns the allowed words in declaration order.
func (t *Choices) Options() []string {
	return append([]string(nil), t.options...)
}

// Validate implements ArgType.
func (t *Choices) Validate(token string, partial bool) (Value, error) {
	for _, opt := range t.options {
		if token == opt || (partial && strings.HasPrefix(opt, token)) {
			return Value{Val: token}, nil
		}
	}
	return Value{}, ValidationError("%s not in %s", token, t)
}

func (t *Choices) String() string {
	return strings.Join(t.options, "|")
}

// Prefix is the literal word type used for command names.
type Prefix struct {
	literal string
}

// NewPrefix returns the literal type for word.
func NewPrefix(word string) *Prefix {
	return &Prefix{literal: word}
}

func newPrefix(p Params) (ArgType, error) {
	word, err := p.String("prefix")
	if err != nil {
		return nil, err
	}
	return NewPrefix(word), nil
}

// Kind implements ArgType.
func (t *Prefix) Kind() string { return TypePrefix }

// Literal returns the expected word.
func (t *Prefix) Literal() string { return t.literal }

// Validate implements ArgType. A mismatch is soft: the token belongs to
// some other command.
func (t *Prefix) Validate(token string, partial bool) (Value, error) {
	if token == t.literal || (partial && strings.HasPrefix(t.literal, token)) {
		return Value{Val: token}, nil
	}
	return Value{}, &Error{Kind: KindPrefixMismatch, Msg: "no match for " + token}
}

func (t *Prefix) String() string {
	return t.literal
}

// Opaque accepts any token. Pool and object names use it.
type Opaque struct {
	kind  string
	label string
}

// Kind implements ArgType.
func (t *Opaque) Kind() string { return t.kind }

// Validate implements ArgType.
func (t *Opaque) Validate(token string, _ bool) (Value, error) {
	return Value{Val: token}, nil
}

func (t *Opaque) String() string {
	return t.label
}
