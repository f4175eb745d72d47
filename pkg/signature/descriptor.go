// Package signature models command signatures and loads them from the
// JSON command descriptions advertised by a cluster.
//
// A signature is an ordered list of descriptors. Bare strings in the wire
// format become literal prefix descriptors, which is how multi-word command
// names ("osd pool create") are expressed; objects become typed descriptors
// whose extra keys are passed to the type constructor.
//
// Descriptors are immutable once built. Matching state is kept by the
// matcher package, never here.
package signature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cephforge/cephcli/pkg/argtype"
)

// PrefixName is the output key of implicit literal descriptors.
const PrefixName = "prefix"

// Descriptor is one named, typed argument slot of a signature.
type Descriptor struct {
	// Type validates tokens for this slot.
	Type argtype.ArgType
	// Name is the key of the value in the validated arguments.
	Name string
	// N is the exact number of tokens wanted. It is 1 when Repeat is set.
	N int
	// Repeat means one or more tokens, open ended.
	Repeat bool
	// Required means the slot must be filled for the signature to match.
	Required bool
	// Params are the construction parameters of Type, as found on the wire.
	Params argtype.Params
}

// NewPrefix returns the implicit descriptor for a literal command word.
func NewPrefix(word string) *Descriptor {
	return &Descriptor{
		Type:     argtype.NewPrefix(word),
		Name:     PrefixName,
		N:        1,
		Required: true,
		Params:   argtype.Params{"prefix": word},
	}
}

// NewDescriptor builds a typed descriptor. n is a count ("2", 2) or "n"/"N"
// for one-or-more; req is a bool or its string form. nil selects the
// defaults (1 and true).
func NewDescriptor(reg *argtype.Registry, kind, name string, n, req any, params argtype.Params) (*Descriptor, error) {
	t, err := reg.New(kind, params)
	if err != nil {
		return nil, err
	}

	count, repeat, err := parseCount(n)
	if err != nil {
		return nil, err
	}

	required, err := parseRequired(req)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		Type:     t,
		Name:     name,
		N:        count,
		Repeat:   repeat,
		Required: required,
		Params:   params,
	}, nil
}

func parseCount(n any) (int, bool, error) {
	switch v := n.(type) {
	case nil:
		return 1, false, nil
	case float64:
		if v != float64(int(v)) || v < 1 {
			return 0, false, argtype.DescriptorError("bad n %v", v)
		}
		return int(v), false, nil
	case int:
		if v < 1 {
			return 0, false, argtype.DescriptorError("bad n %d", v)
		}
		return v, false, nil
	case string:
		if strings.EqualFold(v, "n") {
			return 1, true, nil
		}
		count, err := strconv.Atoi(v)
		if err != nil || count < 1 {
			return 0, false, argtype.DescriptorError("bad n %q", v)
		}
		return count, false, nil
	default:
		return 0, false, argtype.DescriptorError("bad n %v", n)
	}
}

func parseRequired(req any) (bool, error) {
	switch v := req.(type) {
	case nil:
		return true, nil
	case bool:
		return v, nil
	case string:
		return strings.EqualFold(v, "true"), nil
	default:
		return false, argtype.DescriptorError("bad req %v", req)
	}
}

// Kind returns the wire identifier of the descriptor's type.
func (d *Descriptor) Kind() string {
	return d.Type.Kind()
}

// IsPrefix reports whether the descriptor is a literal command word.
func (d *Descriptor) IsPrefix() bool {
	return d.Type.Kind() == argtype.TypePrefix
}

func (d *Descriptor) isLiteral() bool {
	if d.IsPrefix() {
		return true
	}
	if c, ok := d.Type.(*argtype.Choices); ok {
		return len(c.Options()) == 1
	}
	return false
}

// String renders the descriptor for usage messages:
//
//	pool                      literal prefix
//	pool(<poolname>)          typed argument
//	ids(<int>) [<int>...]     one or more
//	{size(<int[1-]>)}         optional
func (d *Descriptor) String() string {
	var s string
	if d.isLiteral() {
		s = d.Type.String()
	} else {
		s = fmt.Sprintf("%s(%s)", d.Name, d.Type)
		if d.Repeat {
			s += fmt.Sprintf(" [%s...]", d.Type)
		}
	}
	if !d.Required {
		s = "{" + s + "}"
	}
	return s
}

// HelpString is the concise rendering used in syntax references. It
// drops parameter names except for free-form strings, shown as <name>.
func (d *Descriptor) HelpString() string {
	chunk := d.Type.String()
	if d.Kind() == argtype.TypeString {
		chunk = "<" + d.Name + ">"
	}
	s := chunk
	if d.Repeat {
		s += " [" + chunk + "...]"
	}
	if !d.Required {
		s = "{" + s + "}"
	}
	return s
}

// Signature is an ordered list of descriptors.
type Signature []*Descriptor

// String renders every descriptor with its name.
func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}

// Concise renders the signature as a one-line syntax reference.
func (s Signature) Concise() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.HelpString()
	}
	return strings.Join(parts, " ")
}

// Prefix returns the leading literal words joined by spaces.
func (s Signature) Prefix() string {
	var words []string
	for _, d := range s {
		if !d.IsPrefix() {
			break
		}
		words = append(words, d.Type.String())
	}
	return strings.Join(words, " ")
}
