// Package argtype implements the typed validators behind command signatures.
//
// Every argument slot of a command signature carries an ArgType. An ArgType
// is built once from the parameters found in the wire description (integer
// ranges, choice lists, forbidden characters, literal prefixes) and is
// immutable afterwards, so the same instance can be shared by any number of
// signatures and concurrent validation attempts.
//
// # Kinds
//
// The set of kinds is fixed and registered statically:
//
//	CephInt CephFloat CephString CephChoices CephPrefix
//	CephIPAddr CephEntityAddr CephName CephOsdName CephPgid
//	CephFragment CephUUID CephFilepath CephSocketpath
//	CephPoolname CephObjectname
//
// A kind that is not in the registry is reported as ErrDescriptorFormat at
// the time the signature is loaded, never later.
//
// # Side effects
//
// CephFilepath and CephSocketpath probe the filesystem during strict
// validation: the former opens the path for append (creating it), the latter
// stats it. The filesystem is an afero.Fs chosen with WithFs, so tests can
// run them against a scratch filesystem.
package argtype

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/afero"
)

// Wire identifiers of the registered kinds.
const (
	TypeInt        = "CephInt"
	TypeFloat      = "CephFloat"
	TypeString     = "CephString"
	TypeChoices    = "CephChoices"
	TypePrefix     = "CephPrefix"
	TypeIPAddr     = "CephIPAddr"
	TypeEntityAddr = "CephEntityAddr"
	TypeName       = "CephName"
	TypeOsdName    = "CephOsdName"
	TypePgid       = "CephPgid"
	TypeFragment   = "CephFragment"
	TypeUUID       = "CephUUID"
	TypeFilepath   = "CephFilepath"
	TypeSocketpath = "CephSocketpath"
	TypePoolname   = "CephPoolname"
	TypeObjectname = "CephObjectname"
)

// ArgType validates single tokens for one argument slot.
type ArgType interface {
	// Kind returns the wire identifier of the type.
	Kind() string
	// Validate checks token and returns its typed value. In partial mode
	// literal and choice types accept a prefix of an expected word.
	Validate(token string, partial bool) (Value, error)
	// String returns the usage rendering of the type, e.g. "<int[0-10]>".
	String() string
}

// Value is the result of a successful validation.
type Value struct {
	// Val is the typed value: int64, float64 or string.
	Val any
	// NameType and NameID are set by the name kinds ("osd", "3").
	NameType string
	NameID   string
}

// Params holds the type-specific construction parameters of a descriptor.
type Params map[string]any

// String returns the parameter as a string. Numbers are formatted the way
// they appear on the wire.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", DescriptorError("parameter %q: unsupported value %v", key, v)
	}
}

// Constructor builds an ArgType from its parameters.
type Constructor func(Params) (ArgType, error)

// Registry maps kind identifiers to constructors. It is populated once by
// NewRegistry and read-only afterwards.
type Registry struct {
	fs    afero.Fs
	ctors map[string]Constructor
}

// Option configures a Registry.
type Option func(*Registry)

// WithFs sets the filesystem probed by CephFilepath and CephSocketpath.
func WithFs(fs afero.Fs) Option {
	return func(r *Registry) {
		r.fs = fs
	}
}

// NewRegistry creates the registry of all supported kinds.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(r)
	}

	r.ctors = map[string]Constructor{
		TypeInt:        newInt,
		TypeFloat:      newFloat,
		TypeString:     newString,
		TypeChoices:    newChoices,
		TypePrefix:     newPrefix,
		TypeIPAddr:     func(Params) (ArgType, error) { return &IPAddr{}, nil },
		TypeEntityAddr: func(Params) (ArgType, error) { return &EntityAddr{}, nil },
		TypeName:       func(Params) (ArgType, error) { return &Name{}, nil },
		TypeOsdName:    func(Params) (ArgType, error) { return &OsdName{}, nil },
		TypePgid:       func(Params) (ArgType, error) { return &Pgid{}, nil },
		TypeFragment:   func(Params) (ArgType, error) { return &Fragment{}, nil },
		TypeUUID:       func(Params) (ArgType, error) { return &UUID{}, nil },
		TypeFilepath:   func(Params) (ArgType, error) { return &Filepath{fs: r.fs}, nil },
		TypeSocketpath: func(Params) (ArgType, error) { return &Socketpath{fs: r.fs}, nil },
		TypePoolname:   func(Params) (ArgType, error) { return &Opaque{kind: TypePoolname, label: "<poolname>"}, nil },
		TypeObjectname: func(Params) (ArgType, error) { return &Opaque{kind: TypeObjectname, label: "<objectname>"}, nil },
	}

	return r
}

var defaultRegistry = NewRegistry()

// Default returns a shared registry backed by the OS filesystem.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the constructor registered for kind.
func (r *Registry) Lookup(kind string) (Constructor, error) {
	ctor, ok := r.ctors[kind]
	if !ok {
		return nil, DescriptorError("unknown type %s", kind)
	}
	return ctor, nil
}

// New constructs an ArgType of the given kind.
func (r *Registry) New(kind string, params Params) (ArgType, error) {
	ctor, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}

	t, err := ctor(params)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", kind, err)
	}
	return t, nil
}

// Kinds returns the registered kind identifiers in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
