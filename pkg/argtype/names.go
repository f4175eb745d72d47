package argtype

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const wildcard = "*"

var entityTypes = map[string]bool{
	"osd":    true,
	"mon":    true,
	"client": true,
	"mds":    true,
}

// Name accepts type.id entity names, or "*" for every entity.
// The id of an osd must be an integer or "*".
type Name struct{}

// Kind implements ArgType.
func (t *Name) Kind() string { return TypeName }

// Validate implements ArgType.
func (t *Name) Validate(token string, _ bool) (Value, error) {
	if token == wildcard {
		return Value{Val: token}, nil
	}

	typ, id, ok := strings.Cut(token, ".")
	if !ok {
		return Value{}, FormatError("CephName: no . in %s", token)
	}
	if !entityTypes[typ] {
		return Value{}, ValidationError("unknown type %s", typ)
	}
	if typ == "osd" && id != wildcard {
		if _, err := strconv.Atoi(id); err != nil {
			return Value{}, FormatError("osd id %s not integer", id)
		}
	}
	return Value{Val: token, NameType: typ, NameID: id}, nil
}

func (t *Name) String() string {
	return "<name (type.id)>"
}

// OsdName accepts osd.<id>, a bare <id>, or "*". The value is the numeric id.
type OsdName struct{}

// Kind implements ArgType.
func (t *OsdName) Kind() string { return TypeOsdName }

// Validate implements ArgType.
func (t *OsdName) Validate(token string, _ bool) (Value, error) {
	if token == wildcard {
		return Value{Val: token}, nil
	}

	typ, id := "osd", token
	if before, after, ok := strings.Cut(token, "."); ok {
		typ, id = before, after
	}
	if typ != "osd" {
		return Value{}, ValidationError("unknown type %s", typ)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Value{}, FormatError("osd id %s not integer", id)
	}
	return Value{Val: n, NameType: typ, NameID: id}, nil
}

func (t *OsdName) String() string {
	return "<osdname (id|osd.id)>"
}

// Pgid accepts placement group ids of the form <pool>.<hex pgnum>.
type Pgid struct{}

// Kind implements ArgType.
func (t *Pgid) Kind() string { return TypePgid }

// Validate implements ArgType.
func (t *Pgid) Validate(token string, _ bool) (Value, error) {
	if strings.Count(token, ".") != 1 {
		return Value{}, FormatError("pgid %s must contain exactly one .", token)
	}
	pool, pgnum, _ := strings.Cut(token, ".")
	if _, err := strconv.ParseUint(pool, 10, 64); err != nil {
		return Value{}, FormatError("pool %s is not a non-negative integer", pool)
	}
	if _, err := strconv.ParseUint(pgnum, 16, 64); err != nil {
		return Value{}, FormatError("pgnum %s not hex integer", pgnum)
	}
	return Value{Val: token}, nil
}

func (t *Pgid) String() string {
	return "<pgid>"
}

// Fragment accepts CephFS fragment ids of the form 0xvvv/bbb.
type Fragment struct{}

// Kind implements ArgType.
func (t *Fragment) Kind() string { return TypeFragment }

// Validate implements ArgType.
func (t *Fragment) Validate(token string, _ bool) (Value, error) {
	val, bits, ok := strings.Cut(token, "/")
	if !ok {
		return Value{}, FormatError("%s: no /", token)
	}
	if !strings.HasPrefix(val, "0x") {
		return Value{}, FormatError("%s not a hex integer", val)
	}
	if _, err := strconv.ParseUint(val[2:], 16, 64); err != nil {
		return Value{}, FormatError("can't convert %s to integer", val)
	}
	if _, err := strconv.ParseUint(bits, 10, 64); err != nil {
		return Value{}, FormatError("can't convert %s to integer", bits)
	}
	return Value{Val: token}, nil
}

func (t *Fragment) String() string {
	return "<CephFS fragment ID (0xvvv/bbb)>"
}

// UUID accepts any form understood by uuid.Parse.
type UUID struct{}

// Kind implements ArgType.
func (t *UUID) Kind() string { return TypeUUID }

// Validate implements ArgType.
func (t *UUID) Validate(token string, _ bool) (Value, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Value{}, &Error{Kind: KindFormat, Msg: "invalid UUID " + token, Err: err}
	}
	return Value{Val: token}, nil
}

func (t *UUID) String() string {
	return "<uuid>"
}
