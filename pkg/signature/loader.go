package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cephforge/cephcli/pkg/argtype"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

// Keys of a wire descriptor object that are not type parameters.
var reservedKeys = map[string]bool{
	"type": true,
	"name": true,
	"n":    true,
	"req":  true,
}

// Load parses a command description:
//
//	{
//	  "cmd001": {"sig": ["pool", {"type": "CephPoolname", "name": "pool"}], "help": "..."},
//	  ...
//	}
//
// Comments are allowed. Commands keep the order in which they appear.
// Every failure wraps argtype.ErrDescriptorFormat.
func Load(data []byte, reg *argtype.Registry) (*Table, error) {
	if reg == nil {
		reg = argtype.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	table := NewTable()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(err)
		}
		tag, _ := tok.(string)

		var entry map[string]json.RawMessage
		if err := dec.Decode(&entry); err != nil {
			return nil, malformed(err)
		}
		if _, dup := table.Get(tag); dup {
			return nil, argtype.DescriptorError("JSON descriptor %s appears twice", tag)
		}

		cmd, err := parseCommand(tag, entry, reg)
		if err != nil {
			return nil, err
		}
		table.add(cmd)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, argtype.DescriptorError("trailing data after command description")
	}

	return table, nil
}

// LoadFile reads and parses a description file from fs. Parse errors are
// prefixed with the path.
func LoadFile(fs afero.Fs, path string, reg *argtype.Registry) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}
	table, err := Load(data, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return malformed(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return argtype.DescriptorError("couldn't parse JSON: expected %q, got %v", want, tok)
	}
	return nil
}

func malformed(err error) error {
	return &argtype.Error{Kind: argtype.KindDescriptorFormat, Msg: "couldn't parse JSON", Err: err}
}

func parseCommand(tag string, entry map[string]json.RawMessage, reg *argtype.Registry) (*Command, error) {
	rawSig, ok := entry["sig"]
	if !ok {
		return nil, argtype.DescriptorError("JSON descriptor %s has no 'sig'", tag)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(rawSig, &elems); err != nil {
		return nil, argtype.DescriptorError("JSON descriptor %s: 'sig' is not an array", tag)
	}

	sig, err := ParseSignature(elems, reg)
	if err != nil {
		return nil, fmt.Errorf("JSON descriptor %s: %w", tag, err)
	}

	return &Command{
		Tag:  tag,
		Sig:  sig,
		Help: parseHelp(entry["help"]),
	}, nil
}

// ParseSignature builds a signature from the raw elements of a "sig" array.
func ParseSignature(elems []json.RawMessage, reg *argtype.Registry) (Signature, error) {
	sig := make(Signature, 0, len(elems))
	for i, raw := range elems {
		var word string
		if err := json.Unmarshal(raw, &word); err == nil {
			sig = append(sig, NewPrefix(word))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, argtype.DescriptorError("argument %d is neither a string nor an object", i+1)
		}

		d, err := parseDescriptor(obj, reg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		sig = append(sig, d)
	}
	return sig, nil
}

func parseDescriptor(obj map[string]any, reg *argtype.Registry) (*Descriptor, error) {
	kind, ok := obj["type"].(string)
	if !ok {
		return nil, argtype.DescriptorError("descriptor has no type")
	}
	name, _ := obj["name"].(string)

	params := make(argtype.Params)
	for k, v := range obj {
		if !reservedKeys[k] {
			params[k] = v
		}
	}

	return NewDescriptor(reg, kind, name, obj["n"], obj["req"], params)
}

func parseHelp(raw json.RawMessage) string {
	if len(raw) == 0 {
		return DefaultHelp
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}
	return DefaultHelp
}
