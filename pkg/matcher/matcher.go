// Package matcher consumes token sequences against a single signature.
//
// Tokens are matched left to right, one descriptor at a time. Each
// descriptor takes as many tokens as its cardinality asks for; a token that
// fails an optional descriptor is handed to the next one, a token that fails
// a required descriptor ends the attempt.
//
// Two operations share that walk. Score runs it in partial mode (literal
// words and choices may be abbreviated) and counts the required descriptors
// it satisfied, which is only good for ranking. Validate runs it strictly
// and builds the canonical argument map.
//
// All progress (tokens seen per descriptor, the last value) lives in a
// Context that is created for one attempt and then dropped, so signatures
// can be shared freely between concurrent attempts.
package matcher

import (
	"fmt"

	"github.com/cephforge/cephcli/pkg/argtype"
	"github.com/cephforge/cephcli/pkg/signature"
)

// Args is the canonical argument structure: descriptor name to value.
// Repeated descriptors map to []any in input order; repeated literal
// prefixes are joined with single spaces.
type Args map[string]any

// Prefix returns the joined literal command words.
func (a Args) Prefix() string {
	s, _ := a[signature.PrefixName].(string)
	return s
}

type slot struct {
	seen int
	want int
	last argtype.Value
}

// Context is the match state of one attempt against one signature.
type Context struct {
	sig   signature.Signature
	slots []slot
	words []string
}

// NewContext returns a fresh context for sig.
func NewContext(sig signature.Signature) *Context {
	return &Context{sig: sig}
}

func (c *Context) reset(tokens []string) {
	c.slots = make([]slot, len(c.sig))
	for i, d := range c.sig {
		c.slots[i].want = d.N
	}
	c.words = append([]string(nil), tokens...)
}

// seen returns how many tokens descriptor i accepted in the last attempt.
func (c *Context) seen(i int) int {
	if i < 0 || i >= len(c.slots) {
		return 0
	}
	return c.slots[i].seen
}

// last returns the last value accepted by descriptor i.
func (c *Context) last(i int) argtype.Value {
	if i < 0 || i >= len(c.slots) {
		return argtype.Value{}
	}
	return c.slots[i].last
}

// remaining returns the tokens not consumed by the last attempt.
func (c *Context) remaining() []string {
	return append([]string(nil), c.words...)
}

func (c *Context) pop() (string, bool) {
	if len(c.words) == 0 {
		return "", false
	}
	w := c.words[0]
	c.words = c.words[1:]
	return w, true
}

func (c *Context) pushBack(w string) {
	c.words = append([]string{w}, c.words...)
}

// accept validates word against descriptor i and advances its cursor.
// A one-or-more descriptor always wants one more token than it has seen.
func (c *Context) accept(i int, word string, partial bool) (argtype.Value, error) {
	d := c.sig[i]
	v, err := d.Type.Validate(word, partial)
	if err != nil {
		return argtype.Value{}, err
	}

	s := &c.slots[i]
	s.seen++
	if d.Repeat {
		s.want = s.seen + 1
	}
	s.last = v
	return v, nil
}

// Score counts the required descriptors satisfied by tokens in partial mode.
func (c *Context) Score(tokens []string) int {
	c.reset(tokens)

	matched := 0
	for i, d := range c.sig {
		s := &c.slots[i]
		for s.seen < s.want {
			word, ok := c.pop()
			if !ok {
				return matched
			}
			if _, err := c.accept(i, word, true); err != nil {
				if !d.Required {
					c.pushBack(word)
					break
				}
				return matched
			}
		}
		if d.Required {
			matched++
		}
	}
	return matched
}

// Validate matches tokens strictly. In partial mode it returns whatever
// was built before the first failure instead of an error.
func (c *Context) Validate(tokens []string, partial bool) (Args, error) {
	c.reset(tokens)

	args := make(Args)
	for i, d := range c.sig {
		s := &c.slots[i]
		for s.seen < s.want {
			word, ok := c.pop()
			if !ok {
				if err := c.missing(i); err != nil {
					if partial {
						return args, nil
					}
					return nil, err
				}
				break
			}

			v, err := c.accept(i, word, false)
			if err != nil {
				if !d.Required {
					c.pushBack(word)
					break
				}
				if partial {
					return args, nil
				}
				return nil, fmt.Errorf("argument %s: %w", d.Name, err)
			}
			store(args, d, v)
		}
	}
	return args, nil
}

// missing reports a required descriptor left short when tokens ran out.
func (c *Context) missing(i int) error {
	d, s := c.sig[i], c.slots[i]
	if !d.Required {
		return nil
	}
	if d.Repeat && s.seen < 1 {
		return argtype.CardinalityError("saw %d of %s, expected at least 1", s.seen, d)
	}
	if !d.Repeat && s.seen < s.want {
		return argtype.CardinalityError("saw %d of %s, expected %d", s.seen, d, s.want)
	}
	return nil
}

func store(args Args, d *signature.Descriptor, v argtype.Value) {
	switch {
	case d.Repeat:
		list, _ := args[d.Name].([]any)
		args[d.Name] = append(list, v.Val)
	case d.IsPrefix():
		if prev, ok := args[d.Name].(string); ok {
			args[d.Name] = prev + " " + fmt.Sprint(v.Val)
			return
		}
		args[d.Name] = v.Val
	default:
		args[d.Name] = v.Val
	}
}

// Score counts the required descriptors of sig satisfied by tokens, using
// partial validation. Higher is a better match.
func Score(tokens []string, sig signature.Signature) int {
	return NewContext(sig).Score(tokens)
}

// Validate matches tokens strictly against sig.
func Validate(tokens []string, sig signature.Signature) (Args, error) {
	return NewContext(sig).Validate(tokens, false)
}

// ValidatePartial returns the arguments built before the first failure.
func ValidatePartial(tokens []string, sig signature.Signature) Args {
	args, _ := NewContext(sig).Validate(tokens, true)
	return args
}
