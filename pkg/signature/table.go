package signature

import "strings"

// DefaultHelp is used for commands advertised without help text.
const DefaultHelp = "no help available"

// Command is one entry of a command table.
type Command struct {
	// Tag is the opaque key of the command in the wire description.
	Tag string
	// Sig is the signature the tokens must satisfy.
	Sig Signature
	// Help is the one-line help text.
	Help string
}

// Table holds the commands of a description in wire order. It is
// read-only once loaded and safe for concurrent readers.
type Table struct {
	commands []*Command
	byTag    map[string]*Command
}

// NewTable builds a table from commands, keeping their order.
func NewTable(commands ...*Command) *Table {
	t := &Table{byTag: make(map[string]*Command, len(commands))}
	for _, c := range commands {
		t.add(c)
	}
	return t
}

func (t *Table) add(c *Command) {
	t.commands = append(t.commands, c)
	t.byTag[c.Tag] = c
}

// Commands returns the commands in table order.
func (t *Table) Commands() []*Command {
	return append([]*Command(nil), t.commands...)
}

// Get returns the command with the given tag.
func (t *Table) Get(tag string) (*Command, bool) {
	c, ok := t.byTag[tag]
	return c, ok
}

// Len returns the number of commands.
func (t *Table) Len() int {
	return len(t.commands)
}

// WithPrefix returns the commands whose literal prefix starts with words.
func (t *Table) WithPrefix(words ...string) []*Command {
	want := strings.Join(words, " ")
	var out []*Command
	for _, c := range t.commands {
		if strings.HasPrefix(c.Sig.Prefix(), want) {
			out = append(out, c)
		}
	}
	return out
}
