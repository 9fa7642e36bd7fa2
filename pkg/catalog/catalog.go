// Package catalog holds the protocol command descriptors the console can
// execute: display label, parameter form schema, asynchronous dependency
// resolvers and the runner producing a lazy stream of results.
package catalog

import (
	"context"
	"strings"

	"github.com/apdulab/apdulab/pkg/transport"
)

// Field describes one form parameter. A non-empty Options list renders as a
// select, otherwise as free text.
type Field struct {
	Key         string
	Label       string
	Placeholder string
	Options     []string
	Default     string
	Validate    func(string) error
}

// Values are the positional form values, aligned with the command's Form.
type Values []string

// Bag holds the fully-resolved dependency values a command needs before it
// can run. It is built all-or-nothing: either every key resolved or the bag
// is absent.
type Bag map[string]any

// Resolver produces one dependency value against the active transport.
type Resolver func(ctx context.Context, cmd Command, h transport.Handle) (any, error)

// Request carries everything an execution needs.
type Request struct {
	Handle transport.Handle
	Values Values
	Deps   Bag
}

// Result is one intermediate execution result.
type Result struct {
	Text string
	Data any
}

// Runner executes the command, emitting intermediate results as they are
// produced. It must honor ctx cancellation between emissions.
type Runner func(ctx context.Context, req Request, emit func(Result)) error

// Command is an immutable protocol command descriptor.
type Command struct {
	ID    string
	Label string
	Help  string // markdown, rendered in the picker detail pane
	Form  []Field
	Deps  map[string]Resolver
	Run   Runner
}

// DefaultValues returns the form defaults, one per field.
func (c Command) DefaultValues() Values {
	vals := make(Values, len(c.Form))
	for i, f := range c.Form {
		vals[i] = f.Default
	}
	return vals
}

// Catalog is an ordered, searchable collection of commands.
type Catalog struct {
	commands []Command
	byID     map[string]int
}

// New creates a catalog preserving the given order.
func New(cmds ...Command) *Catalog {
	c := &Catalog{
		commands: cmds,
		byID:     make(map[string]int, len(cmds)),
	}
	for i, cmd := range cmds {
		c.byID[cmd.ID] = i
	}
	return c
}

// Commands returns all commands in catalog order.
func (c *Catalog) Commands() []Command {
	cp := make([]Command, len(c.commands))
	copy(cp, c.commands)
	return cp
}

// Get returns the command with the given id.
func (c *Catalog) Get(id string) (Command, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Command{}, false
	}
	return c.commands[i], true
}

// Search returns commands whose id or label contains the query,
// case-insensitively, in catalog order. An empty query returns everything.
func (c *Catalog) Search(query string) []Command {
	if query == "" {
		return c.Commands()
	}

	q := strings.ToLower(query)
	var out []Command
	for _, cmd := range c.commands {
		if strings.Contains(strings.ToLower(cmd.ID), q) ||
			strings.Contains(strings.ToLower(cmd.Label), q) {
			out = append(out, cmd)
		}
	}
	return out
}
