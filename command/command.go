// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package command holds the argument vector used for every process invocation
package command

import (
	"errors"
)

// Terminator is stored in the slot following the last argument
const Terminator = ""

// ErrEmptyArgument is returned when appending an empty argument, empty arguments are reserved for the terminator
var ErrEmptyArgument = errors.New("command arguments may not be empty")

// Command is a growable argument vector, the zero value is an empty command ready for use.
//
// The backing storage always reserves one slot beyond the last argument holding Terminator.
// A Command should not be mutated from multiple goroutines, use Clone to hand one to a job.
type Command struct {
	argv []string
	n    int
}

// New creates a command holding items
func New(items ...string) (*Command, error) {
	c := &Command{}
	err := c.AppendSlice(items)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Append adds items to the end of the command
func (c *Command) Append(items ...string) error {
	return c.AppendSlice(items)
}

// AppendSlice adds all of items to the end of the command, the command is unchanged on error
func (c *Command) AppendSlice(items []string) error {
	for _, item := range items {
		if item == Terminator {
			return ErrEmptyArgument
		}
	}

	if len(items) == 0 {
		return nil
	}

	size := len(c.argv)
	for c.n+len(items) >= size {
		size = size*2 + 2
	}

	if size != len(c.argv) {
		grown := make([]string, size)
		copy(grown, c.argv[:c.n])
		c.argv = grown
	}

	copy(c.argv[c.n:], items)
	c.n += len(items)
	c.argv[c.n] = Terminator

	return nil
}

// Clear removes all arguments but keeps the allocated storage for reuse
func (c *Command) Clear() {
	clear(c.argv)
	c.n = 0
}

// Release drops the backing storage
func (c *Command) Release() {
	c.argv = nil
	c.n = 0
}

// Len is the number of arguments
func (c *Command) Len() int { return c.n }

// Cap is the number of slots allocated, including the terminator slot
func (c *Command) Cap() int { return len(c.argv) }

// Args returns the arguments without copying, the result must not be modified
func (c *Command) Args() []string {
	return c.argv[:c.n:c.n]
}

// Argv returns the arguments followed by the terminator slot, nil when nothing was ever allocated
func (c *Command) Argv() []string {
	if len(c.argv) == 0 {
		return nil
	}

	return c.argv[: c.n+1 : c.n+1]
}

// Name is the executable, empty for an empty command
func (c *Command) Name() string {
	if c.n == 0 {
		return ""
	}

	return c.argv[0]
}

// Clone creates an independent copy with the same capacity
func (c *Command) Clone() *Command {
	if c == nil {
		return &Command{}
	}

	nc := &Command{n: c.n}
	if c.argv != nil {
		nc.argv = make([]string, len(c.argv))
		copy(nc.argv, c.argv)
	}

	return nc
}
