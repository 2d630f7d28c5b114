// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"io"

	"al.essio.dev/pkg/shellescape"
)

// String renders the command as a line a POSIX shell would split back into the same arguments
func (c *Command) String() string {
	return shellescape.QuoteCommand(c.Args())
}

// Print writes the shell-safe rendering of the command followed by a newline, empty commands print nothing
func (c *Command) Print(w io.Writer) error {
	if c.n == 0 {
		return nil
	}

	_, err := fmt.Fprintln(w, c.String())

	return err
}
