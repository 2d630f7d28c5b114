// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package cbs

import (
	"fmt"
	"io"
	"os"

	"github.com/choria-io/cbs/command"
	iu "github.com/choria-io/cbs/internal/util"
)

var programName = iu.ProgramName()

// ProgramName is argv[0] of the running program
func ProgramName() string {
	return programName
}

// Die prints "<program>: <message>: <error>" to stderr and exits with status 1, err may be nil
func Die(err error, format string, args ...any) {
	die(os.Stderr, os.Exit, err, format, args...)
}

// Cmd creates a command from args and terminates the program when any is empty
func Cmd(args ...string) *command.Command {
	cmd, err := command.New(args...)
	if err != nil {
		Die(err, "invalid command")
	}

	return cmd
}

func die(w io.Writer, exit func(int), err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	switch {
	case err != nil && msg != "":
		fmt.Fprintf(w, "%s: %s: %v\n", programName, msg, err)
	case err != nil:
		fmt.Fprintf(w, "%s: %v\n", programName, err)
	default:
		fmt.Fprintf(w, "%s: %s\n", programName, msg)
	}

	exit(1)
}
