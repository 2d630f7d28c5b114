// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"io"

	"github.com/choria-io/cbs/command"
)

// ExitSignaled is the normalized status of a process that was terminated by a signal,
// it is distinct from every status a process can exit with by itself
const ExitSignaled = 256

// LaunchOptions describes a single process invocation
type LaunchOptions struct {
	// Args is the argument vector, Args[0] is looked up in PATH
	Args []string
	// Dir is the working directory, empty means the current one
	Dir string
	// Environment is appended to the parent environment
	Environment []string
	// Stdout receives the standard output of the process, nil inherits ours
	Stdout io.Writer
}

// ProcessHandle is a launched process that must be waited for exactly once
type ProcessHandle interface {
	Pid() int
}

// Launcher is the platform specific capability to start and reap processes
type Launcher interface {
	// Launch starts the process without waiting for it
	Launch(ctx context.Context, opts LaunchOptions) (ProcessHandle, error)
	// Wait blocks until the process terminates and returns its normalized status
	Wait(handle ProcessHandle) (int, error)
}

// Runner executes commands, either passing output through or capturing standard output
type Runner interface {
	Execute(ctx context.Context, cmd *command.Command) (status int, err error)
	Capture(ctx context.Context, cmd *command.Command) (stdout []byte, status int, err error)
}
