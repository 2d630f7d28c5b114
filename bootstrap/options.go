// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package bootstrap

import (
	"fmt"
	"io"

	"github.com/kballard/go-shellquote"

	"github.com/choria-io/cbs/model"
)

// Option configures a Bootstrapper
type Option func(*Bootstrapper) error

// WithExecutable sets the executable to check and replace
func WithExecutable(path string) Option {
	return func(b *Bootstrapper) error {
		b.executable = path
		return nil
	}
}

// WithSource sets the script source the executable is built from
func WithSource(path string) Option {
	return func(b *Bootstrapper) error {
		b.source = path
		return nil
	}
}

// WithLibraries replaces the library sources the executable must be newer than
func WithLibraries(paths ...string) Option {
	return func(b *Bootstrapper) error {
		b.libraries = paths
		return nil
	}
}

// WithArgs sets the arguments the new process is started with, argv[0] included
func WithArgs(argv []string) Option {
	return func(b *Bootstrapper) error {
		if len(argv) == 0 {
			return fmt.Errorf("arguments are required")
		}

		b.argv = argv
		return nil
	}
}

// WithEnvironment sets the environment of the new process
func WithEnvironment(env []string) Option {
	return func(b *Bootstrapper) error {
		b.env = env
		return nil
	}
}

// WithCompiler sets the compiler command, -o <executable> <source> is appended to it
func WithCompiler(args ...string) Option {
	return func(b *Bootstrapper) error {
		b.compiler = args
		return nil
	}
}

// WithCompilerString parses a shell style compiler command line, an empty string keeps the default
func WithCompilerString(cmd string) Option {
	return func(b *Bootstrapper) error {
		if cmd == "" {
			return nil
		}

		parts, err := shellquote.Split(cmd)
		if err != nil {
			return fmt.Errorf("invalid compiler %q: %w", cmd, err)
		}

		b.compiler = parts

		return nil
	}
}

// WithEcho sets where compile and execute command lines are printed, nil disables printing
func WithEcho(w io.Writer) Option {
	return func(b *Bootstrapper) error {
		b.echo = w
		return nil
	}
}

// WithRunner sets the runner used to invoke the compiler
func WithRunner(r model.Runner) Option {
	return func(b *Bootstrapper) error {
		b.runner = r
		return nil
	}
}

// WithReplacer sets the function that replaces the running process
func WithReplacer(r Replacer) Option {
	return func(b *Bootstrapper) error {
		if r == nil {
			return fmt.Errorf("replacer is required")
		}

		b.replace = r
		return nil
	}
}
