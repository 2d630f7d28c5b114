// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package pkgconfig adds compiler and linker flags reported by pkg-config to a command
package pkgconfig

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"

	"github.com/choria-io/cbs/command"
	"github.com/choria-io/cbs/model"
)

// Tool is the executable that is queried
const Tool = "pkg-config"

// Flags selects the kind of flags to query
type Flags uint8

const (
	// Libs requests linker flags
	Libs Flags = 1 << iota
	// CFlags requests compiler flags
	CFlags
)

// QueryError indicates pkg-config ran but failed, typically because the library is not installed
type QueryError struct {
	Library string
	Status  int
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d", Tool, e.Library, e.Status)
}

// Lookup runs pkg-config for lib and returns the reported flags split into arguments.
//
// When pkg-config is not installed the error wraps model.ErrToolNotFound, when it fails a *QueryError is returned
func Lookup(ctx context.Context, runner model.Runner, lib string, flags Flags) ([]string, error) {
	if lib == "" {
		return nil, fmt.Errorf("library name is required")
	}

	query, err := command.New(Tool)
	if err != nil {
		return nil, err
	}

	if flags&Libs != 0 {
		query.Append("--libs")
	}
	if flags&CFlags != 0 {
		query.Append("--cflags")
	}

	err = query.Append(lib)
	if err != nil {
		return nil, err
	}

	out, status, err := runner.Capture(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query %s: %w", lib, err)
	}

	if status != 0 {
		return nil, &QueryError{Library: lib, Status: status}
	}

	tokens, err := shellquote.Split(string(out))
	if err != nil {
		return nil, fmt.Errorf("invalid %s output for %s: %w", Tool, lib, err)
	}

	return tokens, nil
}

// Query appends the flags pkg-config reports for lib to cmd, cmd is unchanged on error
func Query(ctx context.Context, runner model.Runner, cmd *command.Command, lib string, flags Flags) error {
	tokens, err := Lookup(ctx, runner, lib, flags)
	if err != nil {
		return err
	}

	return cmd.AppendSlice(tokens)
}
