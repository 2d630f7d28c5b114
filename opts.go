// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package cbs

import (
	"fmt"
	"io"

	"github.com/choria-io/cbs/bootstrap"
	"github.com/choria-io/cbs/config"
	"github.com/choria-io/cbs/model"
	"github.com/choria-io/cbs/process"
	"github.com/choria-io/cbs/session"
)

// Option is a functional option for configuring a Script
type Option func(*Script) error

// WithConfig uses cfg instead of loading the configuration
func WithConfig(cfg *config.Config) Option {
	return func(s *Script) error {
		if cfg == nil {
			return fmt.Errorf("configuration is required")
		}

		s.cfg = cfg
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(log model.Logger) Option {
	return func(s *Script) error {
		s.log = log
		return nil
	}
}

// WithEcho prints commands to w before running them, nil disables printing
func WithEcho(w io.Writer) Option {
	return func(s *Script) error {
		s.echo = w
		s.echoSet = true
		return nil
	}
}

// WithSessionDirectory records executed commands in path
func WithSessionDirectory(path string) Option {
	return func(s *Script) error {
		if s.log == nil {
			return fmt.Errorf("a logger must be set before the session directory")
		}

		sess, err := session.NewDirectorySessionStore(path, s.log)
		if err != nil {
			return err
		}

		s.session = sess

		return nil
	}
}

// WithSessionStore records executed commands in store
func WithSessionStore(store model.SessionStore) Option {
	return func(s *Script) error {
		s.session = store
		return nil
	}
}

// WithDiagnostics sets where fatal diagnostics are written and how the program terminates
func WithDiagnostics(w io.Writer, exit func(int)) Option {
	return func(s *Script) error {
		if w == nil || exit == nil {
			return fmt.Errorf("writer and exit function are required")
		}

		s.stderr = w
		s.exit = exit
		return nil
	}
}

// WithBootstrapOptions adds options used by Rebuild
func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(s *Script) error {
		s.bootOpts = append(s.bootOpts, opts...)
		return nil
	}
}

// WithRunnerOptions adds options used when creating the runner
func WithRunnerOptions(opts ...process.Option) Option {
	return func(s *Script) error {
		s.runOpts = append(s.runOpts, opts...)
		return nil
	}
}
