// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"fmt"
	"io"
	"time"

	"github.com/choria-io/cbs/model"
)

// Option configures a Runner
type Option func(*Runner) error

// WithLauncher sets the platform launcher used to start processes
func WithLauncher(l model.Launcher) Option {
	return func(r *Runner) error {
		if l == nil {
			return fmt.Errorf("launcher is required")
		}

		r.launcher = l

		return nil
	}
}

// WithEcho prints every command line to w before it is launched
func WithEcho(w io.Writer) Option {
	return func(r *Runner) error {
		r.echo = w
		return nil
	}
}

// WithSessionStore records an event for every execution in s
func WithSessionStore(s model.SessionStore) Option {
	return func(r *Runner) error {
		r.session = s
		return nil
	}
}

// WithDirectory sets the working directory of launched processes
func WithDirectory(dir string) Option {
	return func(r *Runner) error {
		r.dir = dir
		return nil
	}
}

// WithEnvironment adds KEY=VALUE items to the environment of launched processes
func WithEnvironment(env ...string) Option {
	return func(r *Runner) error {
		r.environment = append(r.environment, env...)
		return nil
	}
}

// WithTimeout kills processes that run longer than d, zero disables the timeout
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) error {
		if d < 0 {
			return fmt.Errorf("timeout can not be negative")
		}

		r.timeout = d
		return nil
	}
}

// WithPipe sets how the pipe used by Capture is created
func WithPipe(f PipeFactory) Option {
	return func(r *Runner) error {
		if f == nil {
			return fmt.Errorf("pipe factory is required")
		}

		r.pipe = f

		return nil
	}
}
