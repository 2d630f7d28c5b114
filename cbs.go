// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

// Package cbs is a runtime for build scripts written in Go.
//
// A build script is a normal Go program that rebuilds itself when its source changes and then runs
// compilers and other tools, optionally in parallel:
//
//	func main() {
//		ctx := context.Background()
//		s := cbs.MustNew()
//		s.Rebuild(ctx)
//
//		cmd := cbs.Cmd("cc", "-o", "main", "main.c")
//		if s.Exec(ctx, cmd) != 0 {
//			cbs.Die(nil, "compile failed")
//		}
//	}
//
// Methods of Script terminate the program with a diagnostic when the operating system fails them,
// use the process, pool and bootstrap packages directly for recoverable errors.
package cbs

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/choria-io/cbs/bootstrap"
	"github.com/choria-io/cbs/command"
	"github.com/choria-io/cbs/config"
	"github.com/choria-io/cbs/internal/mtime"
	"github.com/choria-io/cbs/metrics"
	"github.com/choria-io/cbs/model"
	"github.com/choria-io/cbs/pkgconfig"
	"github.com/choria-io/cbs/pool"
	"github.com/choria-io/cbs/process"
	"github.com/choria-io/cbs/session"
)

// Script is the fail fast convenience layer used by build scripts
type Script struct {
	cfg       *config.Config
	log       model.Logger
	runner    *process.Runner
	session   model.SessionStore
	echo      io.Writer
	echoSet   bool
	stderr    io.Writer
	exit      func(int)
	bootOpts  []bootstrap.Option
	runOpts   []process.Option
	closeOnce sync.Once
}

// New creates a Script, without options the configuration is loaded from the standard locations
func New(opts ...Option) (*Script, error) {
	s := &Script{
		stderr: os.Stderr,
		exit:   os.Exit,
	}

	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}

	var err error
	if s.cfg == nil {
		s.cfg, err = config.Load()
		if err != nil {
			return nil, err
		}
	}

	if s.log == nil {
		s.log, err = s.cfg.NewLogger()
		if err != nil {
			return nil, err
		}
	}

	if !s.echoSet && s.cfg.ShouldEcho() {
		s.echo = os.Stdout
	}

	if s.session == nil {
		if s.cfg.SessionDir != "" {
			s.session, err = session.NewDirectorySessionStore(s.cfg.SessionDir, s.log)
		} else {
			s.session, err = session.NewMemorySessionStore(s.log)
		}
		if err != nil {
			return nil, err
		}
	}

	err = s.session.StartSession()
	if err != nil {
		return nil, err
	}

	runOpts := []process.Option{
		process.WithSessionStore(s.session),
		process.WithEnvironment(s.cfg.Environment...),
		process.WithTimeout(s.cfg.Timeout()),
	}
	if s.echo != nil {
		runOpts = append(runOpts, process.WithEcho(s.echo))
	}

	s.runner, err = process.NewRunner(s.log, append(runOpts, s.runOpts...)...)
	if err != nil {
		return nil, err
	}

	if s.cfg.MonitorPort > 0 {
		metrics.RegisterMetrics()
		metrics.ListenAndServe(s.cfg.MonitorPort, s.log)
	}

	return s, nil
}

// MustNew creates a Script using the standard configuration and terminates the program on failure
func MustNew(opts ...Option) *Script {
	s, err := New(opts...)
	if err != nil {
		Die(err, "could not initialize")
	}

	return s
}

// Config is the active configuration
func (s *Script) Config() *config.Config { return s.cfg }

// Logger is the logger used by the script
func (s *Script) Logger() model.Logger { return s.log }

// Runner is the runner used by Exec and Capture
func (s *Script) Runner() *process.Runner { return s.runner }

// Session is the store recording every executed command
func (s *Script) Session() model.SessionStore { return s.session }

// Rebuild recompiles the calling source file when it is newer than the running executable and replaces the process.
//
// It returns only when the executable was up to date, every failure terminates the program
func (s *Script) Rebuild(ctx context.Context) {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		s.die(nil, "could not determine the script source")
		return
	}

	opts := append([]bootstrap.Option{
		bootstrap.WithSource(file),
		bootstrap.WithCompilerString(s.cfg.Compiler),
		bootstrap.WithEcho(s.echo),
	}, s.bootOpts...)

	b, err := bootstrap.New(s.log, opts...)
	if err != nil {
		s.die(err, "could not rebuild %s", file)
		return
	}

	_, err = b.Rebuild(ctx)
	if err != nil {
		s.die(err, "could not rebuild %s", file)
	}
}

// Exec runs cmd and returns its exit status, model.ExitSignaled when it was killed by a signal
func (s *Script) Exec(ctx context.Context, cmd *command.Command) int {
	status, err := s.runner.Execute(ctx, cmd)
	if err != nil {
		s.die(err, "could not execute %s", cmd.Name())
		return -1
	}

	return status
}

// Capture runs cmd and returns its standard output and exit status
func (s *Script) Capture(ctx context.Context, cmd *command.Command) ([]byte, int) {
	out, status, err := s.runner.Capture(ctx, cmd)
	if err != nil {
		s.die(err, "could not capture %s", cmd.Name())
		return out, -1
	}

	return out, status
}

// Newer determines if lhs was modified more recently than rhs
func (s *Script) Newer(lhs string, rhs string) bool {
	newer, err := mtime.IsNewer(lhs, rhs)
	if err != nil {
		s.die(err, "could not compare %s and %s", lhs, rhs)
		return false
	}

	return newer
}

// Older determines if lhs was modified before rhs
func (s *Script) Older(lhs string, rhs string) bool {
	older, err := mtime.IsOlder(lhs, rhs)
	if err != nil {
		s.die(err, "could not compare %s and %s", lhs, rhs)
		return false
	}

	return older
}

// Exists determines if path exists
func (s *Script) Exists(path string) bool {
	return mtime.Exists(path)
}

// PkgConfig appends the flags for lib to cmd, false when pkg-config is not installed or does not know lib
func (s *Script) PkgConfig(ctx context.Context, cmd *command.Command, lib string, flags pkgconfig.Flags) bool {
	err := pkgconfig.Query(ctx, s.runner, cmd, lib, flags)

	var qerr *pkgconfig.QueryError
	switch {
	case err == nil:
		return true
	case errors.Is(err, model.ErrToolNotFound), errors.As(err, &qerr):
		s.log.Warn("pkg-config query failed", "library", lib, "error", err)
		return false
	default:
		s.die(err, "could not query pkg-config for %s", lib)
		return false
	}
}

// Pool starts a worker pool, when workers is less than 1 the configured worker count or the CPU count is used
func (s *Script) Pool(workers int) *pool.Pool {
	if workers < 1 {
		workers = s.cfg.Workers
	}
	if workers < 1 {
		workers = pool.NProc()
	}

	p, err := pool.New(workers, pool.WithLogger(s.log.With("pool", workers)))
	if err != nil {
		s.die(err, "could not start worker pool")
		return nil
	}

	return p
}

// Close ends the session and returns its summary
func (s *Script) Close() (*model.SessionSummary, error) {
	var summary *model.SessionSummary
	var err error

	s.closeOnce.Do(func() {
		summary, err = s.session.StopSession(false)
		if err == nil {
			s.log.Info("Build completed", "commands", summary.TotalCommands, "failed", summary.FailedCommands, "duration", summary.TotalDuration)
		}
	})

	return summary, err
}

// Die prints a diagnostic and terminates the program with status 1
func (s *Script) Die(err error, format string, args ...any) {
	s.die(err, format, args...)
}

func (s *Script) die(err error, format string, args ...any) {
	die(s.stderr, s.exit, err, format, args...)
}
