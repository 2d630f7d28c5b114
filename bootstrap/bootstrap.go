// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

// Package bootstrap keeps a build script binary in sync with its source.
//
// A build script calls Rebuild first thing in main. When the executable is older than the script
// source or the cbs library it is recompiled and the running process is replaced by the new binary
// with the same arguments and environment. When it is up to date Rebuild returns and the script
// carries on.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/kballard/go-shellquote"
	"github.com/segmentio/ksuid"
	"golang.org/x/sys/unix"

	"github.com/choria-io/cbs/command"
	"github.com/choria-io/cbs/internal/mtime"
	"github.com/choria-io/cbs/metrics"
	"github.com/choria-io/cbs/model"
	"github.com/choria-io/cbs/process"
)

// CompilerEnvironment names the variable holding the compiler command line
const CompilerEnvironment = "CBS_GO"

// DefaultCompiler is used when no compiler is configured
var DefaultCompiler = []string{"go", "build"}

// Replacer replaces the running process image, on success it does not return
type Replacer func(executable string, argv []string, env []string) error

// State is the outcome of a rebuild check
type State int

const (
	// Fresh means the executable is newer than all its sources
	Fresh State = iota
	// Recompiling means the executable is being rebuilt
	Recompiling
	// RecompileFailed means the compiler could not build the executable
	RecompileFailed
	// Replaced means the new executable replaced the running process
	Replaced
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Recompiling:
		return "recompiling"
	case RecompileFailed:
		return "recompile_failed"
	case Replaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// RecompileError indicates the compiler ran but did not succeed
type RecompileError struct {
	Source string
	Status int
}

func (e *RecompileError) Error() string {
	if e.Status == model.ExitSignaled {
		return fmt.Sprintf("compiling %s failed: compiler terminated by signal", e.Source)
	}

	return fmt.Sprintf("compiling %s failed: compiler exited with status %d", e.Source, e.Status)
}

// Bootstrapper decides if a build script is stale and rebuilds and replaces it
type Bootstrapper struct {
	executable string
	source     string
	libraries  []string
	argv       []string
	env        []string
	compiler   []string
	echo       io.Writer
	runner     model.Runner
	replace    Replacer
	log        model.Logger
	state      State
}

// New creates a Bootstrapper, by default the source is the file that called New
func New(log model.Logger, opts ...Option) (*Bootstrapper, error) {
	b := &Bootstrapper{
		log:     log,
		argv:    os.Args,
		env:     os.Environ(),
		echo:    os.Stdout,
		replace: unix.Exec,
	}

	_, file, _, ok := runtime.Caller(1)
	if ok {
		b.source = file
	}

	b.libraries = librarySources()

	for _, opt := range opts {
		err := opt(b)
		if err != nil {
			return nil, err
		}
	}

	if b.executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("could not determine executable: %w", err)
		}
		b.executable = exe
	}

	if b.source == "" {
		return nil, fmt.Errorf("could not determine the script source")
	}

	if len(b.compiler) == 0 {
		err := b.compilerFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	if b.runner == nil {
		runner, err := process.NewRunner(log)
		if err != nil {
			return nil, err
		}
		b.runner = runner
	}

	return b, nil
}

func (b *Bootstrapper) compilerFromEnvironment() error {
	env := os.Getenv(CompilerEnvironment)
	if env == "" {
		b.compiler = DefaultCompiler
		return nil
	}

	parts, err := shellquote.Split(env)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", CompilerEnvironment, err)
	}
	if len(parts) == 0 {
		b.compiler = DefaultCompiler
		return nil
	}

	b.compiler = parts

	return nil
}

// Compiler is the compiler command line that will be used before -o
func (b *Bootstrapper) Compiler() []string { return b.compiler }

// Source is the script source being checked
func (b *Bootstrapper) Source() string { return b.source }

// Libraries are the library sources being checked
func (b *Bootstrapper) Libraries() []string { return b.libraries }

// State is the state reached by the last Rebuild
func (b *Bootstrapper) State() State { return b.state }

// IsFresh determines if the executable is newer than the source and every library source
func (b *Bootstrapper) IsFresh() (bool, error) {
	for _, src := range append([]string{b.source}, b.libraries...) {
		newer, err := mtime.IsNewer(b.executable, src)
		if err != nil {
			return false, err
		}

		if !newer {
			b.log.Debug("Executable is older than its source", "executable", b.executable, "source", src)
			return false, nil
		}
	}

	return true, nil
}

// Rebuild recompiles and replaces the running process when it is stale.
//
// The executable is stale when the script source or any library source is newer. By default the library
// sources are the non test Go files of the cbs packages the script is compiled against, found next to
// this package; builds without source paths such as -trimpath only check the script source. Use
// WithLibraries to track other files.
//
// The arguments are passed to the new process unchanged, empty arguments included.
//
// A Fresh state is returned when nothing had to be done, on a successful replacement this never returns
// unless the Replacer does.
func (b *Bootstrapper) Rebuild(ctx context.Context) (State, error) {
	fresh, err := b.IsFresh()
	if err != nil {
		return b.transition(RecompileFailed), fmt.Errorf("could not check %s: %w", b.executable, err)
	}

	if fresh {
		return b.transition(Fresh), nil
	}

	b.transition(Recompiling)

	err = b.compile(ctx)
	if err != nil {
		return b.transition(RecompileFailed), err
	}

	argv := make([]string, len(b.argv))
	copy(argv, b.argv)

	b.printArgs(argv)
	b.transition(Replaced)

	err = b.replace(b.executable, argv, b.env)
	if err != nil {
		return Replaced, fmt.Errorf("could not execute %s: %w", b.executable, err)
	}

	return Replaced, nil
}

func (b *Bootstrapper) compile(ctx context.Context) error {
	dir, base := filepath.Split(b.executable)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, ksuid.New().String()))

	cmd, err := command.New(b.compiler...)
	if err != nil {
		return fmt.Errorf("invalid compiler: %w", err)
	}

	err = cmd.Append("-o", tmp, b.source)
	if err != nil {
		return err
	}

	b.print(cmd)

	status, err := b.runner.Execute(ctx, cmd)
	if err != nil || status != 0 {
		os.Remove(tmp)

		if err != nil {
			return fmt.Errorf("could not compile %s: %w", b.source, err)
		}

		return &RecompileError{Source: b.source, Status: status}
	}

	err = os.Rename(tmp, b.executable)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace %s: %w", b.executable, err)
	}

	return nil
}

func (b *Bootstrapper) print(cmd *command.Command) {
	if b.echo == nil {
		return
	}

	err := cmd.Print(b.echo)
	if err != nil {
		b.log.Warn("Could not echo command", "error", err)
	}
}

func (b *Bootstrapper) printArgs(argv []string) {
	if b.echo == nil {
		return
	}

	_, err := fmt.Fprintln(b.echo, shellescape.QuoteCommand(argv))
	if err != nil {
		b.log.Warn("Could not echo command", "error", err)
	}
}

func (b *Bootstrapper) transition(s State) State {
	b.state = s
	metrics.RebuildCount.WithLabelValues(s.String()).Inc()
	b.log.Debug("Rebuild state", "state", s.String(), "executable", b.executable)

	return s
}

// librarySources finds the non test Go files of the module holding this package, skipping the
// cmd, examples, testdata and hidden or underscore directories
func librarySources() []string {
	_, file, _, ok := runtime.Caller(0)
	if !ok || !mtime.Exists(file) {
		return nil
	}

	root := filepath.Dir(filepath.Dir(file))
	var sources []string

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}

			switch {
			case name == "cmd", name == "examples", name == "testdata":
				return filepath.SkipDir
			case strings.HasPrefix(name, "."), strings.HasPrefix(name, "_"):
				return filepath.SkipDir
			}

			return nil
		}

		if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			sources = append(sources, path)
		}

		return nil
	})

	return sources
}
