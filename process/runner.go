// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/choria-io/cbs/command"
	"github.com/choria-io/cbs/metrics"
	"github.com/choria-io/cbs/model"
)

// Runner executes commands using a Launcher, logging, recording and optionally echoing every invocation
type Runner struct {
	launcher    model.Launcher
	log         model.Logger
	echo        io.Writer
	session     model.SessionStore
	dir         string
	environment []string
	timeout     time.Duration
	pipe        PipeFactory
}

// PipeFactory creates the pipe standard output is captured through, the write end is handed to the process
type PipeFactory func() (io.ReadCloser, io.WriteCloser, error)

// OSPipe is the default PipeFactory backed by os.Pipe
func OSPipe() (io.ReadCloser, io.WriteCloser, error) {
	rd, wr, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}

	return rd, wr, nil
}

// Process is a command launched by Runner.Launch that has to be passed to Runner.Wait
type Process struct {
	handle   model.ProcessHandle
	line     string
	name     string
	started  time.Time
	captured bool
	cancel   context.CancelFunc
}

// Pid is the operating system process id
func (p *Process) Pid() int {
	if p == nil || p.handle == nil {
		return 0
	}

	return p.handle.Pid()
}

var _ model.Runner = (*Runner)(nil)

// NewRunner creates a Runner, by default it uses the PosixLauncher and does not echo
func NewRunner(log model.Logger, opts ...Option) (*Runner, error) {
	r := &Runner{log: log}

	for _, opt := range opts {
		err := opt(r)
		if err != nil {
			return nil, err
		}
	}

	if r.launcher == nil {
		r.launcher = NewPosixLauncher()
	}

	if r.pipe == nil {
		r.pipe = OSPipe
	}

	return r, nil
}

// Launch starts cmd without waiting for it
func (r *Runner) Launch(ctx context.Context, cmd *command.Command) (*Process, error) {
	return r.launch(ctx, cmd, nil)
}

// Wait blocks until p terminates, the status is 0 to 255 for processes that exited and model.ExitSignaled for those killed by a signal
func (r *Runner) Wait(p *Process) (int, error) {
	if p == nil {
		return -1, model.ErrInvalidHandle
	}

	status, err := r.launcher.Wait(p.handle)
	if p.cancel != nil {
		p.cancel()
	}

	if errors.Is(err, model.ErrAlreadyWaited) || errors.Is(err, model.ErrInvalidHandle) {
		return status, err
	}

	r.record(p, status, err)

	return status, err
}

// Execute runs cmd with standard output passed through and returns its status
func (r *Runner) Execute(ctx context.Context, cmd *command.Command) (int, error) {
	p, err := r.Launch(ctx, cmd)
	if err != nil {
		return -1, err
	}

	return r.Wait(p)
}

// Capture runs cmd and returns everything it wrote to standard output.
//
// When reading fails the data read so far is returned along with an error wrapping model.ErrReadFailed
func (r *Runner) Capture(ctx context.Context, cmd *command.Command) ([]byte, int, error) {
	rd, wr, err := r.pipe()
	if err != nil {
		return nil, -1, fmt.Errorf("%w: %w", model.ErrPipeFailed, err)
	}
	defer rd.Close()

	p, err := r.launch(ctx, cmd, wr)

	// we have to let go of our write end or the read below never sees EOF
	wr.Close()

	if err != nil {
		return nil, -1, err
	}

	out, rerr := drain(rd)
	if rerr != nil {
		// unblocks a child still writing to a pipe we stopped reading
		rd.Close()
	}

	status, werr := r.Wait(p)
	if rerr != nil {
		return out, status, fmt.Errorf("%w: %w", model.ErrReadFailed, rerr)
	}

	return out, status, werr
}

func (r *Runner) launch(ctx context.Context, cmd *command.Command, stdout io.Writer) (*Process, error) {
	if cmd == nil || cmd.Len() == 0 {
		return nil, model.ErrEmptyCommand
	}

	p := &Process{
		line:     cmd.String(),
		name:     filepath.Base(cmd.Name()),
		captured: stdout != nil,
	}

	if r.echo != nil {
		err := cmd.Print(r.echo)
		if err != nil {
			r.log.Warn("Could not echo command", "command", p.line, "error", err)
		}
	}

	opts := model.LaunchOptions{
		Args:        cmd.Args(),
		Dir:         r.dir,
		Environment: r.environment,
	}
	opts.Stdout = stdout

	r.log.Debug("Launching process", "command", p.line, "captured", p.captured)

	if r.timeout > 0 {
		ctx, p.cancel = context.WithTimeout(ctx, r.timeout)
	}

	p.started = time.Now()
	handle, err := r.launcher.Launch(ctx, opts)
	if err != nil {
		if p.cancel != nil {
			p.cancel()
		}
		r.record(p, -1, err)
		return nil, err
	}

	p.handle = handle

	return p, nil
}

func (r *Runner) record(p *Process, status int, err error) {
	event := model.NewExecEvent(p.line)
	event.TimeStamp = p.started.UTC()
	event.Duration = time.Since(p.started)
	event.Pid = p.Pid()
	event.Status = status
	event.Captured = p.captured

	mode := "execute"
	if p.captured {
		mode = "capture"
	}

	if err != nil {
		event.Error = err.Error()
		metrics.CommandErrorCount.WithLabelValues(p.name).Inc()
	} else {
		metrics.CommandExitCount.WithLabelValues(p.name, metrics.StatusLabel(status)).Inc()
		metrics.CommandRunTime.WithLabelValues(p.name, mode).Observe(event.Duration.Seconds())
	}

	event.LogStatus(r.log)

	if r.session == nil {
		return
	}

	err = r.session.RecordEvent(event)
	if err != nil {
		r.log.Error("Could not record execution event", "command", p.line, "error", err)
	}
}

func drain(rd io.Reader) ([]byte, error) {
	var out []byte

	size := fallbackBlockSize
	if f, ok := rd.(*os.File); ok {
		size = blockSize(f)
	}

	chunk := make([]byte, size)
	for {
		n, err := rd.Read(chunk)
		out = append(out, chunk[:n]...)

		switch {
		case errors.Is(err, io.EOF):
			return out, nil
		case err != nil:
			return out, err
		}
	}
}
