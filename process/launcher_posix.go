// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"

	"github.com/choria-io/cbs/model"
)

// fallbackBlockSize is used when the pipe does not report a preferred block size
const fallbackBlockSize = 8192

// Handle is a process started by the PosixLauncher
type Handle struct {
	cmd    *exec.Cmd
	waited atomic.Bool
}

// Pid is the operating system process id
func (h *Handle) Pid() int {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return 0
	}

	return h.cmd.Process.Pid
}

// PosixLauncher starts processes directly without a shell, stdin and stderr are inherited from this process
type PosixLauncher struct{}

var _ model.Launcher = (*PosixLauncher)(nil)

// NewPosixLauncher creates a launcher for POSIX systems
func NewPosixLauncher() *PosixLauncher {
	return &PosixLauncher{}
}

func (l *PosixLauncher) Launch(ctx context.Context, opts model.LaunchOptions) (model.ProcessHandle, error) {
	if len(opts.Args) == 0 || opts.Args[0] == "" {
		return nil, model.ErrEmptyCommand
	}

	path, err := exec.LookPath(opts.Args[0])
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", model.ErrToolNotFound, opts.Args[0], err)
		}

		return nil, fmt.Errorf("%w: %s: %w", model.ErrLaunchFailed, opts.Args[0], err)
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Args = opts.Args
	cmd.Dir = opts.Dir
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}

	if len(opts.Environment) > 0 {
		cmd.Env = append(os.Environ(), opts.Environment...)
	}

	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrLaunchFailed, opts.Args[0], err)
	}

	return &Handle{cmd: cmd}, nil
}

func (l *PosixLauncher) Wait(handle model.ProcessHandle) (int, error) {
	h, ok := handle.(*Handle)
	if !ok || h == nil || h.cmd == nil || h.cmd.Process == nil {
		return -1, model.ErrInvalidHandle
	}

	if !h.waited.CompareAndSwap(false, true) {
		return -1, model.ErrAlreadyWaited
	}

	err := h.cmd.Wait()
	if h.cmd.ProcessState == nil {
		return -1, fmt.Errorf("wait for pid %d failed: %w", h.cmd.Process.Pid, err)
	}

	status := exitStatus(h.cmd.ProcessState)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// the process was reaped but copying its output failed
		return status, err
	}

	return status, nil
}

func exitStatus(state *os.ProcessState) int {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return state.ExitCode()
	}

	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return model.ExitSignaled
	default:
		return state.ExitCode()
	}
}

func blockSize(f *os.File) int {
	nfo, err := f.Stat()
	if err != nil {
		return fallbackBlockSize
	}

	st, ok := nfo.Sys().(*syscall.Stat_t)
	if !ok || st.Blksize <= 0 {
		return fallbackBlockSize
	}

	return int(st.Blksize)
}
