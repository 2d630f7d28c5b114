// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/choria-io/fisk"
	"github.com/kballard/go-shellquote"

	"github.com/choria-io/cbs"
	"github.com/choria-io/cbs/command"
)

type parallelCommand struct {
	file     string
	workers  int
	failFast bool
}

func registerParallelCommand(app *fisk.Application) {
	cmd := &parallelCommand{}

	par := app.Command("parallel", "Runs commands read one per line using a pool of workers").Action(cmd.parallelAction)
	par.Arg("file", "File holding the commands, - for standard input").Default("-").StringVar(&cmd.file)
	par.Flag("jobs", "Number of commands to run at the same time, defaults to the configured workers or CPU count").Short('j').IntVar(&cmd.workers)
	par.Flag("fail-fast", "Skip commands not yet started once one fails").UnNegatableBoolVar(&cmd.failFast)
}

// readCommands parses shell style command lines, blank lines and # comments are ignored
func readCommands(r io.Reader) ([]*command.Command, error) {
	var cmds []*command.Command

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts, err := shellquote.Split(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		cmd, err := command.New(parts...)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		cmds = append(cmds, cmd)
	}

	return cmds, scanner.Err()
}

// parallelResult counts how the commands of a parallel run ended
type parallelResult struct {
	ran      int32
	failures int32
	skipped  int32
	workers  int
}

func (c *parallelCommand) parallelAction(_ *fisk.ParseContext) error {
	var input io.Reader = os.Stdin
	if c.file != "-" {
		f, err := os.Open(c.file)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	cmds, err := readCommands(input)
	if err != nil {
		return err
	}

	s, err := newScript(stdout)
	if err != nil {
		return err
	}

	res, err := c.run(ctx, s, cmds)
	if err != nil {
		return err
	}

	summary, err := s.Close()
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Ran %d of %d commands using %d workers in %v: %d failed, %d skipped\n",
		res.ran, len(cmds), res.workers, summary.TotalDuration.Round(time.Millisecond), res.failures, res.skipped)

	if res.failures > 0 || res.skipped > 0 {
		exit(1)
	}

	return nil
}

// run executes cmds on a worker pool, with fail fast the pool is torn down after the first failure and
// commands that did not start yet are skipped
func (c *parallelCommand) run(ctx context.Context, s *cbs.Script, cmds []*command.Command) (*parallelResult, error) {
	p := s.Pool(c.workers)
	res := &parallelResult{workers: p.Workers()}

	failed := make(chan struct{}, 1)
	var ran, failures, skipped atomic.Int32
	var stopping atomic.Bool

	for _, cmd := range cmds {
		var started atomic.Bool

		err := p.Enqueue(func() {
			if c.failFast && stopping.Load() {
				return
			}
			started.Store(true)
			ran.Add(1)

			status, err := s.Runner().Execute(ctx, cmd)
			if err != nil || status != 0 {
				failures.Add(1)
				stopping.Store(true)
				select {
				case failed <- struct{}{}:
				default:
				}
			}
		}, func() {
			if !started.Load() {
				skipped.Add(1)
			}
		})
		if err != nil {
			p.Shutdown()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	var failedCh <-chan struct{}
	if c.failFast {
		failedCh = failed
	}

	select {
	case <-done:
	case <-failedCh:
	case <-ctx.Done():
	}

	p.Shutdown()
	<-done

	res.ran = ran.Load()
	res.failures = failures.Load()
	res.skipped = skipped.Load()

	return res, nil
}
