// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/choria-io/fisk"

	"github.com/choria-io/cbs/command"
)

type execCommand struct {
	command []string
}

func registerExecCommand(app *fisk.Application) {
	cmd := &execCommand{}

	exec := app.Command("exec", "Runs a command and exits with its status").Alias("run").Action(cmd.execAction)
	exec.Arg("command", "The command to run, use -- before commands taking flags").Required().StringsVar(&cmd.command)
}

func registerCaptureCommand(app *fisk.Application) {
	cmd := &execCommand{}

	capture := app.Command("capture", "Runs a command, prints its standard output and exits with its status").Action(cmd.captureAction)
	capture.Arg("command", "The command to run, use -- before commands taking flags").Required().StringsVar(&cmd.command)
}

func (c *execCommand) execAction(_ *fisk.ParseContext) error {
	s, err := newScript(stdout)
	if err != nil {
		return err
	}

	cmd, err := command.New(c.command...)
	if err != nil {
		return err
	}

	finish(s, s.Exec(ctx, cmd))

	return nil
}

func (c *execCommand) captureAction(_ *fisk.ParseContext) error {
	// output is the result here, commands are echoed to stderr
	s, err := newScript(stderr)
	if err != nil {
		return err
	}

	cmd, err := command.New(c.command...)
	if err != nil {
		return err
	}

	out, status := s.Capture(ctx, cmd)
	stdout.Write(out)

	finish(s, status)

	return nil
}
