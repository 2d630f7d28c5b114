// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"

	iu "github.com/choria-io/cbs/internal/util"
	"github.com/choria-io/cbs/logging"
	"github.com/choria-io/cbs/model"
	"github.com/choria-io/cbs/session"
)

type sessionCmd struct {
	directory  string
	query      string
	yamlFormat bool
}

func registerSessionCommand(app *fisk.Application) {
	cmd := &sessionCmd{}

	sess := app.Command("session", "Manage session stores")

	newAction := sess.Command("new", "Creates a new session store").Alias("start").Action(cmd.newAction)
	newAction.Flag("directory", "Directory to store the session in").StringVar(&cmd.directory)

	showAction := sess.Command("show", "Shows the commands recorded in a session").Alias("events").Action(cmd.showAction)
	showAction.Arg("query", "Query to apply to the list of events").StringVar(&cmd.query)
	showAction.Flag("yaml", "Output events in YAML format").UnNegatableBoolVar(&cmd.yamlFormat)

	sess.Command("report", "Report on the active session").Action(cmd.reportAction)
}

func (c *sessionCmd) store() (*session.DirectorySessionStore, error) {
	if sessionDir == "" {
		return nil, fmt.Errorf("no session store specified, use --session or CBS_SESSION_STORE")
	}

	return session.NewDirectorySessionStore(sessionDir, logging.Discard())
}

func (c *sessionCmd) newAction(_ *fisk.ParseContext) error {
	var err error

	if c.directory == "" {
		c.directory, err = os.MkdirTemp("", "cbs-session-*")
		if err != nil {
			return err
		}
	} else if iu.IsDirectory(c.directory) {
		return fmt.Errorf("session store %s already exists", c.directory)
	}

	fmt.Fprintf(stdout, "export CBS_SESSION_STORE=%v\n", c.directory)

	return nil
}

func (c *sessionCmd) showAction(_ *fisk.ParseContext) error {
	store, err := c.store()
	if err != nil {
		return err
	}

	events, err := store.AllEvents()
	if err != nil {
		return err
	}

	if events == nil {
		events = []model.SessionEvent{}
	}

	j, err := json.Marshal(events)
	if err != nil {
		return err
	}

	if c.query != "" {
		j = []byte(gjson.GetBytes(j, c.query).Raw)
		if len(j) == 0 {
			return fmt.Errorf("query %q matched nothing", c.query)
		}
	}

	if c.yamlFormat {
		y, err := yaml.JSONToYAML(j)
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout, string(y))
		return nil
	}

	out := bytes.NewBuffer([]byte{})
	err = json.Indent(out, j, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, out.String())

	return nil
}

func (c *sessionCmd) reportAction(_ *fisk.ParseContext) error {
	store, err := c.store()
	if err != nil {
		return err
	}

	summary, err := store.StopSession(false)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Session Summary")
	fmt.Fprintln(stdout)
	if summary.TotalDuration > 0 {
		fmt.Fprintf(stdout, "        Run Time: %v\n", summary.TotalDuration.Round(time.Millisecond))
	}
	fmt.Fprintf(stdout, "  Total Commands: %d\n", summary.TotalCommands)
	fmt.Fprintf(stdout, " Failed Commands: %d\n", summary.FailedCommands)
	fmt.Fprintf(stdout, "        Signaled: %d\n", summary.Signaled)
	fmt.Fprintf(stdout, "        Captured: %d\n", summary.Captured)
	fmt.Fprintf(stdout, "    Total Errors: %d\n", summary.TotalErrors)

	return nil
}
