// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/choria-io/cbs"
	"github.com/choria-io/cbs/internal/mtime"
)

type compareCommand struct {
	lhs   string
	rhs   string
	older bool
}

func registerCompareCommands(app *fisk.Application) {
	newer := &compareCommand{}
	nc := app.Command("newer", "Exits 0 when the first file was modified after the second, 1 when not and 2 on error").Action(newer.compareAction)
	nc.Arg("file", "The file to check").Required().StringVar(&newer.lhs)
	nc.Arg("reference", "The file to compare with").Required().StringVar(&newer.rhs)

	older := &compareCommand{older: true}
	oc := app.Command("older", "Exits 0 when the first file was modified before the second, 1 when not and 2 on error").Action(older.compareAction)
	oc.Arg("file", "The file to check").Required().StringVar(&older.lhs)
	oc.Arg("reference", "The file to compare with").Required().StringVar(&older.rhs)
}

func (c *compareCommand) compareAction(_ *fisk.ParseContext) error {
	exit(c.status())
	return nil
}

// status is 0 when the comparison holds, 1 when it does not and 2 when a file could not be checked
func (c *compareCommand) status() int {
	var res bool
	var err error

	if c.older {
		res, err = mtime.IsOlder(c.lhs, c.rhs)
	} else {
		res, err = mtime.IsNewer(c.lhs, c.rhs)
	}

	switch {
	case err != nil:
		fmt.Fprintf(stderr, "%s: %v\n", cbs.ProgramName(), err)
		return 2
	case res:
		return 0
	default:
		return 1
	}
}
