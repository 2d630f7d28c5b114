// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/choria-io/cbs/pool"
)

func registerNprocCommand(app *fisk.Application) {
	app.Command("nproc", "Shows the number of processors").Action(func(_ *fisk.ParseContext) error {
		fmt.Fprintln(stdout, pool.NProc())
		return nil
	})
}
