// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"al.essio.dev/pkg/shellescape"
	"github.com/choria-io/fisk"

	"github.com/choria-io/cbs/pkgconfig"
)

type pkgConfigCommand struct {
	lib    string
	libs   bool
	cflags bool
}

func registerPkgConfigCommand(app *fisk.Application) {
	cmd := &pkgConfigCommand{}

	pc := app.Command("pkg-config", "Shows the compiler and linker flags for a library").Alias("pc").Action(cmd.pkgConfigAction)
	pc.Arg("library", "The library to query").Required().StringVar(&cmd.lib)
	pc.Flag("libs", "Show linker flags").UnNegatableBoolVar(&cmd.libs)
	pc.Flag("cflags", "Show compiler flags").UnNegatableBoolVar(&cmd.cflags)
}

func (c *pkgConfigCommand) pkgConfigAction(_ *fisk.ParseContext) error {
	s, err := newScript(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	var flags pkgconfig.Flags
	if c.libs {
		flags |= pkgconfig.Libs
	}
	if c.cflags {
		flags |= pkgconfig.CFlags
	}

	tokens, err := pkgconfig.Lookup(ctx, s.Runner(), c.lib, flags)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, shellescape.QuoteCommand(tokens))

	return nil
}
