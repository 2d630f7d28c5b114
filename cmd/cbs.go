// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/choria-io/fisk"
)

var (
	ctx         context.Context
	debug       bool
	info        bool
	jsonLogs    bool
	configFile  string
	monitorPort int
	sessionDir  string
	Version     = "development"

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

func main() {
	app := fisk.New("cbs", "Build script runtime")
	app.Version(Version)
	app.Author("https://choria.io")

	app.Flag("debug", "Enable debug logging").UnNegatableBoolVar(&debug)
	app.Flag("info", "Enable info logging").UnNegatableBoolVar(&info)
	app.Flag("json", "Log in JSON format").UnNegatableBoolVar(&jsonLogs)
	app.Flag("config", "Configuration file to use").PlaceHolder("FILE").ExistingFileVar(&configFile)
	app.Flag("monitor-port", "Port to serve Prometheus metrics on").PlaceHolder("PORT").IntVar(&monitorPort)
	app.Flag("session", "Directory to record executed commands in").Envar("CBS_SESSION_STORE").PlaceHolder("DIR").StringVar(&sessionDir)

	registerExecCommand(app)
	registerCaptureCommand(app)
	registerCompareCommands(app)
	registerPkgConfigCommand(app)
	registerParallelCommand(app)
	registerNprocCommand(app)
	registerSessionCommand(app)

	ctx, _ = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app.MustParseWithUsage(os.Args[1:])
}
