// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/choria-io/cbs"
	"github.com/choria-io/cbs/config"
	"github.com/choria-io/cbs/logging"
	"github.com/choria-io/cbs/model"
)

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.ParseFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if monitorPort > 0 {
		cfg.MonitorPort = monitorPort
	}

	if sessionDir != "" {
		cfg.SessionDir = sessionDir
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (model.Logger, error) {
	level := cfg.LogLevel
	switch {
	case debug:
		level = "debug"
	case info:
		level = "info"
	}

	if jsonLogs {
		lvl, err := logging.ParseLevel(level)
		if err != nil {
			return nil, err
		}

		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrusLevel(lvl))

		return logging.NewLogrusLogger(logrus.NewEntry(logger)), nil
	}

	return logging.New(level)
}

func logrusLevel(level slog.Level) logrus.Level {
	switch {
	case level <= slog.LevelDebug:
		return logrus.DebugLevel
	case level <= slog.LevelInfo:
		return logrus.InfoLevel
	case level <= slog.LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// newScript creates a script, echo is where commands are printed when echo is enabled in the configuration
func newScript(echo io.Writer) (*cbs.Script, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if !cfg.ShouldEcho() {
		echo = nil
	}

	return cbs.New(cbs.WithConfig(cfg), cbs.WithLogger(log), cbs.WithEcho(echo))
}

// exitStatus maps a command status to a status this process can exit with
func exitStatus(status int) int {
	switch {
	case status == model.ExitSignaled:
		return 128
	case status < 0 || status > 255:
		return 1
	default:
		return status
	}
}

func finish(s *cbs.Script, status int) {
	_, err := s.Close()
	if err != nil {
		s.Logger().Error("Could not close session", "error", err)
	}

	exit(exitStatus(status))
}
