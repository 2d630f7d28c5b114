// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package logging creates model.Logger instances backed by log/slog or logrus
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/SladkyCitron/slogcolor"

	iu "github.com/choria-io/cbs/internal/util"
	"github.com/choria-io/cbs/model"
)

// ParseLevel converts a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("log level must be one of: debug, info, warn, error")
	}
}

// New creates a logger at level writing to stderr, colored output is used when stderr is a terminal
func New(level string) (model.Logger, error) {
	return NewFileLogger(os.Stderr, level)
}

// NewFileLogger creates a logger at level writing to f, colored output is used when f is a terminal
func NewFileLogger(f *os.File, level string) (model.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if iu.IsTerminal(f) {
		return NewSlogLogger(slog.New(slogcolor.NewHandler(f, &slogcolor.Options{Level: lvl}))), nil
	}

	return NewWriterLogger(f, lvl), nil
}

// NewWriterLogger creates a plain text logger writing to w
func NewWriterLogger(w io.Writer, level slog.Level) model.Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Discard creates a logger that drops all messages
func Discard() model.Logger {
	return NewSlogLogger(slog.New(slog.DiscardHandler))
}
