// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional cbs configuration file
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	iu "github.com/choria-io/cbs/internal/util"
	"github.com/choria-io/cbs/logging"
	"github.com/choria-io/cbs/model"
)

const (
	// EnvCompiler overrides the compiler command line
	EnvCompiler = "CBS_GO"
	// EnvWorkers overrides the default worker count
	EnvWorkers = "CBS_WORKERS"
	// EnvLogLevel overrides the log level
	EnvLogLevel = "CBS_LOG_LEVEL"

	// SystemConfigFile is used when no user configuration exists
	SystemConfigFile = "/etc/choria/cbs/config.yaml"
)

// Config holds settings shared by build scripts and the cbs command
type Config struct {
	// Compiler is the command used to rebuild scripts, -o <executable> <source> is appended.
	// Defaults to "go build"
	Compiler string `yaml:"compiler"`

	// Workers is the default size of worker pools, 0 means one per CPU
	Workers int `yaml:"workers"`

	// LogLevel is the log level to use
	// Valid values: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Echo prints every command before running it, defaults to true
	Echo *bool `yaml:"echo"`

	// CommandTimeout kills commands running longer than this (e.g. "10m"), empty disables it
	CommandTimeout  string `yaml:"command_timeout"`
	commandDuration time.Duration

	// MonitorPort is the port to listen on for accessing Prometheus stats
	MonitorPort int `yaml:"monitor_port"`

	// SessionDir records every executed command in this directory when set
	SessionDir string `yaml:"session_dir"`

	// Environment is a list of KEY=VALUE items added to every command
	Environment []string `yaml:"environment"`

	source string
}

// Default is the configuration used when no file exists
func Default() *Config {
	return &Config{
		Compiler: "go build",
		LogLevel: "warn",
	}
}

// ParseConfig parses YAML configuration, applies environment overrides and validates the result
func ParseConfig(c []byte) (*Config, error) {
	cfg := Default()

	var err error
	if len(bytes.TrimSpace(c)) > 0 {
		err = yaml.Unmarshal(c, cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.CommandTimeout != "" {
		cfg.commandDuration, err = fisk.ParseDuration(cfg.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid command_timeout: %w", err)
		}
	}

	err = cfg.applyEnvironment()
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseFile reads and parses a configuration file
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	cfg.source = path

	return cfg, nil
}

// Load parses the first configuration file found in the user or system location, without one the defaults are used
func Load() (*Config, error) {
	for _, path := range SearchPath() {
		if iu.FileExists(path) {
			return ParseFile(path)
		}
	}

	return ParseConfig(nil)
}

// SearchPath is the list of files Load considers in order
func SearchPath() []string {
	var paths []string

	if xdg.ConfigHome != "" {
		paths = append(paths, filepath.Join(xdg.ConfigHome, "choria", "cbs", "config.yaml"))
	}

	return append(paths, SystemConfigFile)
}

func (c *Config) applyEnvironment() error {
	if v := os.Getenv(EnvCompiler); v != "" {
		c.Compiler = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}

	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Compiler) == "" {
		return fmt.Errorf("compiler must be set")
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers can not be negative")
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("monitor_port must be between 0 and 65535")
	}

	if c.commandDuration < 0 {
		return fmt.Errorf("command_timeout can not be negative")
	}

	for _, env := range c.Environment {
		k, _, ok := strings.Cut(env, "=")
		if !ok || k == "" {
			return fmt.Errorf("environment item %q must be in KEY=VALUE format", env)
		}
	}

	_, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// ShouldEcho determines if commands are printed before running
func (c *Config) ShouldEcho() bool {
	return c.Echo == nil || *c.Echo
}

// Timeout is the parsed command_timeout, zero when unset
func (c *Config) Timeout() time.Duration {
	return c.commandDuration
}

// Source is the file the configuration was read from, empty for defaults
func (c *Config) Source() string {
	return c.source
}

// NewLogger creates a logger at the configured level
func (c *Config) NewLogger() (model.Logger, error) {
	return logging.New(c.LogLevel)
}
