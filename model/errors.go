// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
)

var (
	ErrEmptyCommand  = errors.New("command has no arguments")
	ErrToolNotFound  = errors.New("executable not found")
	ErrLaunchFailed  = errors.New("could not launch process")
	ErrPipeFailed    = errors.New("could not create pipe")
	ErrReadFailed    = errors.New("could not read process output")
	ErrAlreadyWaited = errors.New("process was already waited for")
	ErrInvalidHandle = errors.New("invalid process handle")
)
