// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

// Package mtime compares file modification times, it is the only staleness check cbs performs
package mtime

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// Compare returns 1 when lhs was modified after rhs, -1 when before and 0 when both have the same
// modification time. Seconds are compared first and nanoseconds break ties.
//
// Failure to stat either file is an error, errors.Is(err, fs.ErrNotExist) identifies missing files.
func Compare(lhs string, rhs string) (int, error) {
	lsec, lnsec, err := modified(lhs)
	if err != nil {
		return 0, err
	}

	rsec, rnsec, err := modified(rhs)
	if err != nil {
		return 0, err
	}

	if lsec != rsec {
		return sign(lsec - rsec), nil
	}

	return sign(lnsec - rnsec), nil
}

// IsNewer is true when lhs was modified strictly after rhs
func IsNewer(lhs string, rhs string) (bool, error) {
	res, err := Compare(lhs, rhs)
	if err != nil {
		return false, err
	}

	return res > 0, nil
}

// IsOlder is true when lhs was modified strictly before rhs
func IsOlder(lhs string, rhs string) (bool, error) {
	res, err := Compare(lhs, rhs)
	if err != nil {
		return false, err
	}

	return res < 0, nil
}

// Exists checks if anything exists at path, false might also mean the path is not accessible
func Exists(path string) bool {
	return unix.Access(path, unix.F_OK) == nil
}

func modified(path string) (int64, int64, error) {
	var st unix.Stat_t

	err := unix.Stat(path, &st)
	if err != nil {
		return 0, 0, &fs.PathError{Op: "stat", Path: path, Err: err}
	}

	sec, nsec := st.Mtim.Unix()

	return sec, nsec, nil
}

func sign(d int64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}
