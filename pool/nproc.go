// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// NProc is the number of logical CPUs, it is never less than 1
func NProc() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}

	return max(n, 1)
}
