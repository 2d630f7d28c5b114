// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"fmt"

	"github.com/choria-io/cbs/model"
)

// Option configures a Pool
type Option func(*Pool) error

// WithLogger sets the logger used by the pool and its workers
func WithLogger(log model.Logger) Option {
	return func(p *Pool) error {
		if log == nil {
			return fmt.Errorf("logger is required")
		}

		p.log = log
		return nil
	}
}
