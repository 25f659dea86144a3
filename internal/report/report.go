// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package report renders the outcome of each read cycle.
package report

import (
	"errors"
	"time"

	"github.com/relabs-tech/air_monitor/internal/co2"
	"github.com/relabs-tech/air_monitor/internal/env"
)

// Cycle is the outcome of one pass of the read loop. Disabled sensors are
// skipped by every reporter.
type Cycle struct {
	Time time.Time

	CO2Enabled  bool
	CO2         *co2.Sample
	CO2NotReady bool
	CO2Err      error

	EnvEnabled bool
	EnvPresent bool
	Env        *env.Sample
	EnvErr     error

	IAQEnabled bool
	IAQ        *float64
	IAQErr     error
}

// Reporter receives every cycle in order.
type Reporter interface {
	Report(c *Cycle) error
}

// Multi fans a cycle out to several reporters, in order. Every reporter sees
// the cycle even when an earlier one fails.
type Multi []Reporter

func (m Multi) Report(c *Cycle) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
