// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors adapts the SCD4x CO2 sensor and the BME68x environmental
// sensor to the operations the acquisition loop needs.
package sensors

import "errors"

var (
	// ErrTransientRead marks a single failed read. The next cycle retries.
	ErrTransientRead = errors.New("transient read error")
	// ErrWarmingUp is returned by a CO2 read attempted before the warm-up
	// interval has elapsed.
	ErrWarmingUp = errors.New("sensor warming up")
)
