// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package iaq computes the indoor air quality score from relative humidity and
// the BME68x gas resistance relative to a baseline captured at startup.
//
// The score lies in [0, 100]; 100 is excellent air.
package iaq

import (
	"errors"
	"fmt"
	"math"
)

// OptimalHumidity is the relative humidity (%) that scores 100.
const OptimalHumidity = 40.0

const (
	humidityWeight = 0.25
	gasWeight      = 0.75
)

var (
	// ErrInvalidBaseline is returned when the baseline gas resistance is not a
	// positive finite number.
	ErrInvalidBaseline = errors.New("invalid gas baseline")
	// ErrInvalidReading is returned for NaN inputs.
	ErrInvalidReading = errors.New("invalid reading")
)

// HumidityScore is 100 at OptimalHumidity and falls by 5 points per percent
// of deviation, never below 0.
func HumidityScore(humidity float64) float64 {
	return math.Max(100-5*math.Abs(humidity-OptimalHumidity), 0)
}

// GasScore is the gas resistance as a percentage of the baseline, clamped to [0, 100].
func GasScore(gasResistance, baseline float64) float64 {
	return math.Min(math.Max(gasResistance/baseline*100, 0), 100)
}

// Score blends the humidity and gas scores 1:3.
func Score(humidity, gasResistance, baseline float64) (float64, error) {
	if !(baseline > 0) || math.IsInf(baseline, 0) {
		return 0, fmt.Errorf("%w: %v Ohms", ErrInvalidBaseline, baseline)
	}
	if math.IsNaN(humidity) || math.IsNaN(gasResistance) {
		return 0, fmt.Errorf("%w: humidity %v, gas %v", ErrInvalidReading, humidity, gasResistance)
	}
	return humidityWeight*HumidityScore(humidity) + gasWeight*GasScore(gasResistance, baseline), nil
}
