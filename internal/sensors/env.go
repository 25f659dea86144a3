// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/air_monitor/internal/bme68x"
	"github.com/relabs-tech/air_monitor/internal/env"
)

// DefaultSeaLevelHPa is the standard atmosphere at sea level.
const DefaultSeaLevelHPa = 1013.25

// baselineAttempts bounds the forced measurements spent waiting for a stable heater.
const baselineAttempts = 3

type envDevice interface {
	Sense(e *bme68x.Env) error
	Halt() error
	String() string
}

// EnvSensor wraps a BME68x. The gas baseline is captured at most once.
type EnvSensor struct {
	dev      envDevice
	addr     uint16
	seaLevel float64

	baseline     float64
	haveBaseline bool
	now          func() time.Time
}

// NewEnvSensor initializes the BME68x at addr.
func NewEnvSensor(b i2c.Bus, addr uint16) (*EnvSensor, error) {
	dev, err := bme68x.NewI2C(b, addr, &bme68x.DefaultOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "BME688@0x%02X", addr)
	}
	return newEnvSensor(dev, addr), nil
}

func newEnvSensor(dev envDevice, addr uint16) *EnvSensor {
	return &EnvSensor{
		dev:      dev,
		addr:     addr,
		seaLevel: DefaultSeaLevelHPa,
		now:      time.Now,
	}
}

// Configure sets the sea level pressure used for the altitude estimate.
func (s *EnvSensor) Configure(seaLevelHPa float64) error {
	if !(seaLevelHPa > 0) || math.IsInf(seaLevelHPa, 0) {
		return fmt.Errorf("%s: invalid sea level pressure %v hPa", s, seaLevelHPa)
	}
	s.seaLevel = seaLevelHPa
	return nil
}

// Read takes one forced measurement. Every failure is an ErrTransientRead:
// the caller skips the cycle and keeps polling.
func (s *EnvSensor) Read() (env.Sample, error) {
	var e bme68x.Env
	if err := s.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("%w: %s: %w", ErrTransientRead, s, err)
	}
	hpa := float64(e.Pressure) / float64(physic.Pascal) / 100.0
	return env.Sample{
		Source:        s.String(),
		Time:          s.now(),
		Temperature:   e.Temperature.Celsius(),
		Humidity:      float64(e.Humidity) / float64(physic.PercentRH),
		Pressure:      hpa,
		GasResistance: float64(e.GasResistance) / float64(physic.Ohm),
		GasValid:      e.GasValid,
		Altitude:      Altitude(hpa, s.seaLevel),
	}, nil
}

// CaptureBaseline records the gas resistance used as the IAQ reference. Once
// captured the value never changes; later calls return it unchanged.
func (s *EnvSensor) CaptureBaseline() (float64, error) {
	if s.haveBaseline {
		return s.baseline, nil
	}
	var lastErr error
	for i := 0; i < baselineAttempts; i++ {
		sample, err := s.Read()
		if err != nil {
			lastErr = err
			continue
		}
		if !sample.GasValid || !(sample.GasResistance > 0) {
			lastErr = fmt.Errorf("%w: %s: %w", ErrTransientRead, s, bme68x.ErrGasInvalid)
			continue
		}
		s.baseline = sample.GasResistance
		s.haveBaseline = true
		return s.baseline, nil
	}
	return 0, errors.Wrap(lastErr, "capture gas baseline")
}

// Stop puts the sensor to sleep.
func (s *EnvSensor) Stop() error {
	return s.dev.Halt()
}

func (s *EnvSensor) String() string {
	return fmt.Sprintf("BME688@0x%02X", s.addr)
}

// Altitude estimates the height in metres from the measured pressure and the
// pressure at sea level, both in hPa.
func Altitude(pressureHPa, seaLevelHPa float64) float64 {
	return 44330 * (1.0 - math.Pow(pressureHPa/seaLevelHPa, 0.1903))
}
