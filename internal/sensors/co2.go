// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/scd4x"

	"github.com/relabs-tech/air_monitor/internal/co2"
)

// DefaultWarmUp is the delay between starting periodic measurement and the
// first valid SCD4x reading.
const DefaultWarmUp = 5 * time.Second

// get_data_ready_status; the low 11 bits are non-zero when a measurement is waiting.
var cmdDataReady = []byte{0xe4, 0xb8}

const dataReadyMask = 1<<11 - 1

var errNotStarted = errors.New("periodic measurement not started")

// CO2Sensor wraps an SCD4x in periodic measurement mode.
type CO2Sensor struct {
	bus    i2c.Bus
	addr   uint16
	warmUp time.Duration

	dev     *scd4x.Dev
	status  *i2c.Dev
	started time.Time
	now     func() time.Time
}

// NewCO2Sensor returns an adapter for the SCD4x at addr. Nothing is sent to
// the device until Start.
func NewCO2Sensor(b i2c.Bus, addr uint16, warmUp time.Duration) *CO2Sensor {
	return &CO2Sensor{
		bus:    b,
		addr:   addr,
		warmUp: warmUp,
		status: &i2c.Dev{Bus: b, Addr: addr},
		now:    time.Now,
	}
}

// Start wakes the sensor and starts periodic measurement. Calling it again
// after a successful start is a no-op.
func (s *CO2Sensor) Start() error {
	if s.dev != nil {
		return nil
	}
	dev, err := scd4x.NewI2C(s.bus, s.addr)
	if err != nil {
		return errors.Wrapf(err, "%s: start periodic measurement", s)
	}
	s.dev = dev
	s.started = s.now()
	return nil
}

// Ready reports whether a measurement is waiting. It never blocks beyond a
// single bus transaction.
func (s *CO2Sensor) Ready() (bool, error) {
	if s.dev == nil {
		return false, errNotStarted
	}
	r := make([]byte, 3)
	if err := s.status.Tx(cmdDataReady, r); err != nil {
		return false, fmt.Errorf("%w: %s data ready: %w", ErrTransientRead, s, err)
	}
	if crc8(r[:2]) != r[2] {
		return false, fmt.Errorf("%w: %s data ready: invalid crc", ErrTransientRead, s)
	}
	word := uint16(r[0])<<8 | uint16(r[1])
	return word&dataReadyMask != 0, nil
}

// Read returns the pending measurement. It must only be called once Ready
// reported true; before the warm-up interval has elapsed it fails with
// ErrWarmingUp without touching the bus.
func (s *CO2Sensor) Read() (co2.Sample, error) {
	if s.dev == nil {
		return co2.Sample{}, errNotStarted
	}
	if elapsed := s.now().Sub(s.started); elapsed < s.warmUp {
		return co2.Sample{}, fmt.Errorf("%w: %s remaining", ErrWarmingUp, s.warmUp-elapsed)
	}
	var e scd4x.Env
	if err := s.dev.Sense(&e); err != nil {
		return co2.Sample{}, fmt.Errorf("%w: %s: %w", ErrTransientRead, s, err)
	}
	return co2.Sample{
		Source:      s.String(),
		Time:        s.now(),
		CO2:         int(e.CO2),
		Temperature: e.Temperature.Celsius(),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
	}, nil
}

// Stop halts periodic measurement.
func (s *CO2Sensor) Stop() error {
	if s.dev == nil {
		return nil
	}
	if err := s.dev.Halt(); err != nil {
		return errors.Wrapf(err, "%s: stop periodic measurement", s)
	}
	return nil
}

func (s *CO2Sensor) String() string {
	return fmt.Sprintf("SCD40@0x%02X", s.addr)
}

// crc8 is the Sensirion CRC-8 (polynomial 0x31, init 0xFF).
func crc8(b []byte) byte {
	crc := byte(0xff)
	for _, v := range b {
		crc ^= v
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
