// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus opens I2C buses by registry name or by their clock/data pin
// pair, scans them for responding devices and picks a device address out of
// an ordered candidate list.
package bus

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	// ErrBusUnavailable is returned when the underlying transport cannot be
	// opened (host drivers failed, device file missing, permission denied).
	ErrBusUnavailable = errors.New("i2c bus unavailable")
	// ErrDeviceNotFound is returned when none of the candidate addresses
	// responded on the bus.
	ErrDeviceNotFound = errors.New("no candidate address responded")
)

// Descriptor identifies an I2C bus. Name takes precedence; when it is empty
// and both pins are set (>= 0) the bus is located by its SCL/SDA GPIO numbers.
// An empty Name with unset pins selects the host's default bus.
type Descriptor struct {
	Name string
	SCL  int
	SDA  int
}

// ByPins reports whether the bus is located by its pin pair.
func (d Descriptor) ByPins() bool {
	return d.Name == "" && d.SCL >= 0 && d.SDA >= 0
}

func (d Descriptor) String() string {
	switch {
	case d.Name != "":
		return fmt.Sprintf("i2c %q", d.Name)
	case d.ByPins():
		return fmt.Sprintf("i2c SCL=GPIO%d SDA=GPIO%d", d.SCL, d.SDA)
	default:
		return "i2c (default)"
	}
}

var (
	hostOnce sync.Once
	hostErr  error

	// hostInit loads the periph host drivers. Replaced in tests.
	hostInit = func() error {
		_, err := host.Init()
		return err
	}
)

func initHost() error {
	hostOnce.Do(func() {
		hostErr = hostInit()
	})
	return hostErr
}

// Open opens the bus described by d for exclusive use by the caller.
func Open(d Descriptor) (i2c.BusCloser, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %w", ErrBusUnavailable, err)
	}

	if !d.ByPins() {
		b, err := i2creg.Open(d.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", ErrBusUnavailable, d, err)
		}
		return b, nil
	}

	for _, ref := range i2creg.All() {
		b, err := ref.Open()
		if err != nil {
			continue
		}
		if matchPins(b, d.SCL, d.SDA) {
			return b, nil
		}
		b.Close()
	}
	return nil, fmt.Errorf("%w: no registered bus on %s", ErrBusUnavailable, d)
}

func matchPins(b i2c.Bus, scl, sda int) bool {
	p, ok := b.(i2c.Pins)
	if !ok {
		return false
	}
	c, d := p.SCL(), p.SDA()
	if c == nil || d == nil {
		return false
	}
	return c.Number() == scl && d.Number() == sda
}
