// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bme68x drives a Bosch BME680 / BME688 gas sensor over I2C in forced
// mode: one temperature, pressure, humidity and gas resistance measurement per
// Sense call.
//
// Datasheet:
// https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme688-ds000.pdf
package bme68x

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrChipID is returned when the device at the address is not a BME68x.
	ErrChipID = errors.New("bme68x: unexpected chip id")
	// ErrGasInvalid means the gas value was not valid or the heater was not stable.
	ErrGasInvalid = errors.New("bme68x: gas measurement invalid")
	// ErrTimeout is returned when new data never became available.
	ErrTimeout = errors.New("bme68x: timeout waiting for measurement")
)

// Opts holds the measurement configuration.
type Opts struct {
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      Filter
	// HeaterTemp is the hot plate target in °C. Zero disables the gas measurement.
	HeaterTemp     float64
	HeaterDuration time.Duration
	// AmbientTemp is the estimated ambient temperature in °C used for the
	// heater resistance calculation.
	AmbientTemp float64
}

// DefaultOpts matches the settings commonly used for indoor air monitoring.
var DefaultOpts = Opts{
	Temperature:    O8x,
	Pressure:       O4x,
	Humidity:       O2x,
	Filter:         F3,
	HeaterTemp:     320,
	HeaterDuration: 150 * time.Millisecond,
	AmbientTemp:    25,
}

// Env is one compensated measurement.
type Env struct {
	physic.Env
	GasResistance physic.ElectricResistance
	// GasValid is false when the gas conversion was skipped or the heater
	// did not reach a stable temperature.
	GasValid bool
}

// Dev is a handle to an initialized BME68x.
type Dev struct {
	d       *i2c.Dev
	opts    Opts
	variant Variant
	cal     calibration

	mu           sync.Mutex
	sleep        func(time.Duration)
	pollInterval time.Duration
	maxPolls     int
}

// NewI2C checks the chip id, soft resets the device, reads its calibration
// and applies opts. A nil opts selects DefaultOpts.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{
		d:            &i2c.Dev{Bus: b, Addr: addr},
		opts:         *opts,
		sleep:        time.Sleep,
		pollInterval: 10 * time.Millisecond,
		maxPolls:     50,
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) init() error {
	id, err := d.readReg(regChipID)
	if err != nil {
		return errors.Wrap(err, "bme68x: read chip id")
	}
	if id != chipID {
		return errors.Wrapf(ErrChipID, "0x%02X at %s", id, d.d)
	}

	if err := d.writeReg(regSoftReset, softResetCmd); err != nil {
		return errors.Wrap(err, "bme68x: soft reset")
	}
	d.sleep(10 * time.Millisecond)

	v, err := d.readReg(regVariantID)
	if err != nil {
		return errors.Wrap(err, "bme68x: read variant id")
	}
	d.variant = Variant(v)

	coeffs := make([]byte, coeffLength)
	if err := d.readRegs(regCoeff1, coeffs[:coeff1Length]); err != nil {
		return errors.Wrap(err, "bme68x: read calibration")
	}
	if err := d.readRegs(regCoeff2, coeffs[coeff1Length:coeff1Length+coeff2Length]); err != nil {
		return errors.Wrap(err, "bme68x: read calibration")
	}
	if err := d.readRegs(regCoeff3, coeffs[coeff1Length+coeff2Length:]); err != nil {
		return errors.Wrap(err, "bme68x: read calibration")
	}
	d.cal = parseCalibration(coeffs)

	return d.configure()
}

func (d *Dev) configure() error {
	writes := [][2]byte{
		{regCtrlHum, byte(d.opts.Humidity) & 0x07},
		{regCtrlMeas, d.ctrlMeas(modeSleep)},
		{regConfig, (byte(d.opts.Filter) & 0x07) << 2},
	}
	if d.opts.HeaterTemp > 0 {
		runGas := byte(0x01)
		if d.variant == BME688 {
			runGas = 0x02
		}
		writes = append(writes,
			[2]byte{regResHeat0, d.cal.heaterResistance(d.opts.HeaterTemp, d.opts.AmbientTemp)},
			[2]byte{regGasWait0, gasWait(uint16(d.opts.HeaterDuration / time.Millisecond))},
			[2]byte{regCtrlGas0, 0x00},
			[2]byte{regCtrlGas1, runGas << 4},
		)
	} else {
		writes = append(writes,
			[2]byte{regCtrlGas0, 0x08},
			[2]byte{regCtrlGas1, 0x00},
		)
	}
	for _, w := range writes {
		if err := d.writeReg(w[0], w[1]); err != nil {
			return errors.Wrapf(err, "bme68x: configure register 0x%02X", w[0])
		}
	}
	return nil
}

func (d *Dev) ctrlMeas(mode byte) byte {
	return (byte(d.opts.Temperature)&0x07)<<5 | (byte(d.opts.Pressure)&0x07)<<2 | mode
}

// Variant returns the detected sensor variant.
func (d *Dev) Variant() Variant {
	return d.variant
}

// Sense triggers a forced mode measurement and waits for the result.
func (d *Dev) Sense(e *Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeReg(regCtrlMeas, d.ctrlMeas(modeForced)); err != nil {
		return errors.Wrap(err, "bme68x: trigger measurement")
	}
	d.sleep(d.measurementDuration())

	buf := make([]byte, fieldLength)
	for i := 0; ; i++ {
		if err := d.readRegs(regStatus, buf); err != nil {
			return errors.Wrap(err, "bme68x: read data")
		}
		if buf[0]&newDataMask != 0 {
			break
		}
		if i >= d.maxPolls {
			return ErrTimeout
		}
		d.sleep(d.pollInterval)
	}

	pAdc := uint32(buf[2])<<12 | uint32(buf[3])<<4 | uint32(buf[4])>>4
	tAdc := uint32(buf[5])<<12 | uint32(buf[6])<<4 | uint32(buf[7])>>4
	hAdc := uint16(buf[8])<<8 | uint16(buf[9])

	celsius, tFine := d.cal.compensateTemperature(tAdc)
	pa := d.cal.compensatePressure(pAdc, tFine)
	rh := d.cal.compensateHumidity(hAdc, tFine)

	e.Temperature = physic.ZeroCelsius + physic.Temperature(celsius*float64(physic.Celsius))
	e.Pressure = physic.Pressure(pa * float64(physic.Pascal))
	e.Humidity = physic.RelativeHumidity(rh * float64(physic.PercentRH))
	e.GasResistance = 0
	e.GasValid = false

	if d.opts.HeaterTemp <= 0 {
		return nil
	}

	msb, lsb := buf[13], buf[14]
	if d.variant == BME688 {
		msb, lsb = buf[15], buf[16]
	}
	gAdc := uint16(msb)<<2 | uint16(lsb)>>6
	gRange := lsb & gasRangeMask
	var ohms float64
	if d.variant == BME688 {
		ohms = compensateGasHigh(gAdc, gRange)
	} else {
		ohms = d.cal.compensateGasLow(gAdc, gRange)
	}
	e.GasResistance = physic.ElectricResistance(ohms * float64(physic.Ohm))
	e.GasValid = lsb&gasValidMask != 0 && lsb&heatStabMask != 0
	return nil
}

// measurementDuration estimates the TPH conversion time plus the heater phase.
func (d *Dev) measurementDuration() time.Duration {
	cycles := [...]int{0, 1, 2, 4, 8, 16}
	n := 0
	for _, o := range []Oversampling{d.opts.Temperature, d.opts.Pressure, d.opts.Humidity} {
		if int(o) < len(cycles) {
			n += cycles[o]
		}
	}
	us := n*1963 + 477*4 + 477*5 + 1000
	dur := time.Duration(us) * time.Microsecond
	if d.opts.HeaterTemp > 0 {
		dur += d.opts.HeaterDuration
	}
	return dur
}

// Halt puts the device into sleep mode.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeReg(regCtrlMeas, d.ctrlMeas(modeSleep))
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.variant, d.d)
}

func (d *Dev) readReg(reg byte) (byte, error) {
	b := make([]byte, 1)
	if err := d.d.Tx([]byte{reg}, b); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) readRegs(reg byte, b []byte) error {
	return d.d.Tx([]byte{reg}, b)
}

func (d *Dev) writeReg(reg, v byte) error {
	return d.d.Tx([]byte{reg, v}, nil)
}
