// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires buses, sensors and reporters into the read-report loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/air_monitor/internal/bme68x"
	"github.com/relabs-tech/air_monitor/internal/bus"
	"github.com/relabs-tech/air_monitor/internal/co2"
	"github.com/relabs-tech/air_monitor/internal/config"
	"github.com/relabs-tech/air_monitor/internal/env"
	"github.com/relabs-tech/air_monitor/internal/iaq"
	"github.com/relabs-tech/air_monitor/internal/report"
	"github.com/relabs-tech/air_monitor/internal/sensors"
)

// ErrCO2Unrecoverable ends the loop after too many consecutive CO2 failures.
var ErrCO2Unrecoverable = errors.New("CO2 sensor unrecoverable")

// State is the phase of the read-report loop.
type State int

const (
	StateInit State = iota
	StateWarmingUp
	StatePolling
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWarmingUp:
		return "warming-up"
	case StatePolling:
		return "polling"
	case StateShuttingDown:
		return "shutting-down"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type co2Sensor interface {
	Start() error
	Ready() (bool, error)
	Read() (co2.Sample, error)
	Stop() error
	String() string
}

type envSensor interface {
	Configure(seaLevelHPa float64) error
	Read() (env.Sample, error)
	CaptureBaseline() (float64, error)
	Stop() error
	String() string
}

type displayReporter interface {
	report.Reporter
	Close() error
}

// Monitor owns the buses and sensors for the lifetime of the process.
type Monitor struct {
	cfg *config.Config
	out report.Reporter
	log *logrus.Entry

	openBus    func(bus.Descriptor) (i2c.BusCloser, error)
	scan       func(ctx context.Context, b i2c.Bus, timeout time.Duration) (bus.AddressSet, error)
	newCO2     func(b i2c.Bus, addr uint16, warmUp time.Duration) co2Sensor
	newEnv     func(b i2c.Bus, addr uint16) (envSensor, error)
	newDisplay func(b i2c.Bus, addr uint16, log *logrus.Entry) (displayReporter, error)
	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) error

	state       State
	buses       []i2c.BusCloser
	co2Bus      i2c.Bus
	co2         co2Sensor
	co2Started  time.Time
	co2Failures int
	env         envSensor
	baseline    float64
	display     displayReporter
}

// New returns a monitor for cfg reporting every cycle to out.
func New(cfg *config.Config, out report.Reporter, log *logrus.Entry) *Monitor {
	return &Monitor{
		cfg:     cfg,
		out:     out,
		log:     log,
		openBus: bus.Open,
		scan:    bus.Scan,
		newCO2: func(b i2c.Bus, addr uint16, warmUp time.Duration) co2Sensor {
			return sensors.NewCO2Sensor(b, addr, warmUp)
		},
		newEnv: func(b i2c.Bus, addr uint16) (envSensor, error) {
			return sensors.NewEnvSensor(b, addr)
		},
		newDisplay: func(b i2c.Bus, addr uint16, log *logrus.Entry) (displayReporter, error) {
			return report.NewDisplay(b, addr, log)
		},
		now:  time.Now,
		wait: sleepContext,
	}
}

// State returns the current loop phase.
func (m *Monitor) State() State {
	return m.state
}

// Init opens the buses, selects the sensor addresses and starts periodic CO2
// measurement. An error means a mandatory sensor is unusable; everything
// opened so far is released before returning.
func (m *Monitor) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			m.release()
		}
	}()

	if m.cfg.Mode != config.ModeEnv {
		if err := m.initCO2(ctx); err != nil {
			return err
		}
	}
	if m.cfg.Mode != config.ModeCO2 {
		if err := m.initEnv(ctx); err != nil {
			if m.cfg.Mode == config.ModeEnv {
				return err
			}
			m.log.WithError(err).Warn("continuing without BME688")
		}
	}
	if m.cfg.DisplayEnabled {
		m.initDisplay()
	}

	if m.co2 != nil {
		if err := m.co2.Start(); err != nil {
			return err
		}
		m.co2Started = m.now()
		m.log.Infof("%s started periodic measurement", m.co2)
	}
	m.log.Info("sensor initialization complete")
	return nil
}

func (m *Monitor) initCO2(ctx context.Context) error {
	d := m.cfg.CO2BusDescriptor()
	b, err := m.open(d)
	if err != nil {
		return err
	}
	m.co2Bus = b

	addr, ok, err := m.discover(ctx, b, d, m.cfg.CO2CandidateAddresses)
	if err != nil {
		return err
	}
	if !ok {
		if !m.cfg.CO2Fallback {
			return fmt.Errorf("%w: SCD40 on %s, tried %s",
				bus.ErrDeviceNotFound, d, bus.FormatAddresses(m.cfg.CO2CandidateAddresses))
		}
		addr = m.cfg.CO2DefaultAddress
		m.log.Warnf("no SCD40 candidate responded on %s, falling back to 0x%02X", d, addr)
	}
	m.co2 = m.newCO2(b, addr, m.cfg.WarmUp())
	m.log.Infof("%s selected on %s", m.co2, d)
	return nil
}

func (m *Monitor) initEnv(ctx context.Context) error {
	d := m.cfg.EnvBusDescriptor()
	var b i2c.Bus
	if m.co2Bus != nil && d == m.cfg.CO2BusDescriptor() {
		b = m.co2Bus
	} else {
		bc, err := m.open(d)
		if err != nil {
			return err
		}
		b = bc
	}

	addr, ok, err := m.discover(ctx, b, d, m.cfg.EnvCandidateAddresses)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: BME688 on %s, tried %s",
			bus.ErrDeviceNotFound, d, bus.FormatAddresses(m.cfg.EnvCandidateAddresses))
	}

	s, err := m.newEnv(b, addr)
	if err != nil {
		return err
	}
	if err := s.Configure(m.cfg.SeaLevelPressureHPa); err != nil {
		return err
	}
	m.env = s
	m.log.Infof("%s initialized on %s", s, d)

	if m.cfg.EnableIAQ {
		baseline, err := s.CaptureBaseline()
		if err != nil {
			m.log.WithError(err).Warn("no gas baseline, IAQ scores unavailable")
			return nil
		}
		m.baseline = baseline
		m.log.Infof("gas baseline %.0f Ohms", baseline)
	}
	return nil
}

func (m *Monitor) initDisplay() {
	b := m.co2Bus
	if b == nil && len(m.buses) > 0 {
		b = m.buses[0]
	}
	if b == nil {
		m.log.Warn("display enabled but no bus is open")
		return
	}
	d, err := m.newDisplay(b, m.cfg.DisplayI2CAddr, m.log.WithField("component", "display"))
	if err != nil {
		m.log.WithError(err).Warn("continuing without display")
		return
	}
	m.display = d
}

func (m *Monitor) open(d bus.Descriptor) (i2c.BusCloser, error) {
	b, err := m.openBus(d)
	if err != nil {
		return nil, err
	}
	m.buses = append(m.buses, b)
	return b, nil
}

// discover scans b and picks the first responding candidate. A scan that
// times out is used as far as it got.
func (m *Monitor) discover(ctx context.Context, b i2c.Bus, d bus.Descriptor, candidates []uint16) (uint16, bool, error) {
	found, err := m.scan(ctx, b, m.cfg.ScanTimeout())
	if err != nil {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		m.log.WithError(err).Warnf("scan of %s incomplete", d)
	}
	m.log.Infof("I2C devices found on %s: %s", d, found)
	addr, ok := bus.Select(found, candidates)
	return addr, ok, nil
}

// Run waits out the CO2 warm-up and then reports one cycle per interval until
// ctx is cancelled. It returns nil on a clean stop and ErrCO2Unrecoverable
// when the CO2 failure limit is reached. Sensors and buses are released
// before it returns.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.shutdown()

	m.state = StateWarmingUp
	if m.co2 != nil {
		if remaining := m.cfg.WarmUp() - m.now().Sub(m.co2Started); remaining > 0 {
			m.log.Infof("waiting %s for the first measurement", remaining)
			if err := m.wait(ctx, remaining); err != nil {
				return nil
			}
		}
	}

	m.state = StatePolling
	interval := m.cfg.Interval()
	out := report.Multi{m.out}
	if m.display != nil {
		out = append(out, m.display)
	}
	for {
		if err := out.Report(m.cycle()); err != nil {
			m.log.WithError(err).Warn("report failed")
		}

		if limit := m.cfg.MaxCO2Failures; limit > 0 && m.co2Failures >= limit {
			return fmt.Errorf("%w: %d consecutive failures", ErrCO2Unrecoverable, m.co2Failures)
		}
		if err := m.wait(ctx, interval); err != nil {
			return nil
		}
	}
}

// cycle reads the CO2 sensor, then the environmental sensor.
func (m *Monitor) cycle() *report.Cycle {
	c := &report.Cycle{
		Time:       m.now(),
		CO2Enabled: m.cfg.Mode != config.ModeEnv,
		EnvEnabled: m.cfg.Mode != config.ModeCO2,
		EnvPresent: m.env != nil,
		IAQEnabled: m.cfg.EnableIAQ,
	}

	if m.co2 != nil {
		ready, err := m.co2.Ready()
		switch {
		case err != nil:
			c.CO2Err = err
		case !ready:
			c.CO2NotReady = true
		default:
			s, err := m.co2.Read()
			if err != nil {
				c.CO2Err = err
			} else {
				c.CO2 = &s
			}
		}
		if c.CO2Err != nil {
			m.co2Failures++
			m.log.WithError(c.CO2Err).Debugf("%s read failed (%d consecutive)", m.co2, m.co2Failures)
		} else {
			m.co2Failures = 0
		}
	}

	if m.env != nil {
		s, err := m.env.Read()
		if err != nil {
			c.EnvErr = err
			m.log.WithError(err).Debugf("%s read failed", m.env)
		} else {
			c.Env = &s
			if c.IAQEnabled {
				m.score(c, s)
			}
		}
	}
	return c
}

func (m *Monitor) score(c *report.Cycle, s env.Sample) {
	if !s.GasValid {
		c.IAQErr = bme68x.ErrGasInvalid
		return
	}
	v, err := iaq.Score(s.Humidity, s.GasResistance, m.baseline)
	if err != nil {
		c.IAQErr = err
		return
	}
	c.IAQ = &v
}

// shutdown stops the sensors and closes the buses. Failures are logged and
// swallowed.
func (m *Monitor) shutdown() {
	m.state = StateShuttingDown
	m.log.Info("stopping sensor readings")
	m.release()
	m.log.Info("sensors stopped")
}

func (m *Monitor) release() {
	if m.co2 != nil {
		if err := m.co2.Stop(); err != nil {
			m.log.WithError(err).Warnf("%s stop failed", m.co2)
		}
		m.co2 = nil
	}
	if m.env != nil {
		if err := m.env.Stop(); err != nil {
			m.log.WithError(err).Warnf("%s stop failed", m.env)
		}
		m.env = nil
	}
	if m.display != nil {
		if err := m.display.Close(); err != nil {
			m.log.WithError(err).Warn("display close failed")
		}
		m.display = nil
	}
	for _, b := range m.buses {
		if err := b.Close(); err != nil {
			m.log.WithError(err).Warnf("close %s failed", b)
		}
	}
	m.buses = nil
	m.co2Bus = nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
