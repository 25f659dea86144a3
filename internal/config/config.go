// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/air_monitor/internal/bus"
)

// Mode selects which sensors take part in the read cycle.
type Mode string

const (
	ModeDual Mode = "dual" // SCD40 mandatory, BME688 optional
	ModeCO2  Mode = "co2"  // SCD40 only
	ModeEnv  Mode = "env"  // BME688 only, mandatory
)

// displayAddr is the fixed SSD1306 address of the display driver.
const displayAddr = 0x3C

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = "AIR_MONITOR_"

// Config holds all application configuration values.
type Config struct {
	// Mode and timing
	Mode                Mode
	ReadIntervalSeconds float64 // 0 selects the mode default
	WarmupSeconds       float64
	MaxCO2Failures      int // consecutive CO2 failures before giving up, 0 = never

	// Sensors
	SeaLevelPressureHPa float64
	EnableIAQ           bool

	// Addresses, in order of preference
	CO2CandidateAddresses []uint16
	EnvCandidateAddresses []uint16
	CO2DefaultAddress     uint16
	CO2Fallback           bool

	// Buses: a name, or a SCL/SDA pin pair when the name is empty (-1 = unset)
	CO2Bus        string
	CO2BusSCL     int
	CO2BusSDA     int
	EnvBus        string
	EnvBusSCL     int
	EnvBusSDA     int
	ScanTimeoutMs int

	// Output
	SeparatorWidth int
	DisplayEnabled bool
	DisplayI2CAddr uint16
	LogLevel       string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Mode:                  ModeDual,
		WarmupSeconds:         5,
		SeaLevelPressureHPa:   1013.25,
		CO2CandidateAddresses: []uint16{0x44, 0x62},
		EnvCandidateAddresses: []uint16{0x77, 0x76},
		CO2DefaultAddress:     0x62,
		CO2BusSCL:             -1,
		CO2BusSDA:             -1,
		EnvBusSCL:             27,
		EnvBusSDA:             17,
		ScanTimeoutMs:         1000,
		SeparatorWidth:        50,
		DisplayI2CAddr:        displayAddr,
		LogLevel:              "info",
	}
}

// Load reads the configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.Set(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides values from AIR_MONITOR_<KEY> variables found by lookup
// (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range keys {
		value, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := c.Set(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("environment %s%s: %w", EnvPrefix, key, err)
		}
	}
	return nil
}

// keys lists every accepted key, in the order environment overrides are applied.
var keys = []string{
	"MODE", "READ_INTERVAL_SECONDS", "WARMUP_SECONDS", "MAX_CO2_FAILURES",
	"SEA_LEVEL_PRESSURE_HPA", "ENABLE_IAQ",
	"CO2_CANDIDATE_ADDRESSES", "ENV_CANDIDATE_ADDRESSES", "CO2_DEFAULT_ADDRESS", "CO2_FALLBACK",
	"CO2_BUS", "CO2_BUS_SCL", "CO2_BUS_SDA", "ENV_BUS", "ENV_BUS_SCL", "ENV_BUS_SDA", "SCAN_TIMEOUT_MS",
	"SEPARATOR_WIDTH", "DISPLAY_ENABLED", "DISPLAY_I2C_ADDR", "LOG_LEVEL",
}

// Set sets a config value based on the key.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	// Mode and timing
	case "MODE":
		c.Mode, err = parseMode(value)
	case "READ_INTERVAL_SECONDS":
		c.ReadIntervalSeconds, err = parseSeconds(key, value)
	case "WARMUP_SECONDS":
		c.WarmupSeconds, err = parseSeconds(key, value)
	case "MAX_CO2_FAILURES":
		c.MaxCO2Failures, err = parseNonNegative(key, value)

	// Sensors
	case "SEA_LEVEL_PRESSURE_HPA":
		p, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid SEA_LEVEL_PRESSURE_HPA %q: %w", value, perr)
		}
		if !(p > 0) || math.IsInf(p, 0) {
			return fmt.Errorf("SEA_LEVEL_PRESSURE_HPA must be a positive number, got %q", value)
		}
		c.SeaLevelPressureHPa = p
	case "ENABLE_IAQ":
		c.EnableIAQ, err = parseBool(key, value)

	// Addresses
	case "CO2_CANDIDATE_ADDRESSES":
		c.CO2CandidateAddresses, err = parseAddresses(key, value)
	case "ENV_CANDIDATE_ADDRESSES":
		c.EnvCandidateAddresses, err = parseAddresses(key, value)
	case "CO2_DEFAULT_ADDRESS":
		c.CO2DefaultAddress, err = parseAddress(key, value)
	case "CO2_FALLBACK":
		c.CO2Fallback, err = parseBool(key, value)

	// Buses
	case "CO2_BUS":
		c.CO2Bus = value
	case "CO2_BUS_SCL":
		c.CO2BusSCL, err = parsePin(key, value)
	case "CO2_BUS_SDA":
		c.CO2BusSDA, err = parsePin(key, value)
	case "ENV_BUS":
		c.EnvBus = value
	case "ENV_BUS_SCL":
		c.EnvBusSCL, err = parsePin(key, value)
	case "ENV_BUS_SDA":
		c.EnvBusSDA, err = parsePin(key, value)
	case "SCAN_TIMEOUT_MS":
		c.ScanTimeoutMs, err = parseNonNegative(key, value)

	// Output
	case "SEPARATOR_WIDTH":
		c.SeparatorWidth, err = parseNonNegative(key, value)
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_ADDR":
		c.DisplayI2CAddr, err = parseAddress(key, value)
	case "LOG_LEVEL":
		if _, perr := logrus.ParseLevel(value); perr != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, perr)
		}
		c.LogLevel = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// Validate checks the values that depend on each other.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDual, ModeCO2, ModeEnv:
	default:
		return fmt.Errorf("MODE must be dual, co2 or env, got %q", c.Mode)
	}
	if c.Mode != ModeEnv && len(c.CO2CandidateAddresses) == 0 {
		return fmt.Errorf("CO2_CANDIDATE_ADDRESSES is required in %s mode", c.Mode)
	}
	if c.Mode != ModeCO2 && len(c.EnvCandidateAddresses) == 0 {
		return fmt.Errorf("ENV_CANDIDATE_ADDRESSES is required in %s mode", c.Mode)
	}
	if (c.CO2BusSCL < 0) != (c.CO2BusSDA < 0) {
		return fmt.Errorf("CO2_BUS_SCL and CO2_BUS_SDA must be set together")
	}
	if (c.EnvBusSCL < 0) != (c.EnvBusSDA < 0) {
		return fmt.Errorf("ENV_BUS_SCL and ENV_BUS_SDA must be set together")
	}
	if c.ScanTimeoutMs == 0 {
		return fmt.Errorf("SCAN_TIMEOUT_MS must be positive")
	}
	if c.DisplayI2CAddr != displayAddr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X, got 0x%02X", displayAddr, c.DisplayI2CAddr)
	}
	return nil
}

// Interval returns the pause between read cycles.
func (c *Config) Interval() time.Duration {
	if c.ReadIntervalSeconds > 0 {
		return seconds(c.ReadIntervalSeconds)
	}
	switch c.Mode {
	case ModeCO2:
		return 5 * time.Second
	case ModeEnv:
		return 2 * time.Second
	default:
		return 10 * time.Second
	}
}

// WarmUp returns the delay between starting the CO2 sensor and its first read.
func (c *Config) WarmUp() time.Duration {
	return seconds(c.WarmupSeconds)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// ScanTimeout bounds a single address scan.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutMs) * time.Millisecond
}

// CO2BusDescriptor describes the bus carrying the CO2 sensor and the display.
func (c *Config) CO2BusDescriptor() bus.Descriptor {
	return bus.Descriptor{Name: c.CO2Bus, SCL: c.CO2BusSCL, SDA: c.CO2BusSDA}
}

// EnvBusDescriptor describes the bus carrying the environmental sensor.
func (c *Config) EnvBusDescriptor() bus.Descriptor {
	return bus.Descriptor{Name: c.EnvBus, SCL: c.EnvBusSCL, SDA: c.EnvBusSDA}
}

func parseMode(value string) (Mode, error) {
	m := Mode(strings.ToLower(value))
	switch m {
	case ModeDual, ModeCO2, ModeEnv:
		return m, nil
	}
	return "", fmt.Errorf("MODE must be dual, co2 or env, got %q", value)
}

func parseNonNegative(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, v)
	}
	return v, nil
}

// parseSeconds accepts a non-negative, finite number of seconds such as "2.5".
func parseSeconds(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if !(v >= 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a non-negative number of seconds, got %q", key, value)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// parsePin accepts a GPIO number, or an empty value to unset the pin.
func parsePin(key, value string) (int, error) {
	if value == "" {
		return -1, nil
	}
	return parseNonNegative(key, value)
}

func parseAddress(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

// parseAddresses reads a comma separated list such as "0x44,0x62".
func parseAddresses(key, value string) ([]uint16, error) {
	var addrs []uint16
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		addr, err := parseAddress(key, field)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
