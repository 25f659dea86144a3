// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/relabs-tech/air_monitor/internal/bus"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "air_monitor.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# sensors on a Pi Zero
MODE = co2
READ_INTERVAL_SECONDS=7.5
SEA_LEVEL_PRESSURE_HPA=1020.5
ENABLE_IAQ=true
CO2_CANDIDATE_ADDRESSES=0x62, 0x44
CO2_FALLBACK=1
ENV_BUS=3
ENV_BUS_SCL=
ENV_BUS_SDA=
DISPLAY_ENABLED=true
LOG_LEVEL=debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	want.Mode = ModeCO2
	want.ReadIntervalSeconds = 7.5
	want.SeaLevelPressureHPa = 1020.5
	want.EnableIAQ = true
	want.CO2CandidateAddresses = []uint16{0x62, 0x44}
	want.CO2Fallback = true
	want.EnvBus = "3"
	want.EnvBusSCL = -1
	want.EnvBusSDA = -1
	want.DisplayEnabled = true
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing equals", "MODE dual\n", "invalid config line 1"},
		{"unknown key", "\n\nFOO=bar\n", "config line 3: unknown config key"},
		{"bad mode", "MODE=quad\n", "MODE must be dual, co2 or env"},
		{"negative interval", "READ_INTERVAL_SECONDS=-1\n", "non-negative number of seconds"},
		{"nan warmup", "WARMUP_SECONDS=NaN\n", "non-negative number of seconds"},
		{"infinite interval", "READ_INTERVAL_SECONDS=+Inf\n", "non-negative number of seconds"},
		{"bad interval", "READ_INTERVAL_SECONDS=soon\n", "invalid READ_INTERVAL_SECONDS"},
		{"negative failure limit", "MAX_CO2_FAILURES=-1\n", "must not be negative"},
		{"bad pressure", "SEA_LEVEL_PRESSURE_HPA=0\n", "positive number"},
		{"nan pressure", "SEA_LEVEL_PRESSURE_HPA=NaN\n", "positive number"},
		{"address out of range", "CO2_DEFAULT_ADDRESS=0x80\n", "7-bit address"},
		{"bad address list", "ENV_CANDIDATE_ADDRESSES=0x77,zz\n", "invalid ENV_CANDIDATE_ADDRESSES"},
		{"bad bool", "ENABLE_IAQ=maybe\n", "invalid ENABLE_IAQ"},
		{"bad level", "LOG_LEVEL=loud\n", "invalid LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"AIR_MONITOR_MODE":                    "env",
		"AIR_MONITOR_WARMUP_SECONDS":          " 8 ",
		"AIR_MONITOR_ENV_CANDIDATE_ADDRESSES": "0x76",
		"MODE":                                "co2",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeEnv {
		t.Errorf("Mode = %q, want env", cfg.Mode)
	}
	if cfg.WarmupSeconds != 8 {
		t.Errorf("WarmupSeconds = %v, want 8", cfg.WarmupSeconds)
	}
	if diff := cmp.Diff([]uint16{0x76}, cfg.EnvCandidateAddresses); diff != "" {
		t.Errorf("EnvCandidateAddresses (-want +got):\n%s", diff)
	}

	env["AIR_MONITOR_SCAN_TIMEOUT_MS"] = "soon"
	if err := Default().ApplyEnv(lookup); err == nil || !strings.Contains(err.Error(), "AIR_MONITOR_SCAN_TIMEOUT_MS") {
		t.Errorf("ApplyEnv error = %v, want one naming the variable", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no co2 candidates in dual", func(c *Config) { c.CO2CandidateAddresses = nil }, false},
		{"no co2 candidates in env", func(c *Config) { c.Mode = ModeEnv; c.CO2CandidateAddresses = nil }, true},
		{"no env candidates in env", func(c *Config) { c.Mode = ModeEnv; c.EnvCandidateAddresses = nil }, false},
		{"no env candidates in co2", func(c *Config) { c.Mode = ModeCO2; c.EnvCandidateAddresses = nil }, true},
		{"half pin pair", func(c *Config) { c.EnvBusSDA = -1 }, false},
		{"zero scan timeout", func(c *Config) { c.ScanTimeoutMs = 0 }, false},
		{"bad mode", func(c *Config) { c.Mode = "x" }, false},
		{"alternate display address", func(c *Config) { c.DisplayI2CAddr = 0x3D }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestInterval(t *testing.T) {
	tests := []struct {
		mode     Mode
		override float64
		want     time.Duration
	}{
		{ModeDual, 0, 10 * time.Second},
		{ModeCO2, 0, 5 * time.Second},
		{ModeEnv, 0, 2 * time.Second},
		{ModeEnv, 30, 30 * time.Second},
		{ModeDual, 2.5, 2500 * time.Millisecond},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Mode = tt.mode
		cfg.ReadIntervalSeconds = tt.override
		if got := cfg.Interval(); got != tt.want {
			t.Errorf("Interval(%s, %v) = %v, want %v", tt.mode, tt.override, got, tt.want)
		}
	}
}

func TestFractionalSeconds(t *testing.T) {
	cfg := Default()
	if err := cfg.Set("WARMUP_SECONDS", "4.9"); err != nil {
		t.Fatalf("Set WARMUP_SECONDS: %v", err)
	}
	if err := cfg.Set("READ_INTERVAL_SECONDS", "2.5"); err != nil {
		t.Fatalf("Set READ_INTERVAL_SECONDS: %v", err)
	}
	if got := cfg.WarmUp(); got != 4900*time.Millisecond {
		t.Errorf("WarmUp = %v, want 4.9s", got)
	}
	if got := cfg.Interval(); got != 2500*time.Millisecond {
		t.Errorf("Interval = %v, want 2.5s", got)
	}

	if err := cfg.Set("READ_INTERVAL_SECONDS", "0"); err != nil {
		t.Fatal(err)
	}
	if got := cfg.Interval(); got != 10*time.Second {
		t.Errorf("Interval with 0 = %v, want the dual mode default", got)
	}
}

func TestDescriptors(t *testing.T) {
	cfg := Default()
	if diff := cmp.Diff(bus.Descriptor{SCL: -1, SDA: -1}, cfg.CO2BusDescriptor()); diff != "" {
		t.Errorf("CO2 bus (-want +got):\n%s", diff)
	}
	env := cfg.EnvBusDescriptor()
	if !env.ByPins() || env.SCL != 27 || env.SDA != 17 {
		t.Errorf("env bus = %+v, want pins 27/17", env)
	}
	if cfg.WarmUp() != 5*time.Second || cfg.ScanTimeout() != time.Second {
		t.Errorf("WarmUp/ScanTimeout = %v/%v", cfg.WarmUp(), cfg.ScanTimeout())
	}
}

func TestExampleFileMatchesDefaults(t *testing.T) {
	cfg, err := Load("../../air_monitor.example.txt")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("example file drifted from defaults (-default +file):\n%s", diff)
	}
}
