// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/air_monitor/internal/co2"
	"github.com/relabs-tech/air_monitor/internal/env"
)

var cycleTime = time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)

func fullCycle() *Cycle {
	score := 87.5
	return &Cycle{
		Time:       cycleTime,
		CO2Enabled: true,
		CO2:        &co2.Sample{Source: "SCD40@0x62", Time: cycleTime, CO2: 612, Temperature: 22.46, Humidity: 41.04},
		EnvEnabled: true,
		EnvPresent: true,
		Env: &env.Sample{
			Source:        "BME688@0x77",
			Time:          cycleTime,
			Temperature:   22.9,
			Humidity:      39.95,
			Pressure:      1008.123,
			GasResistance: 51234.6,
			GasValid:      true,
			Altitude:      43.21,
		},
		IAQEnabled: true,
		IAQ:        &score,
	}
}

func TestConsoleFullCycle(t *testing.T) {
	var buf bytes.Buffer
	if err := NewConsole(&buf, 0).Report(fullCycle()); err != nil {
		t.Fatal(err)
	}
	want := "Timestamp: 2026-03-01 14:05:09\n" +
		"SCD40 Readings:\n" +
		"  CO2: 612 ppm\n" +
		"  Temperature: 22.5 °C\n" +
		"  Humidity: 41.0 %\n" +
		"BME688 Readings:\n" +
		"  Temperature: 22.9 °C\n" +
		"  Humidity: 40.0 %\n" +
		"  Pressure: 1008.12 hPa\n" +
		"  Gas Resistance: 51235 Ohms\n" +
		"  Altitude: 43.2 m\n" +
		"  IAQ Score: 87.50\n" +
		strings.Repeat("-", 50) + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("console output mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleDegradedCycles(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Cycle)
		want   []string
	}{
		{
			name:   "co2 not ready, env absent",
			modify: func(c *Cycle) { c.CO2, c.CO2NotReady, c.EnvPresent, c.Env = nil, true, false, nil },
			want:   []string{"SCD40: Data not ready", "BME688: Not available"},
		},
		{
			name:   "env transient error",
			modify: func(c *Cycle) { c.Env, c.EnvErr = nil, errors.New("i2c nack") },
			want:   []string{"SCD40 Readings:", "BME688 Error: i2c nack"},
		},
		{
			name:   "co2 error",
			modify: func(c *Cycle) { c.CO2, c.CO2Err = nil, errors.New("bad crc") },
			want:   []string{"SCD40 Error: bad crc", "BME688 Readings:"},
		},
		{
			name:   "iaq error",
			modify: func(c *Cycle) { c.IAQ, c.IAQErr = nil, errors.New("invalid gas baseline") },
			want:   []string{"  IAQ Error: invalid gas baseline"},
		},
		{
			name:   "co2 mode",
			modify: func(c *Cycle) { c.EnvEnabled = false },
			want:   []string{"SCD40 Readings:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fullCycle()
			tt.modify(c)
			var buf bytes.Buffer
			if err := NewConsole(&buf, 30).Report(c); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w+"\n") {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			if !strings.HasSuffix(out, "\n"+strings.Repeat("-", 30)+"\n") {
				t.Errorf("missing 30 dash separator:\n%s", out)
			}
		})
	}
}

func TestConsoleOmitsDisabledSensors(t *testing.T) {
	c := fullCycle()
	c.CO2Enabled = false
	c.IAQEnabled = false
	var buf bytes.Buffer
	if err := NewConsole(&buf, 0).Report(c); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "SCD40") || strings.Contains(buf.String(), "IAQ") {
		t.Errorf("disabled sections rendered:\n%s", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSON(&buf)

	if err := r.Report(fullCycle()); err != nil {
		t.Fatal(err)
	}
	degraded := fullCycle()
	degraded.CO2, degraded.CO2NotReady = nil, true
	degraded.Env, degraded.EnvErr = nil, errors.New("timeout")
	if err := r.Report(degraded); err != nil {
		t.Fatal(err)
	}

	dec := json.NewDecoder(&buf)
	var first, second cycleRecord
	if err := dec.Decode(&first); err != nil {
		t.Fatal(err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatal(err)
	}

	if first.CO2State != "ok" || first.CO2 == nil || first.CO2.CO2 != 612 {
		t.Errorf("first co2 = %q %+v", first.CO2State, first.CO2)
	}
	if first.IAQ == nil || *first.IAQ != 87.5 {
		t.Errorf("first iaq = %v", first.IAQ)
	}
	if diff := cmp.Diff(cycleRecord{
		Time:     cycleTime,
		CO2State: "not_ready",
		EnvState: "error",
		Errors:   []string{"timeout"},
	}, second, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("degraded record (-want +got):\n%s", diff)
	}
}

type fakeScreen struct {
	frames  []image.Image
	drawErr error
	halted  bool
}

func (f *fakeScreen) Bounds() image.Rectangle { return image.Rect(0, 0, displayWidth, displayHeight) }
func (f *fakeScreen) Halt() error             { f.halted = true; return nil }

func (f *fakeScreen) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.frames = append(f.frames, src)
	return f.drawErr
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestDisplayLines(t *testing.T) {
	if diff := cmp.Diff([]string{"CO2: 612 ppm", "22.5C 41.0%", "1008.1 hPa", "IAQ: 88"}, displayLines(fullCycle())); diff != "" {
		t.Errorf("full cycle (-want +got):\n%s", diff)
	}

	c := fullCycle()
	c.CO2Enabled = false
	if diff := cmp.Diff([]string{"22.9C 40.0%", "1008.1 hPa", "IAQ: 88"}, displayLines(c)); diff != "" {
		t.Errorf("env only (-want +got):\n%s", diff)
	}

	c = fullCycle()
	c.CO2, c.CO2NotReady, c.EnvPresent = nil, true, false
	if diff := cmp.Diff([]string{"CO2: waiting", "BME: n/a"}, displayLines(c)); diff != "" {
		t.Errorf("degraded (-want +got):\n%s", diff)
	}
}

func TestDisplayReportToleratesDrawErrors(t *testing.T) {
	scr := &fakeScreen{drawErr: errors.New("i2c write failed")}
	d := &Display{dev: scr, log: quietLogger()}

	if err := d.Report(fullCycle()); err != nil {
		t.Errorf("Report returned %v, want nil", err)
	}
	if len(scr.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(scr.frames))
	}
	img, ok := scr.frames[0].(*image1bit.VerticalLSB)
	if !ok {
		t.Fatalf("frame type %T", scr.frames[0])
	}
	lit := 0
	for _, b := range img.Pix {
		if b != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("rendered frame is blank")
	}

	if err := d.Close(); err != nil || !scr.halted {
		t.Errorf("Close = %v, halted = %v", err, scr.halted)
	}
}

func TestNewDisplayRejectsAlternateAddress(t *testing.T) {
	d, err := NewDisplay(nil, 0x3D, quietLogger())
	if err == nil || d != nil {
		t.Fatalf("NewDisplay(0x3D) = %v, %v; want an error", d, err)
	}
	if !strings.Contains(err.Error(), "0x3D") {
		t.Errorf("error %q does not name the address", err)
	}
}

type recorder struct {
	got []*Cycle
	err error
}

func (r *recorder) Report(c *Cycle) error {
	r.got = append(r.got, c)
	return r.err
}

func TestMulti(t *testing.T) {
	failing := &recorder{err: errors.New("broken pipe")}
	next := &recorder{}
	c := fullCycle()

	err := Multi{failing, next}.Report(c)
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Multi error = %v", err)
	}
	if len(next.got) != 1 || next.got[0] != c {
		t.Error("second reporter skipped after first failed")
	}
}
