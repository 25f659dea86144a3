// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// DisplayAddr is the only address the SSD1306 driver talks to.
const DisplayAddr = 0x3C

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// screen is the part of ssd1306.Dev the reporter draws on.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Display shows the latest cycle on a 128x64 SSD1306 OLED. Draw failures are
// logged and never interrupt the read loop.
type Display struct {
	dev screen
	log *logrus.Entry
}

// NewDisplay initializes the SSD1306 at addr and shows the splash screen.
// addr must be DisplayAddr.
func NewDisplay(b i2c.Bus, addr uint16, log *logrus.Entry) (*Display, error) {
	if addr != DisplayAddr {
		return nil, fmt.Errorf("display address 0x%02X not supported, the SSD1306 driver uses 0x%02X", addr, DisplayAddr)
	}
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(b, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize display at 0x%02X: %w", addr, err)
	}
	log.Infof("display initialized at 0x%02X", addr)

	d := &Display{dev: dev, log: log}
	if err := d.draw([]string{"", "Air Monitor", "Warming up..."}); err != nil {
		log.WithError(err).Warn("error showing splash")
	}
	return d, nil
}

func (d *Display) Report(cy *Cycle) error {
	if err := d.draw(displayLines(cy)); err != nil {
		d.log.WithError(err).Warn("error updating display")
	}
	return nil
}

// Close blanks the panel.
func (d *Display) Close() error {
	return d.dev.Halt()
}

// displayLines condenses a cycle into at most four short lines.
func displayLines(cy *Cycle) []string {
	var lines []string
	if cy.CO2Enabled {
		switch {
		case cy.CO2Err != nil:
			lines = append(lines, "CO2: error")
		case cy.CO2NotReady || cy.CO2 == nil:
			lines = append(lines, "CO2: waiting")
		default:
			lines = append(lines,
				fmt.Sprintf("CO2: %d ppm", cy.CO2.CO2),
				fmt.Sprintf("%.1fC %.1f%%", cy.CO2.Temperature, cy.CO2.Humidity))
		}
	}
	if cy.EnvEnabled {
		switch {
		case !cy.EnvPresent:
			lines = append(lines, "BME: n/a")
		case cy.EnvErr != nil:
			lines = append(lines, "BME: error")
		case cy.Env != nil:
			if !cy.CO2Enabled {
				lines = append(lines, fmt.Sprintf("%.1fC %.1f%%", cy.Env.Temperature, cy.Env.Humidity))
			}
			lines = append(lines, fmt.Sprintf("%.1f hPa", cy.Env.Pressure))
			if cy.IAQEnabled && cy.IAQErr == nil && cy.IAQ != nil {
				lines = append(lines, fmt.Sprintf("IAQ: %.0f", *cy.IAQ))
			}
		}
	}
	if len(lines) > displayHeight/lineHeight {
		lines = lines[:displayHeight/lineHeight]
	}
	return lines
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, l := range lines {
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(l)
	}
	return img
}

func (d *Display) draw(lines []string) error {
	return d.dev.Draw(d.dev.Bounds(), renderLines(lines), image.Point{})
}
