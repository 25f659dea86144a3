// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultSeparatorWidth is the number of dashes closing each cycle.
const DefaultSeparatorWidth = 50

// Console writes the human readable block for each cycle. Styling is only
// emitted when w is a terminal.
type Console struct {
	w     io.Writer
	width int

	header lipgloss.Style
	fault  lipgloss.Style
	notice lipgloss.Style
	rule   lipgloss.Style
}

// NewConsole returns a console reporter. A non-positive width selects
// DefaultSeparatorWidth.
func NewConsole(w io.Writer, separatorWidth int) *Console {
	if separatorWidth <= 0 {
		separatorWidth = DefaultSeparatorWidth
	}
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:      w,
		width:  separatorWidth,
		header: r.NewStyle().Bold(true),
		fault:  r.NewStyle().Foreground(lipgloss.Color("203")),
		notice: r.NewStyle().Foreground(lipgloss.Color("214")),
		rule:   r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (c *Console) Report(cy *Cycle) error {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("Timestamp: %s", cy.Time.Format(time.DateTime))

	if cy.CO2Enabled {
		switch {
		case cy.CO2Err != nil:
			line("%s", c.fault.Render(fmt.Sprintf("SCD40 Error: %v", cy.CO2Err)))
		case cy.CO2NotReady || cy.CO2 == nil:
			line("%s", c.notice.Render("SCD40: Data not ready"))
		default:
			line("%s", c.header.Render("SCD40 Readings:"))
			line("  CO2: %d ppm", cy.CO2.CO2)
			line("  Temperature: %.1f °C", cy.CO2.Temperature)
			line("  Humidity: %.1f %%", cy.CO2.Humidity)
		}
	}

	if cy.EnvEnabled {
		switch {
		case !cy.EnvPresent:
			line("%s", c.notice.Render("BME688: Not available"))
		case cy.EnvErr != nil:
			line("%s", c.fault.Render(fmt.Sprintf("BME688 Error: %v", cy.EnvErr)))
		case cy.Env != nil:
			line("%s", c.header.Render("BME688 Readings:"))
			line("  Temperature: %.1f °C", cy.Env.Temperature)
			line("  Humidity: %.1f %%", cy.Env.Humidity)
			line("  Pressure: %.2f hPa", cy.Env.Pressure)
			line("  Gas Resistance: %.0f Ohms", cy.Env.GasResistance)
			line("  Altitude: %.1f m", cy.Env.Altitude)
			if cy.IAQEnabled {
				switch {
				case cy.IAQErr != nil:
					line("  %s", c.fault.Render(fmt.Sprintf("IAQ Error: %v", cy.IAQErr)))
				case cy.IAQ != nil:
					line("  IAQ Score: %.2f", *cy.IAQ)
				}
			}
		}
	}

	line("%s", c.rule.Render(strings.Repeat("-", c.width)))

	_, err := io.WriteString(c.w, b.String())
	return err
}
