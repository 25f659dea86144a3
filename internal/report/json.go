// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/relabs-tech/air_monitor/internal/co2"
	"github.com/relabs-tech/air_monitor/internal/env"
)

// cycleRecord is the JSON line written per cycle. Absent sensors are omitted.
type cycleRecord struct {
	Time     time.Time   `json:"time"`
	CO2      *co2.Sample `json:"co2,omitempty"`
	CO2State string      `json:"co2_state,omitempty"`
	Env      *env.Sample `json:"env,omitempty"`
	EnvState string      `json:"env_state,omitempty"`
	IAQ      *float64    `json:"iaq,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// JSON writes one JSON object per cycle.
type JSON struct {
	enc *json.Encoder
}

func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

func (j *JSON) Report(cy *Cycle) error {
	rec := cycleRecord{Time: cy.Time}

	if cy.CO2Enabled {
		switch {
		case cy.CO2Err != nil:
			rec.CO2State = "error"
			rec.Errors = append(rec.Errors, cy.CO2Err.Error())
		case cy.CO2NotReady || cy.CO2 == nil:
			rec.CO2State = "not_ready"
		default:
			rec.CO2State = "ok"
			rec.CO2 = cy.CO2
		}
	}

	if cy.EnvEnabled {
		switch {
		case !cy.EnvPresent:
			rec.EnvState = "absent"
		case cy.EnvErr != nil:
			rec.EnvState = "error"
			rec.Errors = append(rec.Errors, cy.EnvErr.Error())
		case cy.Env != nil:
			rec.EnvState = "ok"
			rec.Env = cy.Env
			if cy.IAQEnabled {
				if cy.IAQErr != nil {
					rec.Errors = append(rec.Errors, cy.IAQErr.Error())
				} else {
					rec.IAQ = cy.IAQ
				}
			}
		}
	}

	return j.enc.Encode(rec)
}
