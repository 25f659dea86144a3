package co2

import "time"

// Sample represents a single SCD4x measurement.
type Sample struct {
	Source string    `json:"source"` // e.g. "SCD40@0x62"
	Time   time.Time `json:"time"`

	CO2         int     `json:"co2_ppm"`
	Temperature float64 `json:"temp_c"`       // °C
	Humidity    float64 `json:"humidity_pct"` // %RH
}
