package env

import "time"

// Sample represents a single environmental measurement (BME68x).
type Sample struct {
	Source string    `json:"source"` // e.g. "BME688@0x77"
	Time   time.Time `json:"time"`

	Temperature   float64 `json:"temp_c"`       // °C
	Humidity      float64 `json:"humidity_pct"` // %RH
	Pressure      float64 `json:"pressure_hpa"` // hPa
	GasResistance float64 `json:"gas_ohms"`     // Ω
	GasValid      bool    `json:"gas_valid"`    // heater stable and conversion valid
	Altitude      float64 `json:"altitude_m"`   // m, derived from sea level pressure
}
