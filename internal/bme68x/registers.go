// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme68x

// I2C addresses. SDO low selects 0x76, SDO high 0x77.
const (
	AddressPrimary   uint16 = 0x76
	AddressSecondary uint16 = 0x77
)

const (
	regStatus     byte = 0x1D // meas_status_0, start of field 0 data
	regResHeat0   byte = 0x5A
	regGasWait0   byte = 0x64
	regCtrlGas0   byte = 0x70
	regCtrlGas1   byte = 0x71
	regCtrlHum    byte = 0x72
	regCtrlMeas   byte = 0x74
	regConfig     byte = 0x75
	regCoeff3     byte = 0x00 // res_heat_val .. range_sw_err
	regCoeff1     byte = 0x8A
	regChipID     byte = 0xD0
	regSoftReset  byte = 0xE0
	regCoeff2     byte = 0xE1
	regVariantID  byte = 0xF0
	softResetCmd  byte = 0xB6
	chipID        byte = 0x61
	fieldLength        = 17
	coeff1Length       = 23
	coeff2Length       = 14
	coeff3Length       = 5
	coeffLength        = coeff1Length + coeff2Length + coeff3Length
	maxHeaterTemp      = 400
	maxGasWaitCode     = 0xFF
	gasWaitOverflowMs  = 0xFC0
)

// Status and gas register bits.
const (
	newDataMask  byte = 0x80
	gasValidMask byte = 0x20
	heatStabMask byte = 0x10
	gasRangeMask byte = 0x0F
)

// Variant distinguishes the BME680 (low gas range) from the BME688 (high gas range).
type Variant byte

const (
	BME680 Variant = 0x00
	BME688 Variant = 0x01
)

func (v Variant) String() string {
	if v == BME688 {
		return "BME688"
	}
	return "BME680"
}

// Oversampling setting for temperature, pressure or humidity.
type Oversampling byte

const (
	Skipped Oversampling = iota
	O1x
	O2x
	O4x
	O8x
	O16x
)

// Filter is the IIR filter coefficient.
type Filter byte

const (
	NoFilter Filter = iota
	F1
	F3
	F7
	F15
	F31
	F63
	F127
)

// Operating modes written to ctrl_meas.
const (
	modeSleep  byte = 0x00
	modeForced byte = 0x01
)

// Calibration coefficient indices into the concatenated coeff1|coeff2|coeff3 block.
const (
	idxT2LSB        = 0
	idxT2MSB        = 1
	idxT3           = 2
	idxP1LSB        = 4
	idxP1MSB        = 5
	idxP2LSB        = 6
	idxP2MSB        = 7
	idxP3           = 8
	idxP4LSB        = 10
	idxP4MSB        = 11
	idxP5LSB        = 12
	idxP5MSB        = 13
	idxP7           = 14
	idxP6           = 15
	idxP8LSB        = 18
	idxP8MSB        = 19
	idxP9LSB        = 20
	idxP9MSB        = 21
	idxP10          = 22
	idxH2MSB        = 23
	idxH2LSB        = 24
	idxH1LSB        = 24
	idxH1MSB        = 25
	idxH3           = 26
	idxH4           = 27
	idxH5           = 28
	idxH6           = 29
	idxH7           = 30
	idxT1LSB        = 31
	idxT1MSB        = 32
	idxGH2LSB       = 33
	idxGH2MSB       = 34
	idxGH1          = 35
	idxGH3          = 36
	idxResHeatVal   = 37
	idxResHeatRange = 39
	idxRangeSwErr   = 41
)
