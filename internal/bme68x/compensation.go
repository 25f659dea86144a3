// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme68x

import "math"

// calibration holds the factory trimming parameters read from the NVM.
type calibration struct {
	t1 uint16
	t2 int16
	t3 int8

	p1  uint16
	p2  int16
	p3  int8
	p4  int16
	p5  int16
	p6  int8
	p7  int8
	p8  int16
	p9  int16
	p10 uint8

	h1 uint16
	h2 uint16
	h3 int8
	h4 int8
	h5 int8
	h6 uint8
	h7 int8

	gh1 int8
	gh2 int16
	gh3 int8

	resHeatRange uint8
	resHeatVal   int8
	rangeSwErr   int8
}

func parseCalibration(c []byte) calibration {
	return calibration{
		t1: uint16(c[idxT1MSB])<<8 | uint16(c[idxT1LSB]),
		t2: int16(uint16(c[idxT2MSB])<<8 | uint16(c[idxT2LSB])),
		t3: int8(c[idxT3]),

		p1:  uint16(c[idxP1MSB])<<8 | uint16(c[idxP1LSB]),
		p2:  int16(uint16(c[idxP2MSB])<<8 | uint16(c[idxP2LSB])),
		p3:  int8(c[idxP3]),
		p4:  int16(uint16(c[idxP4MSB])<<8 | uint16(c[idxP4LSB])),
		p5:  int16(uint16(c[idxP5MSB])<<8 | uint16(c[idxP5LSB])),
		p6:  int8(c[idxP6]),
		p7:  int8(c[idxP7]),
		p8:  int16(uint16(c[idxP8MSB])<<8 | uint16(c[idxP8LSB])),
		p9:  int16(uint16(c[idxP9MSB])<<8 | uint16(c[idxP9LSB])),
		p10: c[idxP10],

		// H1 and H2 share the nibbles of register 0xE2.
		h1: uint16(c[idxH1MSB])<<4 | uint16(c[idxH1LSB]&0x0F),
		h2: uint16(c[idxH2MSB])<<4 | uint16(c[idxH2LSB]>>4),
		h3: int8(c[idxH3]),
		h4: int8(c[idxH4]),
		h5: int8(c[idxH5]),
		h6: c[idxH6],
		h7: int8(c[idxH7]),

		gh1: int8(c[idxGH1]),
		gh2: int16(uint16(c[idxGH2MSB])<<8 | uint16(c[idxGH2LSB])),
		gh3: int8(c[idxGH3]),

		resHeatRange: (c[idxResHeatRange] & 0x30) >> 4,
		resHeatVal:   int8(c[idxResHeatVal]),
		rangeSwErr:   int8(c[idxRangeSwErr]&0xF0) / 16,
	}
}

// compensateTemperature returns °C and the fine temperature used by the
// pressure and humidity compensation.
func (c *calibration) compensateTemperature(adc uint32) (celsius, tFine float64) {
	t1 := float64(c.t1)
	v := float64(adc)
	var1 := (v/16384.0 - t1/1024.0) * float64(c.t2)
	var2 := (v/131072.0 - t1/8192.0) * (v/131072.0 - t1/8192.0) * (float64(c.t3) * 16.0)
	tFine = var1 + var2
	return tFine / 5120.0, tFine
}

// compensatePressure returns Pa.
func (c *calibration) compensatePressure(adc uint32, tFine float64) float64 {
	var1 := tFine/2.0 - 64000.0
	var2 := var1 * var1 * (float64(c.p6) / 131072.0)
	var2 += var1 * float64(c.p5) * 2.0
	var2 = var2/4.0 + float64(c.p4)*65536.0
	var1 = (float64(c.p3)*var1*var1/16384.0 + float64(c.p2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(c.p1)
	if var1 == 0 {
		return 0
	}
	p := 1048576.0 - float64(adc)
	p = (p - var2/4096.0) * 6250.0 / var1
	var1 = float64(c.p9) * p * p / 2147483648.0
	var2 = p * (float64(c.p8) / 32768.0)
	var3 := (p / 256.0) * (p / 256.0) * (p / 256.0) * (float64(c.p10) / 131072.0)
	return p + (var1+var2+var3+float64(c.p7)*128.0)/16.0
}

// compensateHumidity returns %RH clamped to [0, 100].
func (c *calibration) compensateHumidity(adc uint16, tFine float64) float64 {
	temp := tFine / 5120.0
	var1 := float64(adc) - (float64(c.h1)*16.0 + (float64(c.h3)/2.0)*temp)
	var2 := var1 * (float64(c.h2) / 262144.0 *
		(1.0 + float64(c.h4)/16384.0*temp + float64(c.h5)/1048576.0*temp*temp))
	var3 := float64(c.h6) / 16384.0
	var4 := float64(c.h7) / 2097152.0
	h := var2 + (var3+var4*temp)*var2*var2
	return math.Min(math.Max(h, 0), 100)
}

var (
	gasRangeK1 = [16]float64{0, 0, 0, 0, 0, -1, 0, -0.8, 0, 0, -0.2, -0.5, 0, -1, 0, 0}
	gasRangeK2 = [16]float64{0, 0, 0, 0, 0.1, 0.7, 0, -0.8, -0.1, 0, 0, 0, 0, 0, 0, 0}
)

// compensateGasLow returns Ω for the BME680 gas ADC.
func (c *calibration) compensateGasLow(adc uint16, gasRange uint8) float64 {
	r := gasRange & gasRangeMask
	var1 := 1340.0 + 5.0*float64(c.rangeSwErr)
	var2 := var1 * (1.0 + gasRangeK1[r]/100.0)
	var3 := 1.0 + gasRangeK2[r]/100.0
	return 1.0 / (var3 * 0.000000125 * float64(uint32(1)<<r) * ((float64(adc)-512.0)/var2 + 1.0))
}

// compensateGasHigh returns Ω for the BME688 gas ADC.
func compensateGasHigh(adc uint16, gasRange uint8) float64 {
	var1 := uint32(262144) >> (gasRange & gasRangeMask)
	var2 := int32(adc) - 512
	var2 *= 3
	var2 += 4096
	return 1000000.0 * float64(var1) / float64(var2)
}

// heaterResistance converts a target heater temperature into the res_heat register value.
func (c *calibration) heaterResistance(targetC, ambientC float64) byte {
	if targetC > maxHeaterTemp {
		targetC = maxHeaterTemp
	}
	var1 := float64(c.gh1)/16.0 + 49.0
	var2 := float64(c.gh2)/32768.0*0.0005 + 0.00235
	var3 := float64(c.gh3) / 1024.0
	var4 := var1 * (1.0 + var2*targetC)
	var5 := var4 + var3*ambientC
	return byte(3.4 * (var5*(4.0/(4.0+float64(c.resHeatRange)))*(1.0/(1.0+float64(c.resHeatVal)*0.002)) - 25))
}

// gasWait encodes a heater duration in milliseconds into the gas_wait register
// format: 6 bit mantissa, 2 bit multiplication factor (x1, x4, x16, x64).
func gasWait(ms uint16) byte {
	if ms >= gasWaitOverflowMs {
		return maxGasWaitCode
	}
	var factor byte
	for ms > 0x3F {
		ms /= 4
		factor++
	}
	return byte(ms) + factor*64
}
