// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/air_monitor/internal/bus"
)

// known maps addresses to the parts this project talks to.
var known = map[uint16]string{
	0x3C: "SSD1306",
	0x3D: "SSD1306",
	0x44: "SCD4x candidate",
	0x62: "SCD4x",
	0x76: "BME68x",
	0x77: "BME68x",
}

func main() {
	name := flag.String("bus", "", "I2C bus name or number (empty for the default bus)")
	scl := flag.Int("scl", -1, "GPIO number of SCL, used with -sda when -bus is empty")
	sda := flag.Int("sda", -1, "GPIO number of SDA, used with -scl when -bus is empty")
	timeout := flag.Duration("timeout", bus.DefaultScanTimeout, "scan time limit")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	d := bus.Descriptor{Name: *name, SCL: *scl, SDA: *sda}
	b, err := bus.Open(d)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	defer b.Close()

	fmt.Printf("Scanning %s...\n", d)
	found, err := bus.Scan(context.Background(), b, *timeout)
	if err != nil {
		log.Warnf("scan incomplete: %v", err)
	}

	addrs := found.Sorted()
	if len(addrs) == 0 {
		fmt.Println("No devices found")
		return
	}
	for _, a := range addrs {
		if part, ok := known[a]; ok {
			fmt.Printf("0x%02X  %s\n", a, part)
		} else {
			fmt.Printf("0x%02X\n", a)
		}
	}
	fmt.Printf("%d device(s) found\n", len(addrs))
}
