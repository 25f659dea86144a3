// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Usable 7-bit address range; 0x00-0x07 and 0x78-0x7F are reserved.
const (
	firstAddr uint16 = 0x08
	lastAddr  uint16 = 0x77
)

// DefaultScanTimeout bounds a full scan.
const DefaultScanTimeout = time.Second

// AddressSet is the set of 7-bit addresses that acknowledged a probe.
type AddressSet map[uint16]struct{}

// NewAddressSet builds a set from the given addresses.
func NewAddressSet(addrs ...uint16) AddressSet {
	s := make(AddressSet, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether addr is in the set.
func (s AddressSet) Has(addr uint16) bool {
	_, ok := s[addr]
	return ok
}

// Sorted returns the addresses in ascending order.
func (s AddressSet) Sorted() []uint16 {
	out := make([]uint16, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s AddressSet) String() string {
	return FormatAddresses(s.Sorted())
}

// FormatAddresses renders addresses as "[0x44 0x62]".
func FormatAddresses(addrs []uint16) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = fmt.Sprintf("0x%02X", a)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Scan probes every usable address on b with a one byte read and returns the
// addresses that acknowledged. The scan stops early when ctx is done or the
// timeout elapses; the partial set is returned together with the error.
func Scan(ctx context.Context, b i2c.Bus, timeout time.Duration) (AddressSet, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	found := AddressSet{}
	buf := make([]byte, 1)
	for addr := firstAddr; addr <= lastAddr; addr++ {
		if err := ctx.Err(); err != nil {
			return found, fmt.Errorf("scan of %s stopped at 0x%02X: %w", b, addr, err)
		}
		if err := b.Tx(addr, nil, buf); err == nil {
			found[addr] = struct{}{}
		}
	}
	return found, nil
}

// Select returns the first candidate present in found. Candidate order is
// the priority order; the first match wins.
func Select(found AddressSet, candidates []uint16) (uint16, bool) {
	for _, c := range candidates {
		if found.Has(c) {
			return c, true
		}
	}
	return 0, false
}
