// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensor holds the ordered set of temperature sensors found on the
// bus at boot and maps logical slots (1..N) to their bus addresses.
//
// Discovery runs exactly once. A sensor missing at that point stays absent
// for the lifetime of the process.
package sensor

import (
	"errors"
	"log/slog"

	"periph.io/x/conn/v3/onewire"
)

// DisconnectedC is the value a sensor read reports when no valid reading is
// available this cycle.
const DisconnectedC = -127.0

// ErrDisconnected is returned by TemperatureSource.ReadCelsius when the
// sensor did not answer or answered garbage.
var ErrDisconnected = errors.New("sensor: disconnected")

// TemperatureSource is the bus of temperature sensors.
type TemperatureSource interface {
	// Discover returns the addresses of all devices answering on the bus, in
	// enumeration order. On error the devices found so far are returned along
	// with the error.
	Discover() ([]onewire.Address, error)
	// IsValid reports whether the address carries a correct checksum.
	IsValid(addr onewire.Address) bool
	// IsRecognizedFamily reports whether the device is a supported
	// temperature sensor.
	IsRecognizedFamily(addr onewire.Address) bool
	// RequestConversion starts a conversion on all sensors and blocks until
	// the slowest one is done.
	RequestConversion() error
	// ReadCelsius returns the result of the last conversion.
	ReadCelsius(addr onewire.Address) (float64, error)
	// IsParasitePowered reports whether any device on the bus draws its power
	// from the data line.
	IsParasitePowered() (bool, error)
}

// ResolutionSetter is implemented by sources whose sensors have a
// configurable conversion resolution.
type ResolutionSetter interface {
	SetResolution(addr onewire.Address, bits int) error
}

// Slot is a discovered sensor at its 1-based display position.
type Slot struct {
	Index int
	Addr  onewire.Address
}

// Reading is one sample of one slot. Celsius is meaningless when Present is
// false.
type Reading struct {
	Slot    Slot
	Celsius float64
	Present bool
}

// NewReading builds a Reading, treating the disconnect sentinel as absent.
func NewReading(s Slot, c float64) Reading {
	return Reading{Slot: s, Celsius: c, Present: c != DisconnectedC}
}

// Opts contains options for Discover.
type Opts struct {
	// Resolution in bits applied to every accepted sensor when the source
	// implements ResolutionSetter. 0 leaves the devices untouched.
	Resolution int
	Logger     *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Resolution: 10,
}

// Registry is the immutable list of sensors accepted at discovery.
type Registry struct {
	slots  []Slot
	logger *slog.Logger
}

// Discover enumerates the bus once and returns the registry of valid,
// recognized sensors.
//
// It never fails: a bus error keeps the devices reported before the error and
// an empty bus yields an empty registry.
func Discover(src TemperatureSource, opts *Opts) *Registry {
	if opts == nil {
		opts = &DefaultOpts
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}

	addrs, err := src.Discover()
	if err != nil {
		logger.Warn("sensor discovery incomplete", "found", len(addrs), "err", err)
	}
	for _, a := range addrs {
		if !src.IsValid(a) {
			logger.Info("skipping device", "addr", Format(a), "reason", "invalid address")
			continue
		}
		if !src.IsRecognizedFamily(a) {
			logger.Info("skipping device", "addr", Format(a), "reason", "unknown family")
			continue
		}
		s := Slot{Index: len(r.slots) + 1, Addr: a}
		r.slots = append(r.slots, s)
		logger.Info("sensor found", "slot", s.Index, "addr", Format(a))
	}

	if rs, ok := src.(ResolutionSetter); ok && opts.Resolution != 0 {
		for _, s := range r.slots {
			if err := rs.SetResolution(s.Addr, opts.Resolution); err != nil {
				logger.Warn("failed to set resolution", "slot", s.Index, "bits", opts.Resolution, "err", err)
			}
		}
	}

	logger.Info("discovery done", "count", len(r.slots))
	if len(r.slots) != 0 {
		if p, err := src.IsParasitePowered(); err != nil {
			logger.Warn("failed to query power mode", "err", err)
		} else {
			logger.Info("power mode", "parasite", p)
		}
	}
	return r
}

// NewRegistry returns a registry of the given addresses in order, without
// touching any bus.
func NewRegistry(addrs ...onewire.Address) *Registry {
	r := &Registry{logger: slog.Default()}
	for i, a := range addrs {
		r.slots = append(r.slots, Slot{Index: i + 1, Addr: a})
	}
	return r
}

// Count returns the number of sensors.
func (r *Registry) Count() int {
	return len(r.slots)
}

// SlotAt returns the slot at the 1-based index i.
func (r *Registry) SlotAt(i int) (Slot, bool) {
	if i < 1 || i > len(r.slots) {
		return Slot{}, false
	}
	return r.slots[i-1], true
}

// Slots returns a copy of all slots in display order.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// Read reads the last conversion of every slot, in display order.
//
// It does not request a conversion.
func (r *Registry) Read(src TemperatureSource) []Reading {
	out := make([]Reading, 0, len(r.slots))
	for _, s := range r.slots {
		c, err := src.ReadCelsius(s.Addr)
		if err != nil {
			r.logger.Debug("could not read temperature data", "slot", s.Index, "addr", Format(s.Addr), "err", err)
			out = append(out, Reading{Slot: s, Celsius: DisconnectedC})
			continue
		}
		out = append(out, NewReading(s, c))
	}
	return out
}

// Format prints the address the way it appears on the wire: family code first.
func Format(a onewire.Address) string {
	const hex = "0123456789ABCDEF"
	var b [16]byte
	for i := 0; i < 8; i++ {
		v := byte(a >> (8 * uint(i)))
		b[2*i] = hex[v>>4]
		b[2*i+1] = hex[v&0xf]
	}
	return string(b[:])
}
