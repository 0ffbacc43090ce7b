// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package battery samples the battery voltage divider through an ADC pin.
//
// Samples are rescaled to the 12 bits range the probe firmware expects,
// whatever the resolution of the underlying converter.
package battery

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// FullScale is the largest value returned by ReadRaw.
const FullScale = 4095

// Opts contains the options of a Dev.
type Opts struct {
	// VrefMillivolts is the calibrated reference of the converter.
	VrefMillivolts int
	// Scale is the input potential read as FullScale. When zero, the raw
	// range of the pin is stretched to 0..FullScale instead.
	Scale physic.ElectricPotential
}

// DefaultOpts is the nominal ESP32 reference.
var DefaultOpts = Opts{
	VrefMillivolts: 1100,
}

// Dev implements render.VoltageSource over an analog.PinADC.
type Dev struct {
	p        analog.PinADC
	vref     int
	scale    physic.ElectricPotential
	min, max int32
}

// New returns a Dev reading from p.
func New(p analog.PinADC, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.VrefMillivolts <= 0 {
		return nil, errors.New("battery: invalid VrefMillivolts")
	}
	lo, hi := p.Range()
	if hi.Raw <= lo.Raw {
		return nil, fmt.Errorf("battery: %s has an empty range", p)
	}
	if opts.Scale < 0 {
		return nil, errors.New("battery: invalid Scale")
	}
	return &Dev{p: p, vref: opts.VrefMillivolts, scale: opts.Scale, min: lo.Raw, max: hi.Raw}, nil
}

func (d *Dev) String() string {
	return "battery{" + d.p.String() + "}"
}

// ReadRaw implements render.VoltageSource.
//
// Out of range samples are clamped.
func (d *Dev) ReadRaw() (int, error) {
	s, err := d.p.Read()
	if err != nil {
		return 0, fmt.Errorf("battery: %w", err)
	}
	var v int64
	if d.scale != 0 {
		v = int64(s.V) * FullScale / int64(d.scale)
	} else {
		v = int64(s.Raw-d.min) * FullScale / int64(d.max-d.min)
	}
	return int(min(max(v, 0), FullScale)), nil
}

// VrefMillivolts implements render.VoltageSource.
func (d *Dev) VrefMillivolts() int {
	return d.vref
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.p.Halt()
}
