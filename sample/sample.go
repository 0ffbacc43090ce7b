// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sample derives the values shown under the sensor list (min, max,
// spread and delta to the comparison sensor) and classifies temperatures into
// presentation bands.
//
// All computations are done in Celsius. Unit conversion happens only when a
// value is formatted.
package sample

import (
	"math"

	"github.com/GermanBionicSystems/thermoprobe/sensor"
)

// Band is a colour class of a temperature.
type Band uint8

// Bands from hottest to coldest.
const (
	Hot3 Band = iota
	Hot2
	Hot1
	Mild
	Cool1
	Cool2
	Cool3
	Cold
)

func (b Band) String() string {
	switch b {
	case Hot3:
		return "Hot3"
	case Hot2:
		return "Hot2"
	case Hot1:
		return "Hot1"
	case Mild:
		return "Mild"
	case Cool1:
		return "Cool1"
	case Cool2:
		return "Cool2"
	case Cool3:
		return "Cool3"
	case Cold:
		return "Cold"
	default:
		return "Band(?)"
	}
}

// Classify returns the band of a Celsius temperature.
//
// Boundaries are exclusive on the upper side: 40°C is Hot2, 0°C is Cool2.
// Values in (-25, -20] have no band and ok is false; the display keeps
// whatever colour was active before.
func Classify(c float64) (b Band, ok bool) {
	switch {
	case c > 40:
		return Hot3, true
	case c > 30:
		return Hot2, true
	case c > 20:
		return Hot1, true
	case c > 10:
		return Mild, true
	case c > 0:
		return Cool1, true
	case c > -10:
		return Cool2, true
	case c > -20:
		return Cool3, true
	case c <= -25:
		return Cold, true
	}
	return 0, false
}

// Unit is a display temperature unit.
type Unit uint8

// Supported units.
const (
	Celsius Unit = iota
	Fahrenheit
)

func (u Unit) String() string {
	if u == Fahrenheit {
		return "Fahrenheit"
	}
	return "Celsius"
}

// Symbol is the unit suffix printed after values. The display font maps
// U+00F7 to a degree sign.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "÷F"
	}
	return "÷C"
}

// Convert converts a Celsius value to u.
func (u Unit) Convert(c float64) float64 {
	if u == Fahrenheit {
		return ToFahrenheit(c)
	}
	return c
}

// ToFahrenheit converts Celsius to Fahrenheit.
func ToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// ToCelsius converts Fahrenheit to Celsius.
func ToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// Aggregate holds the values derived from one render cycle.
//
// MinC, MaxC and SpreadC are only meaningful when HasRange is true.
// TargetC and DeltaToTargetC are only meaningful when HasDelta is true.
type Aggregate struct {
	MinC, MaxC     float64
	FirstC         float64
	TargetC        float64
	SpreadC        float64
	DeltaToTargetC float64

	HasRange bool // at least one reading is present
	HasDelta bool // slot 1 and the target slot are both present
}

// Compute derives the aggregate of a cycle's readings, in slot order.
//
// Absent readings are excluded from min and max. The delta compares slot 1
// with slot target; it is unavailable when either one is absent or target is
// out of range. An empty slice returns the zero Aggregate.
func Compute(readings []sensor.Reading, target int) Aggregate {
	var a Aggregate
	if len(readings) == 0 {
		return a
	}
	first := readings[0]
	a.FirstC = first.Celsius
	a.MinC = math.Inf(1)
	a.MaxC = math.Inf(-1)
	for _, r := range readings {
		if !r.Present {
			continue
		}
		a.HasRange = true
		a.MinC = math.Min(a.MinC, r.Celsius)
		a.MaxC = math.Max(a.MaxC, r.Celsius)
	}
	if a.HasRange {
		a.SpreadC = a.MaxC - a.MinC
	} else {
		a.MinC, a.MaxC = 0, 0
	}
	if target >= 1 && target <= len(readings) {
		t := readings[target-1]
		a.TargetC = t.Celsius
		if first.Present && t.Present {
			a.HasDelta = true
			a.DeltaToTargetC = math.Abs(first.Celsius - t.Celsius)
		}
	}
	return a
}

// Spread returns max-min expressed in u.
func (a *Aggregate) Spread(u Unit) float64 {
	return u.Convert(a.MaxC) - u.Convert(a.MinC)
}

// Delta returns |first-target| expressed in u.
func (a *Aggregate) Delta(u Unit) float64 {
	return math.Abs(u.Convert(a.FirstC) - u.Convert(a.TargetC))
}
