// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sample

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/thermoprobe/sensor"
)

func readings(temps ...float64) []sensor.Reading {
	out := make([]sensor.Reading, len(temps))
	for i, c := range temps {
		out[i] = sensor.NewReading(sensor.Slot{Index: i + 1}, c)
	}
	return out
}

func TestClassify(t *testing.T) {
	data := []struct {
		c    float64
		want Band
		ok   bool
	}{
		{100, Hot3, true},
		{40.01, Hot3, true},
		{40, Hot2, true},
		{30.5, Hot2, true},
		{25, Hot1, true},
		{20, Mild, true},
		{10.5, Mild, true},
		{0.1, Cool1, true},
		{0, Cool2, true},
		{-9.9, Cool2, true},
		{-10, Cool3, true},
		{-19.99, Cool3, true},
		{-20, 0, false},
		{-22, 0, false},
		{-24.99, 0, false},
		{-25, Cold, true},
		{-30, Cold, true},
	}
	for _, line := range data {
		b, ok := Classify(line.c)
		if ok != line.ok {
			t.Fatalf("Classify(%g) ok = %t", line.c, ok)
		}
		if ok && b != line.want {
			t.Fatalf("Classify(%g) = %s, want %s", line.c, b, line.want)
		}
	}
}

func TestBand_String(t *testing.T) {
	if s := Cold.String(); s != "Cold" {
		t.Fatal(s)
	}
	if s := Band(42).String(); s != "Band(?)" {
		t.Fatal(s)
	}
}

func TestUnit(t *testing.T) {
	for _, c := range []float64{-127, -40, -22.5, 0, 0.1, 36.6, 100, 125} {
		if got := ToCelsius(ToFahrenheit(c)); math.Abs(got-c) > 0.01 {
			t.Fatalf("round trip of %g = %g", c, got)
		}
	}
	if f := Fahrenheit.Convert(100); f != 212 {
		t.Fatal(f)
	}
	if c := Celsius.Convert(21.5); c != 21.5 {
		t.Fatal(c)
	}
	if s := Fahrenheit.Symbol(); s != "÷F" {
		t.Fatal(s)
	}
	if s := Celsius.String(); s != "Celsius" {
		t.Fatal(s)
	}
}

func TestCompute(t *testing.T) {
	got := Compute(readings(20, 25, 15), 2)
	want := Aggregate{
		MinC:           15,
		MaxC:           25,
		FirstC:         20,
		TargetC:        25,
		SpreadC:        10,
		DeltaToTargetC: 5,
		HasRange:       true,
		HasDelta:       true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Compute() mismatch (-want +got):\n%s", diff)
	}
	if s := got.Spread(Celsius); s != 10 {
		t.Fatal(s)
	}
	if s := got.Spread(Fahrenheit); math.Abs(s-18) > 1e-9 {
		t.Fatal(s)
	}
	if d := got.Delta(Fahrenheit); math.Abs(d-9) > 1e-9 {
		t.Fatal(d)
	}
}

func TestCompute_absent(t *testing.T) {
	got := Compute(readings(20, sensor.DisconnectedC, 15), 3)
	if !got.HasRange || got.MinC != 15 || got.MaxC != 20 || got.SpreadC != 5 {
		t.Fatalf("%+v", got)
	}
	if !got.HasDelta || got.DeltaToTargetC != 5 {
		t.Fatalf("%+v", got)
	}

	got = Compute(readings(20, sensor.DisconnectedC, 15), 2)
	if got.HasDelta {
		t.Fatalf("delta against an absent target: %+v", got)
	}

	got = Compute(readings(sensor.DisconnectedC, 25, 15), 2)
	if got.HasDelta {
		t.Fatalf("delta with slot 1 absent: %+v", got)
	}
	if got.MinC != 15 || got.MaxC != 25 {
		t.Fatalf("%+v", got)
	}
}

func TestCompute_allAbsent(t *testing.T) {
	got := Compute(readings(sensor.DisconnectedC, sensor.DisconnectedC), 2)
	if got.HasRange || got.HasDelta {
		t.Fatalf("%+v", got)
	}
	if got.MinC != 0 || got.MaxC != 0 || got.SpreadC != 0 {
		t.Fatalf("%+v", got)
	}
}

func TestCompute_empty(t *testing.T) {
	if diff := cmp.Diff(Aggregate{}, Compute(nil, 2)); diff != "" {
		t.Fatal(diff)
	}
}

func TestCompute_targetOutOfRange(t *testing.T) {
	got := Compute(readings(20, 25), 5)
	if got.HasDelta || got.TargetC != 0 {
		t.Fatalf("%+v", got)
	}
}
