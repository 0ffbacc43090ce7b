// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package battery

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

type fakeADC struct {
	analog.PinADC
	lo, hi int32
	raw    int32
	v      physic.ElectricPotential
	err    error
}

func (f *fakeADC) String() string { return "ADC0" }

func (f *fakeADC) Halt() error { return nil }

func (f *fakeADC) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{Raw: f.lo}, analog.Sample{Raw: f.hi, V: 3300 * physic.MilliVolt}
}

func (f *fakeADC) Read() (analog.Sample, error) {
	return analog.Sample{Raw: f.raw, V: f.v}, f.err
}

func TestReadRaw(t *testing.T) {
	data := []struct {
		lo, hi, raw int32
		want        int
	}{
		{0, 4095, 0, 0},
		{0, 4095, 2048, 2048},
		{0, 4095, 4095, 4095},
		// 16 bits signed converter, positive half.
		{0, 32767, 16384, 2047},
		{0, 32767, 32767, 4095},
		{0, 32767, -12, 0},
		// 10 bits converter.
		{0, 1023, 1023, 4095},
		{0, 1023, 2000, 4095},
	}
	for _, line := range data {
		d, err := New(&fakeADC{PinADC: analog.INVALID, lo: line.lo, hi: line.hi, raw: line.raw}, nil)
		if err != nil {
			t.Fatal(err)
		}
		got, err := d.ReadRaw()
		if err != nil {
			t.Fatal(err)
		}
		if got != line.want {
			t.Fatalf("[%d, %d] %d: got %d, want %d", line.lo, line.hi, line.raw, got, line.want)
		}
	}
}

func TestReadRaw_scale(t *testing.T) {
	data := []struct {
		v    physic.ElectricPotential
		want int
	}{
		{0, 0},
		{1650 * physic.MilliVolt, 2047},
		{3300 * physic.MilliVolt, 4095},
		{5 * physic.Volt, 4095},
		{-100 * physic.MilliVolt, 0},
	}
	for _, line := range data {
		// ADS1115 style range: the raw value is ignored.
		f := &fakeADC{PinADC: analog.INVALID, lo: -32767, hi: 32767, raw: 1, v: line.v}
		d, err := New(f, &Opts{VrefMillivolts: 1100, Scale: 3300 * physic.MilliVolt})
		if err != nil {
			t.Fatal(err)
		}
		got, err := d.ReadRaw()
		if err != nil {
			t.Fatal(err)
		}
		if got != line.want {
			t.Fatalf("%s: got %d, want %d", line.v, got, line.want)
		}
	}
	if _, err := New(&fakeADC{PinADC: analog.INVALID, hi: 4095}, &Opts{VrefMillivolts: 1100, Scale: -1}); err == nil {
		t.Fatal("negative scale must be rejected")
	}
}

func TestReadRaw_error(t *testing.T) {
	errADC := errors.New("i2c: nack")
	d, err := New(&fakeADC{PinADC: analog.INVALID, hi: 4095, err: errADC}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadRaw(); !errors.Is(err, errADC) {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(&fakeADC{PinADC: analog.INVALID}, nil); err == nil {
		t.Fatal("empty range must be rejected")
	}
	if _, err := New(&fakeADC{PinADC: analog.INVALID, hi: 4095}, &Opts{}); err == nil {
		t.Fatal("zero vref must be rejected")
	}
	d, err := New(&fakeADC{PinADC: analog.INVALID, hi: 4095}, &Opts{VrefMillivolts: 1128})
	if err != nil {
		t.Fatal(err)
	}
	if d.VrefMillivolts() != 1128 {
		t.Fatal(d.VrefMillivolts())
	}
	if s := d.String(); s != "battery{ADC0}" {
		t.Fatal(s)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
}
