// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render_test

import (
	"bytes"
	"errors"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/onewire"

	"github.com/GermanBionicSystems/thermoprobe/probetest"
	"github.com/GermanBionicSystems/thermoprobe/render"
	"github.com/GermanBionicSystems/thermoprobe/sample"
	"github.com/GermanBionicSystems/thermoprobe/sensor"
	"github.com/GermanBionicSystems/thermoprobe/ui"
)

const (
	addr1 onewire.Address = 0x740000070e41ac28
	addr2 onewire.Address = 0x0b00000131825228
	addr3 onewire.Address = 0x5e0000045f3a1b28
)

type fixture struct {
	src   *probetest.Source
	disp  *probetest.Display
	state *ui.State
	s     *render.Scheduler
}

func newFixture(t *testing.T, temps ...float64) *fixture {
	addrs := []onewire.Address{addr1, addr2, addr3}[:len(temps)]
	src := &probetest.Source{}
	for i, c := range temps {
		src.Set(addrs[i], c)
	}
	f := &fixture{
		src:   src,
		disp:  &probetest.Display{},
		state: ui.NewState(),
	}
	opts := render.DefaultOpts
	opts.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	f.s = render.New(f.disp, src, sensor.NewRegistry(addrs...), f.state, &probetest.Voltage{Raw: 2048, Vref: 1100}, &opts)
	return f
}

func TestRender(t *testing.T) {
	f := newFixture(t, 20, 25, 15)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"T1  20.00÷C",
		"T2* 25.00÷C",
		"T3  15.00÷C",
		"",
		"Dmax10.00÷C",
		"",
		"DT2 05.00÷C",
		"",
		"0:00:00",
		"",
		"Voltage: 3.63V",
	}
	if diff := cmp.Diff(want, f.disp.Lines()); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
	if f.src.Conversions != 1 {
		t.Fatalf("Conversions = %d", f.src.Conversions)
	}
}

func TestRender_ops(t *testing.T) {
	f := newFixture(t, 20, 25)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, o := range f.disp.Ops {
		got = append(got, o.String())
	}
	mild := render.BandColor(sample.Mild)
	hot1 := render.BandColor(sample.Hot1)
	want := []string{
		"SetCursor(0, 0)",
		"SetTextSize(2)",
		(probetest.Op{Name: "SetColor", FG: mild, BG: render.Background}).String(),
		`Println("T1  20.00÷C")`,
		(probetest.Op{Name: "SetColor", FG: hot1, BG: render.Background}).String(),
		`Println("T2* 25.00÷C")`,
		(probetest.Op{Name: "SetColor", FG: render.Foreground, BG: render.Background}).String(),
		"SetTextSize(2)",
		`Println("")`,
		"SetTextSize(2)",
		`Println("Dmax05.00÷C")`,
		"SetTextSize(1)",
		`Println("")`,
		"SetTextSize(2)",
		`Println("DT2 05.00÷C")`,
		"SetTextSize(2)",
		`Println("")`,
		"SetTextSize(2)",
		"SetTextSize(3)",
		`Println("0:00:00")`,
		"SetTextSize(2)",
		`Println("")`,
		"SetTextSize(3)",
		"SetTextSize(1)",
		`Print("Voltage: 3.63V")`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_absent(t *testing.T) {
	f := newFixture(t, 20, 25, 15)
	f.src.Unplug(addr2)
	f.state.CycleTarget(3)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	lines := f.disp.Lines()
	want := []string{"T1  20.00÷C", "T2  N.A.", "T3* 15.00÷C", "", "Dmax05.00÷C", "", "DT3 05.00÷C"}
	if diff := cmp.Diff(want, lines[:len(want)]); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_absent_target(t *testing.T) {
	f := newFixture(t, 20, 25, 15)
	f.src.Unplug(addr2)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	lines := f.disp.Lines()
	if lines[1] != "T2* N.A." {
		t.Fatal(lines[1])
	}
	if lines[6] != "DT2 N.A." {
		t.Fatal(lines[6])
	}
}

func TestRender_all_absent(t *testing.T) {
	f := newFixture(t, 20, 25)
	f.src.Unplug(addr1)
	f.src.Unplug(addr2)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	lines := f.disp.Lines()
	want := []string{"T1  N.A.", "T2* N.A.", "", "Dmax N.A.", "", "DT2 N.A."}
	if diff := cmp.Diff(want, lines[:len(want)]); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
	for _, o := range f.disp.Ops {
		if o.Name == "SetColor" && o.FG != render.Foreground {
			t.Fatalf("absent readings must not be coloured: %s", o)
		}
	}
}

func TestRender_absent_logged_once(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	src := &probetest.Source{Devices: []onewire.Address{addr1, addr2}}
	src.Set(addr1, 20)
	src.Set(addr2, 25)
	reg := sensor.Discover(src, &sensor.Opts{Logger: logger})
	src.Unplug(addr2)
	s := render.New(&probetest.Display{}, src, reg, ui.NewState(), nil, &render.Opts{Logger: logger})
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "could not read temperature data"); n != 1 {
		t.Fatalf("got %d failed read lines:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "err=") {
		t.Fatalf("failed read logged without its error:\n%s", buf.String())
	}
}

func TestRender_fahrenheit(t *testing.T) {
	f := newFixture(t, 20, 25, 15)
	f.state.ToggleUnit()
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	want := []string{"T1  68.00÷F", "T2* 77.00÷F", "T3  59.00÷F", "", "Dmax18.00÷F", "", "DT2 09.00÷F"}
	lines := f.disp.Lines()
	if diff := cmp.Diff(want, lines[:len(want)]); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_single(t *testing.T) {
	f := newFixture(t, 21.25)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	want := []string{"T1  21.25÷C", "", "0:00:00", "", "Voltage: 3.63V"}
	if diff := cmp.Diff(want, f.disp.Lines()); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_no_sensors(t *testing.T) {
	f := newFixture(t)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{render.NoSensors}, f.disp.Lines()); diff != "" {
		t.Fatal(diff)
	}
	if f.src.Conversions != 0 {
		t.Fatal("no conversion expected without sensors")
	}
	for _, l := range f.disp.Lines() {
		if strings.HasPrefix(l, "D") || strings.HasPrefix(l, "Voltage") {
			t.Fatal(l)
		}
	}
}

func TestRender_gap_keeps_colour(t *testing.T) {
	f := newFixture(t, -22, 5)
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	var colours []color.Color
	for _, o := range f.disp.Ops {
		if o.Name == "SetColor" {
			colours = append(colours, o.FG)
		}
		if o.Name == "Println" && strings.HasPrefix(o.Text, "T1") && len(colours) != 0 {
			t.Fatal("a reading in (-25, -20] must not change the colour")
		}
	}
	if len(colours) != 2 || colours[0] != color.Color(render.BandColor(sample.Cool1)) || colours[1] != render.Foreground {
		t.Fatalf("%v", colours)
	}
}

func TestRender_voltage(t *testing.T) {
	f := newFixture(t)
	opts := render.Opts{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	src := &probetest.Source{Temps: map[onewire.Address]float64{addr1: 1}}
	reg := sensor.NewRegistry(addr1)

	s := render.New(f.disp, src, reg, f.state, nil, &opts)
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	if l := f.disp.Lines(); l[len(l)-1] != "Voltage: N.A." {
		t.Fatal(l)
	}

	f.disp.Reset()
	s = render.New(f.disp, src, reg, f.state, &probetest.Voltage{Err: errors.New("adc: busy")}, &opts)
	if err := s.Render(); err != nil {
		t.Fatal(err)
	}
	if l := f.disp.Lines(); l[len(l)-1] != "Voltage: N.A." {
		t.Fatal(l)
	}
}

func TestRender_elapsed(t *testing.T) {
	f := newFixture(t, 20)
	for i := 0; i < 3725; i++ {
		f.state.Tick()
	}
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	if l := f.disp.Lines(); l[2] != "1:02:05" {
		t.Fatal(l)
	}
}

func TestRender_display_error(t *testing.T) {
	f := newFixture(t, 20, 25)
	f.disp.Err = probetest.ErrDisplay
	err := f.s.Render()
	if !errors.Is(err, probetest.ErrDisplay) {
		t.Fatal(err)
	}
	if !strings.HasPrefix(err.Error(), "render: ") {
		t.Fatal(err)
	}
}

func TestRender_conversion_error(t *testing.T) {
	f := newFixture(t, 20, 25)
	f.src.ConvertErr = errors.New("onewire: bus reset failed")
	if err := f.s.Render(); err != nil {
		t.Fatal(err)
	}
	if l := f.disp.Lines(); l[0] != "T1  20.00÷C" {
		t.Fatal(l)
	}
}

func TestMaybeRender(t *testing.T) {
	f := newFixture(t, 20)
	data := []struct {
		now  uint64
		want bool
	}{
		{0, false},
		{500, false},
		{1000, false},
		{1001, true},
		{1500, false},
		{2001, false},
		{2002, true},
		{9000, true},
	}
	for _, line := range data {
		got, err := f.s.MaybeRender(line.now)
		if err != nil {
			t.Fatal(err)
		}
		if got != line.want {
			t.Fatalf("MaybeRender(%d) = %t", line.now, got)
		}
	}
	if f.src.Conversions != 3 {
		t.Fatalf("Conversions = %d", f.src.Conversions)
	}
}

func TestMaybeRender_error(t *testing.T) {
	f := newFixture(t, 20)
	f.disp.Err = probetest.ErrDisplay
	ok, err := f.s.MaybeRender(1001)
	if !ok || err == nil {
		t.Fatal(ok, err)
	}
	// The failed cycle still counts for rate limiting.
	if ok, _ := f.s.MaybeRender(1500); ok {
		t.Fatal("rate limit ignored after a failure")
	}
}

func TestFormatReading(t *testing.T) {
	s := sensor.Slot{Index: 4}
	data := []struct {
		r      sensor.Reading
		target int
		unit   sample.Unit
		want   string
	}{
		{sensor.NewReading(s, 21.5), 2, sample.Celsius, "T4  21.50÷C"},
		{sensor.NewReading(s, 21.5), 4, sample.Celsius, "T4* 21.50÷C"},
		{sensor.NewReading(s, -5.25), 2, sample.Celsius, "T4  -5.25÷C"},
		{sensor.NewReading(s, 100), 2, sample.Fahrenheit, "T4  212.00÷F"},
		{sensor.NewReading(s, sensor.DisconnectedC), 2, sample.Celsius, "T4  N.A."},
		{sensor.NewReading(s, sensor.DisconnectedC), 4, sample.Fahrenheit, "T4* N.A."},
	}
	for _, line := range data {
		if got := render.FormatReading(line.r, line.target, line.unit); got != line.want {
			t.Fatalf("got %q, want %q", got, line.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	data := []struct {
		s    uint64
		want string
	}{
		{0, "0:00:00"},
		{59, "0:00:59"},
		{3725, "1:02:05"},
		{36000, "10:00:00"},
		{360000 + 61, "100:01:01"},
	}
	for _, line := range data {
		if got := render.FormatElapsed(line.s); got != line.want {
			t.Fatalf("FormatElapsed(%d) = %q, want %q", line.s, got, line.want)
		}
	}
}

func TestBatteryVolts(t *testing.T) {
	if s := render.FormatVoltage(render.BatteryVolts(4095, 1000)); s != "Voltage: 6.60V" {
		t.Fatal(s)
	}
	if v := render.BatteryVolts(0, 1100); v != 0 {
		t.Fatal(v)
	}
}

func TestBandColor(t *testing.T) {
	if c := render.BandColor(sample.Hot3); c != (color.NRGBA{0xFF, 0, 0, 0xFF}) {
		t.Fatal(c)
	}
	if c := render.BandColor(sample.Band(99)); c != (color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatal(c)
	}
}
