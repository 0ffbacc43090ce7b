// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws the probe screen: one line per sensor, the spread and
// delta lines, the elapsed time and the battery voltage.
//
// A Scheduler limits sampling and drawing to once per interval; every cycle
// blocks on a bus-wide temperature conversion.
package render

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/GermanBionicSystems/thermoprobe/sample"
	"github.com/GermanBionicSystems/thermoprobe/sensor"
	"github.com/GermanBionicSystems/thermoprobe/ui"
)

// Display is a text surface with a cursor, a text scale and a colour pair.
//
// Coordinates are in pixels on devices that have them and in cells otherwise.
type Display interface {
	Clear() error
	SetCursor(x, y int) error
	SetTextSize(n int) error
	SetColor(fg, bg color.Color) error
	Print(s string) error
	Println(s string) error
}

// VoltageSource samples the battery divider.
type VoltageSource interface {
	// ReadRaw returns a 12 bits sample, 0..4095.
	ReadRaw() (int, error)
	// VrefMillivolts returns the calibrated ADC reference.
	VrefMillivolts() int
}

// BatteryVolts converts a raw sample to the battery voltage. The battery is
// measured through a 1:2 divider on a 3.3V scale.
func BatteryVolts(raw, vrefMillivolts int) float64 {
	return (float64(raw) / 4095.0) * 2.0 * 3.3 * (float64(vrefMillivolts) / 1000.0)
}

// Default colours of the screen.
var (
	Foreground color.Color = color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}
	Background color.Color = color.NRGBA{0x00, 0x00, 0x00, 0xFF}
)

// palette is the colour of each band, from the TFT_eSPI 565 constants.
var palette = [...]color.NRGBA{
	sample.Hot3:  {0xFF, 0x00, 0x00, 0xFF}, // red
	sample.Hot2:  {0xFF, 0xB4, 0x00, 0xFF}, // orange
	sample.Hot1:  {0xFF, 0xFF, 0x00, 0xFF}, // yellow
	sample.Mild:  {0xB4, 0xFF, 0x00, 0xFF}, // green yellow
	sample.Cool1: {0xC0, 0xC0, 0xC0, 0xFF}, // silver
	sample.Cool2: {0x87, 0xCE, 0xEB, 0xFF}, // sky blue
	sample.Cool3: {0x00, 0x80, 0x80, 0xFF}, // dark cyan
	sample.Cold:  {0x00, 0xFF, 0xFF, 0xFF}, // cyan
}

// BandColor returns the foreground colour of a band.
func BandColor(b sample.Band) color.NRGBA {
	if int(b) >= len(palette) {
		return color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}
	}
	return palette[b]
}

// NoSensors is shown instead of the readings when discovery found nothing.
const NoSensors = "no sensors"

// FormatReading formats the line of one sensor. target is the comparison
// slot, marked with an asterisk.
func FormatReading(r sensor.Reading, target int, u sample.Unit) string {
	marker := " "
	if r.Slot.Index == target {
		marker = "*"
	}
	if !r.Present {
		return fmt.Sprintf("T%d%s N.A.", r.Slot.Index, marker)
	}
	return fmt.Sprintf("T%d%s% 6.2f%s", r.Slot.Index, marker, u.Convert(r.Celsius), u.Symbol())
}

// FormatSpread formats the max-min line.
func FormatSpread(a *sample.Aggregate, u sample.Unit) string {
	if !a.HasRange {
		return "Dmax N.A."
	}
	return fmt.Sprintf("Dmax%05.2f%s", a.Spread(u), u.Symbol())
}

// FormatDelta formats the line comparing slot 1 with the target slot.
func FormatDelta(a *sample.Aggregate, target int, u sample.Unit) string {
	if !a.HasDelta {
		return fmt.Sprintf("DT%d N.A.", target)
	}
	return fmt.Sprintf("DT%d %05.2f%s", target, a.Delta(u), u.Symbol())
}

// FormatElapsed formats seconds as H:MM:SS. Hours are not clamped.
func FormatElapsed(seconds uint64) string {
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// FormatVoltage formats the battery line.
func FormatVoltage(v float64) string {
	return fmt.Sprintf("Voltage: %.2fV", v)
}

// Opts contains the options of a Scheduler.
type Opts struct {
	// Interval is the minimum time between two render cycles. A cycle runs
	// only once strictly more than Interval elapsed.
	Interval time.Duration
	Logger   *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Interval: time.Second,
}

// Scheduler samples the sensors and redraws the screen at most once per
// interval.
//
// It must only be used from the main loop.
type Scheduler struct {
	disp     Display
	src      sensor.TemperatureSource
	reg      *sensor.Registry
	state    *ui.State
	volt     VoltageSource
	interval uint64
	logger   *slog.Logger

	last     uint64 // timestamp of the last render, in ms
	textSize int
}

// New returns a Scheduler. volt may be nil, in which case the voltage line
// reads N.A.
func New(d Display, src sensor.TemperatureSource, reg *sensor.Registry, st *ui.State, volt VoltageSource, opts *Opts) *Scheduler {
	if opts == nil {
		opts = &DefaultOpts
	}
	s := &Scheduler{
		disp:     d,
		src:      src,
		reg:      reg,
		state:    st,
		volt:     volt,
		interval: uint64(opts.Interval / time.Millisecond),
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// MaybeRender runs a render cycle when more than the interval elapsed since
// the previous one. nowMillis is a monotonic timestamp starting at boot.
//
// It returns true when a cycle ran, even if it failed.
func (s *Scheduler) MaybeRender(nowMillis uint64) (bool, error) {
	if nowMillis-s.last <= s.interval {
		return false, nil
	}
	s.last = nowMillis
	return true, s.Render()
}

// Render runs a render cycle unconditionally.
func (s *Scheduler) Render() error {
	w := writer{d: s.disp, logger: s.logger, size: &s.textSize}
	w.setCursor(0, 0)
	w.setTextSize(2)
	if s.reg.Count() == 0 {
		w.println(NoSensors)
		return w.result()
	}

	if err := s.src.RequestConversion(); err != nil {
		s.logger.Warn("temperature conversion failed", "err", err)
	}
	readings := s.reg.Read(s.src)
	unit := s.state.Unit()
	target := s.state.Target()
	for _, r := range readings {
		s.logReading(r)
		// Absent readings keep the current colour; the disconnect sentinel
		// is never classified.
		if r.Present {
			if b, ok := sample.Classify(r.Celsius); ok {
				w.setColor(BandColor(b), Background)
			}
		}
		w.println(FormatReading(r, target, unit))
	}
	w.setColor(Foreground, Background)

	if len(readings) > 1 {
		a := sample.Compute(readings, target)
		w.blank(2)
		w.println(FormatSpread(&a, unit))
		w.blank(1)
		w.println(FormatDelta(&a, target, unit))
	}

	w.blank(2)
	w.setTextSize(3)
	w.println(FormatElapsed(s.state.Elapsed()))
	w.blank(2)
	w.setTextSize(1)
	w.print(s.voltageLine())
	return w.result()
}

func (s *Scheduler) voltageLine() string {
	if s.volt == nil {
		return "Voltage: N.A."
	}
	raw, err := s.volt.ReadRaw()
	if err != nil {
		s.logger.Warn("failed to read battery", "err", err)
		return "Voltage: N.A."
	}
	return FormatVoltage(BatteryVolts(raw, s.volt.VrefMillivolts()))
}

func (s *Scheduler) logReading(r sensor.Reading) {
	// Registry.Read logs failed reads with their error.
	if !r.Present {
		return
	}
	s.logger.Debug("temperature", "slot", r.Slot.Index, "addr", sensor.Format(r.Slot.Addr), "C", r.Celsius, "F", sample.ToFahrenheit(r.Celsius))
}

// writer forwards to a Display and keeps the first error; later calls are
// skipped.
type writer struct {
	d      Display
	logger *slog.Logger
	size   *int
	err    error
}

func (w *writer) setCursor(x, y int) {
	if w.err == nil {
		w.err = w.d.SetCursor(x, y)
	}
}

func (w *writer) setTextSize(n int) {
	if w.err == nil {
		w.err = w.d.SetTextSize(n)
		*w.size = n
	}
}

func (w *writer) setColor(fg, bg color.Color) {
	if w.err == nil {
		w.err = w.d.SetColor(fg, bg)
	}
}

func (w *writer) print(s string) {
	w.logger.Debug("display", "line", s)
	if w.err == nil {
		w.err = w.d.Print(s)
	}
}

func (w *writer) println(s string) {
	w.logger.Debug("display", "line", s)
	if w.err == nil {
		w.err = w.d.Println(s)
	}
}

// blank inserts an empty line of the given text size and restores the
// current size.
func (w *writer) blank(size int) {
	cur := *w.size
	if w.err == nil {
		w.err = w.d.SetTextSize(size)
	}
	if w.err == nil {
		w.err = w.d.Println("")
	}
	if w.err == nil {
		w.err = w.d.SetTextSize(cur)
	}
}

func (w *writer) result() error {
	if w.err != nil {
		return fmt.Errorf("render: %w", w.err)
	}
	return nil
}
