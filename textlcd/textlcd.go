// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package textlcd shows the probe screen on a character LCD such as a
// SparkFun SerLCD or a HD44780 with a backpack.
//
// Cursor coordinates are character cells. Text size is ignored. Text that
// does not fit on the panel is clipped.
package textlcd

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// Opts contains the options of a Dev.
type Opts struct {
	// Degree is the character code of the degree sign in the controller ROM.
	Degree byte
	// Compact drops empty lines so that more of the screen fits on small
	// panels.
	Compact bool
}

// DefaultOpts is the recommended default options. 0xDF is the degree sign
// of the HD44780 A00 character ROM.
var DefaultOpts = Opts{
	Degree: 0xDF,
}

// Dev adapts a display.TextDisplay.
type Dev struct {
	mu     sync.Mutex
	d      display.TextDisplay
	degree string
	// compact is Opts.Compact.
	compact  bool
	row, col int
	// backlight is the last colour sent to a RGB backlight. Many panels
	// persist it in EEPROM so it is only written on change.
	backlight color.Color
}

// New returns a Dev writing to d.
func New(d display.TextDisplay, opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	return &Dev{d: d, degree: string([]byte{opts.Degree}), compact: opts.Compact}
}

func (d *Dev) String() string {
	return "textlcd{" + d.d.String() + "}"
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	if r, ok := d.d.(conn.Resource); ok {
		return r.Halt()
	}
	return nil
}

// Clear implements render.Display.
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.row, d.col = 0, 0
	return wrap(d.d.Clear())
}

// SetCursor implements render.Display.
func (d *Dev) SetCursor(x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.row, d.col = y, x
	return d.move()
}

// SetTextSize implements render.Display. It is a no-op.
func (d *Dev) SetTextSize(n int) error {
	return nil
}

// SetColor implements render.Display.
//
// The foreground colour drives the backlight when the panel has a RGB one.
// Other panels ignore colours.
func (d *Dev) SetColor(fg, bg color.Color) error {
	rgb, ok := d.d.(display.DisplayRGBBacklight)
	if !ok || fg == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backlight != nil && sameColor(d.backlight, fg) {
		return nil
	}
	r, g, b, _ := fg.RGBA()
	if err := rgb.RGBBacklight(display.Intensity(r>>8), display.Intensity(g>>8), display.Intensity(b>>8)); err != nil {
		return wrap(err)
	}
	d.backlight = fg
	return nil
}

// Print implements render.Display.
func (d *Dev) Print(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(s)
}

// Println implements render.Display.
func (d *Dev) Println(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s == "" && d.compact {
		return nil
	}
	if err := d.write(s); err != nil {
		return err
	}
	d.row++
	d.col = 0
	return d.move()
}

func (d *Dev) write(s string) error {
	if s == "" || !d.visible() {
		return nil
	}
	s = strings.ReplaceAll(s, "÷", d.degree)
	if n := d.d.Cols() - d.col; len(s) > n {
		s = s[:n]
	}
	_, err := d.d.WriteString(s)
	d.col += len(s)
	return wrap(err)
}

// move places the hardware cursor at row, col when it is on the panel.
func (d *Dev) move() error {
	if !d.visible() {
		return nil
	}
	return wrap(d.d.MoveTo(d.row+d.d.MinRow(), d.col+d.d.MinCol()))
}

func (d *Dev) visible() bool {
	return d.row >= 0 && d.row < d.d.Rows() && d.col >= 0 && d.col < d.d.Cols()
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("textlcd: %w", err)
}

var _ conn.Resource = &Dev{}
