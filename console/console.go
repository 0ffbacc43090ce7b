// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console implements the probe screen on a terminal using ANSI escape
// codes.
//
// Useful to run the probe on a workstation with a USB 1-wire adapter and no
// display attached.
package console

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Opts represents the options available for this display.
type Opts struct {
	// W is where the screen is written. Defaults to stdout.
	W io.Writer
	// Color forces ANSI output. It is enabled automatically when W is nil and
	// stdout is a terminal.
	Color bool
	// Swatch prefixes each coloured line with a block of its colour.
	Swatch  bool
	Palette *ansi256.Palette

	_ struct{}
}

// Dev is a text screen drawn on a terminal.
type Dev struct {
	mu       sync.Mutex
	w        io.Writer
	color    bool
	swatch   bool
	palette  *ansi256.Palette
	renderer *lipgloss.Renderer

	fg, bg color.Color
	size   int
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		w:       opts.W,
		color:   opts.Color,
		swatch:  opts.Swatch,
		palette: p,
		size:    1,
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
		fd := os.Stdout.Fd()
		d.color = d.color || isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	d.renderer = lipgloss.NewRenderer(d.w)
	return d
}

func (d *Dev) String() string {
	return "Console"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	if !d.color {
		return nil
	}
	_, err := io.WriteString(d.w, "\033[0m\n")
	return err
}

// Clear implements render.Display.
func (d *Dev) Clear() error {
	if !d.color {
		return nil
	}
	_, err := io.WriteString(d.w, "\033[0m\033[2J\033[H")
	return err
}

// SetCursor implements render.Display.
//
// Only the home position is meaningful on a terminal. Without colour, moving
// home starts a new frame below the previous one.
func (d *Dev) SetCursor(x, y int) error {
	if x != 0 || y != 0 {
		return nil
	}
	if !d.color {
		_, err := io.WriteString(d.w, "\n")
		return err
	}
	_, err := io.WriteString(d.w, "\033[H")
	return err
}

// SetTextSize implements render.Display.
//
// A terminal has a single font size: size 3 and up is bold, size 1 is faint.
func (d *Dev) SetTextSize(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.size = n
	return nil
}

// SetColor implements render.Display.
func (d *Dev) SetColor(fg, bg color.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fg, d.bg = fg, bg
	return nil
}

// Print implements render.Display.
func (d *Dev) Print(s string) error {
	return d.write(s, false)
}

// Println implements render.Display.
func (d *Dev) Println(s string) error {
	return d.write(s, true)
}

func (d *Dev) write(s string, newline bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The device font draws a degree sign for ÷.
	s = strings.ReplaceAll(s, "÷", "°")
	d.buf.Reset()
	if d.color && d.swatch && s != "" && d.fg != nil {
		_, _ = d.buf.WriteString(d.palette.Block(color.NRGBAModel.Convert(d.fg).(color.NRGBA)))
		_, _ = d.buf.WriteString("\033[0m ")
	}
	_, _ = d.buf.WriteString(d.style().Render(s))
	if newline {
		if d.color {
			// Erase leftovers of a longer line drawn in the previous frame.
			_, _ = d.buf.WriteString("\033[K")
		}
		_ = d.buf.WriteByte('\n')
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) style() lipgloss.Style {
	st := d.renderer.NewStyle()
	if !d.color {
		return st
	}
	if d.fg != nil {
		st = st.Foreground(lipgloss.Color(hex(d.fg)))
	}
	if d.bg != nil {
		st = st.Background(lipgloss.Color(hex(d.bg)))
	}
	switch {
	case d.size >= 3:
		st = st.Bold(true)
	case d.size <= 1:
		st = st.Faint(true)
	}
	return st
}

func hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

var _ fmt.Stringer = &Dev{}
