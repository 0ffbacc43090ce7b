// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package framebuf draws the probe screen into an off-screen image and pushes
// it to a pixel display such as an SSD1306 OLED.
//
// Text is rasterised with gg. Text size n scales the font n times, like the
// Adafruit GFX text size.
package framebuf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/display"
)

// Opts contains the options of a Dev.
type Opts struct {
	// TTF is an optional TrueType font. The 7x13 bitmap font is used when nil.
	TTF []byte
	// Points is the size of the TrueType font.
	Points float64
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Points: 10,
}

// Dev renders text into a frame and pushes the frame to a display.Drawer
// after each call that changes pixels.
type Dev struct {
	mu     sync.Mutex
	drv    display.Drawer
	img    *image.RGBA
	dc     *gg.Context
	degree string

	ascent     float64
	lineHeight float64

	fg, bg color.Color
	size   int
	x, y   float64
}

// New returns a Dev drawing on drv.
func New(drv display.Drawer, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	r := drv.Bounds()
	if r.Empty() {
		return nil, errors.New("framebuf: empty display")
	}
	var face font.Face = basicfont.Face7x13
	if opts.TTF != nil {
		f, err := truetype.Parse(opts.TTF)
		if err != nil {
			return nil, fmt.Errorf("framebuf: invalid font: %w", err)
		}
		face = truetype.NewFace(f, &truetype.Options{Size: opts.Points, DPI: 72, Hinting: font.HintingFull})
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	d := &Dev{
		drv:  drv,
		img:  img,
		dc:   gg.NewContextForRGBA(img),
		fg:   color.White,
		bg:   color.Black,
		size: 1,
	}
	d.dc.SetFontFace(face)
	m := face.Metrics()
	d.ascent = float64(m.Ascent.Ceil())
	d.lineHeight = float64(m.Height.Ceil())
	if _, ok := face.GlyphAdvance('°'); ok {
		d.degree = "°"
	}
	return d, nil
}

func (d *Dev) String() string {
	return "framebuf{" + d.drv.String() + "}"
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.drv.Halt()
}

// Clear implements render.Display.
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dc.SetColor(d.bg)
	d.dc.Clear()
	d.x, d.y = 0, 0
	return d.flush()
}

// SetCursor implements render.Display. Coordinates are in pixels.
func (d *Dev) SetCursor(x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.x, d.y = float64(x), float64(y)
	return nil
}

// SetTextSize implements render.Display.
func (d *Dev) SetTextSize(n int) error {
	if n < 1 {
		return fmt.Errorf("framebuf: invalid text size %d", n)
	}
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
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draw(s)
	return d.flush()
}

// Println implements render.Display.
func (d *Dev) Println(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draw(s)
	d.x = 0
	d.y += d.lineHeight * float64(d.size)
	return d.flush()
}

// Image returns the current frame.
func (d *Dev) Image() image.Image {
	return d.img
}

func (d *Dev) draw(s string) {
	if s == "" {
		return
	}
	s = strings.ReplaceAll(s, "÷", d.degree)
	n := float64(d.size)
	w, _ := d.dc.MeasureString(s)
	d.dc.SetColor(d.bg)
	d.dc.DrawRectangle(d.x, d.y, w*n, d.lineHeight*n)
	d.dc.Fill()

	d.dc.Push()
	d.dc.Scale(n, n)
	d.dc.SetColor(d.fg)
	d.dc.DrawString(s, d.x/n, d.y/n+d.ascent)
	d.dc.Pop()
	d.x += w * n
}

func (d *Dev) flush() error {
	if err := d.drv.Draw(d.drv.Bounds(), d.img, image.Point{}); err != nil {
		return fmt.Errorf("framebuf: %w", err)
	}
	return nil
}
