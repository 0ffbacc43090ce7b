// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package probetest is meant to be used to test code using the thermoprobe
// capabilities without real hardware.
package probetest

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"periph.io/x/conn/v3/onewire"

	"github.com/GermanBionicSystems/thermoprobe/sensor"
	"github.com/GermanBionicSystems/thermoprobe/ui"
)

// Source is a fake sensor.TemperatureSource.
//
// Every address in Devices is reported by Discover. Temps holds the value
// returned by ReadCelsius; an address missing from Temps reads as
// disconnected.
type Source struct {
	sync.Mutex
	Devices     []onewire.Address
	DiscoverErr error
	Invalid     map[onewire.Address]bool
	Foreign     map[onewire.Address]bool
	Temps       map[onewire.Address]float64
	Parasite    bool
	ParasiteErr error
	ConvertErr  error

	Conversions int
	Resolutions map[onewire.Address]int
}

// Discover implements sensor.TemperatureSource.
func (s *Source) Discover() ([]onewire.Address, error) {
	s.Lock()
	defer s.Unlock()
	out := make([]onewire.Address, len(s.Devices))
	copy(out, s.Devices)
	return out, s.DiscoverErr
}

// IsValid implements sensor.TemperatureSource.
func (s *Source) IsValid(addr onewire.Address) bool {
	s.Lock()
	defer s.Unlock()
	return !s.Invalid[addr]
}

// IsRecognizedFamily implements sensor.TemperatureSource.
func (s *Source) IsRecognizedFamily(addr onewire.Address) bool {
	s.Lock()
	defer s.Unlock()
	return !s.Foreign[addr]
}

// RequestConversion implements sensor.TemperatureSource.
func (s *Source) RequestConversion() error {
	s.Lock()
	defer s.Unlock()
	s.Conversions++
	return s.ConvertErr
}

// ReadCelsius implements sensor.TemperatureSource.
func (s *Source) ReadCelsius(addr onewire.Address) (float64, error) {
	s.Lock()
	defer s.Unlock()
	c, ok := s.Temps[addr]
	if !ok {
		return sensor.DisconnectedC, sensor.ErrDisconnected
	}
	return c, nil
}

// IsParasitePowered implements sensor.TemperatureSource.
func (s *Source) IsParasitePowered() (bool, error) {
	s.Lock()
	defer s.Unlock()
	return s.Parasite, s.ParasiteErr
}

// SetResolution implements sensor.ResolutionSetter.
func (s *Source) SetResolution(addr onewire.Address, bits int) error {
	s.Lock()
	defer s.Unlock()
	if s.Resolutions == nil {
		s.Resolutions = map[onewire.Address]int{}
	}
	s.Resolutions[addr] = bits
	return nil
}

// Set changes the value returned for addr.
func (s *Source) Set(addr onewire.Address, c float64) {
	s.Lock()
	defer s.Unlock()
	if s.Temps == nil {
		s.Temps = map[onewire.Address]float64{}
	}
	s.Temps[addr] = c
}

// Unplug makes addr read as disconnected.
func (s *Source) Unplug(addr onewire.Address) {
	s.Lock()
	defer s.Unlock()
	delete(s.Temps, addr)
}

// Op is one call recorded by Display.
type Op struct {
	Name string
	Text string
	X, Y int
	Size int
	FG   color.Color
	BG   color.Color
}

func (o Op) String() string {
	switch o.Name {
	case "Print", "Println":
		return fmt.Sprintf("%s(%q)", o.Name, o.Text)
	case "SetCursor":
		return fmt.Sprintf("SetCursor(%d, %d)", o.X, o.Y)
	case "SetTextSize":
		return fmt.Sprintf("SetTextSize(%d)", o.Size)
	case "SetColor":
		return fmt.Sprintf("SetColor(%v, %v)", o.FG, o.BG)
	default:
		return o.Name + "()"
	}
}

// Display is a fake render.Display that records every call.
//
// Set Err to make every call fail.
type Display struct {
	sync.Mutex
	Ops []Op
	Err error
}

func (d *Display) record(o Op) error {
	d.Lock()
	defer d.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.Ops = append(d.Ops, o)
	return nil
}

// Clear implements render.Display.
func (d *Display) Clear() error { return d.record(Op{Name: "Clear"}) }

// SetCursor implements render.Display.
func (d *Display) SetCursor(x, y int) error { return d.record(Op{Name: "SetCursor", X: x, Y: y}) }

// SetTextSize implements render.Display.
func (d *Display) SetTextSize(n int) error { return d.record(Op{Name: "SetTextSize", Size: n}) }

// SetColor implements render.Display.
func (d *Display) SetColor(fg, bg color.Color) error {
	return d.record(Op{Name: "SetColor", FG: fg, BG: bg})
}

// Print implements render.Display.
func (d *Display) Print(s string) error { return d.record(Op{Name: "Print", Text: s}) }

// Println implements render.Display.
func (d *Display) Println(s string) error { return d.record(Op{Name: "Println", Text: s}) }

// Lines returns the text written so far split into lines, ignoring cursor
// moves.
func (d *Display) Lines() []string {
	d.Lock()
	defer d.Unlock()
	var b strings.Builder
	for _, o := range d.Ops {
		switch o.Name {
		case "Print":
			b.WriteString(o.Text)
		case "Println":
			b.WriteString(o.Text)
			b.WriteByte('\n')
		}
	}
	return strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
}

// Reset forgets the recorded calls.
func (d *Display) Reset() {
	d.Lock()
	defer d.Unlock()
	d.Ops = nil
}

// Voltage is a fake render.VoltageSource.
type Voltage struct {
	Raw  int
	Vref int
	Err  error
}

// ReadRaw implements render.VoltageSource.
func (v *Voltage) ReadRaw() (int, error) {
	return v.Raw, v.Err
}

// VrefMillivolts implements render.VoltageSource.
func (v *Voltage) VrefMillivolts() int {
	return v.Vref
}

// Input is a fake ui.InputSource fed with Push.
type Input struct {
	sync.Mutex
	pending []ui.Event
}

// Push queues events returned by the next PollEvents.
func (i *Input) Push(e ...ui.Event) {
	i.Lock()
	defer i.Unlock()
	i.pending = append(i.pending, e...)
}

// PollEvents implements ui.InputSource.
func (i *Input) PollEvents() []ui.Event {
	i.Lock()
	defer i.Unlock()
	out := i.pending
	i.pending = nil
	return out
}

// ErrDisplay is a canned display failure.
var ErrDisplay = errors.New("probetest: display failure")
