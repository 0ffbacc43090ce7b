// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ui holds the user-facing state of the probe and maps button events
// to state changes.
//
// Only the elapsed-seconds counter is shared with another goroutine (the
// one-second tick). The unit and the comparison target belong to the main
// loop.
package ui

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/GermanBionicSystems/thermoprobe/sample"
)

// DefaultTarget is the comparison slot selected at boot. Slot 1 is the
// baseline and is never a target.
const DefaultTarget = 2

// State is the mutable UI state.
//
// The zero value is not usable, use NewState.
type State struct {
	unit    sample.Unit
	target  int
	elapsed atomic.Uint64
}

// NewState returns the boot state: Celsius, target 2, zero seconds elapsed.
func NewState() *State {
	return &State{unit: sample.Celsius, target: DefaultTarget}
}

// Unit returns the display unit.
func (s *State) Unit() sample.Unit {
	return s.unit
}

// Target returns the comparison slot.
func (s *State) Target() int {
	return s.target
}

// Elapsed returns the number of ticks seen since boot.
//
// It is safe to call concurrently with Tick.
func (s *State) Elapsed() uint64 {
	return s.elapsed.Load()
}

// Tick advances the elapsed counter by one second. It wraps at 2^64.
//
// It is safe to call concurrently with Elapsed.
func (s *State) Tick() {
	s.elapsed.Add(1)
}

// CycleTarget moves the comparison target to the next slot, wrapping from
// count back to 2.
//
// It does nothing when fewer than two sensors are present.
func (s *State) CycleTarget(count int) {
	if count < 2 {
		return
	}
	if s.target >= count || s.target < DefaultTarget {
		s.target = DefaultTarget
		return
	}
	s.target++
}

// ToggleUnit flips between Celsius and Fahrenheit.
func (s *State) ToggleUnit() {
	if s.unit == sample.Celsius {
		s.unit = sample.Fahrenheit
	} else {
		s.unit = sample.Celsius
	}
}

// Button identifies a physical button.
type Button uint8

// Buttons of the probe.
const (
	// Button1 cycles the comparison target.
	Button1 Button = 1
	// Button2 toggles the unit.
	Button2 Button = 2
)

func (b Button) String() string {
	return "Button" + strconv.Itoa(int(b))
}

// EventKind is the type of a button event.
type EventKind uint8

// Event kinds.
const (
	Pressed EventKind = iota
	Released
)

func (k EventKind) String() string {
	if k == Released {
		return "Released"
	}
	return "Pressed"
}

// Event is a debounced button event.
type Event struct {
	Button Button
	Kind   EventKind
}

func (e Event) String() string {
	return e.Button.String() + " " + e.Kind.String()
}

// InputSource delivers debounced button events.
type InputSource interface {
	// PollEvents returns the events received since the last call. It never
	// blocks.
	PollEvents() []Event
}

// Clearer is the part of the display the dispatcher needs to invalidate the
// screen.
type Clearer interface {
	Clear() error
}

// Dispatcher applies button events to a State.
type Dispatcher struct {
	State *State
	// Count is the number of discovered sensors.
	Count int
	// Screen is cleared when the unit changes. It may be nil.
	Screen Clearer
	Logger *slog.Logger
}

// Dispatch applies one event. Only Pressed events have an effect.
func (d *Dispatcher) Dispatch(e Event) error {
	if e.Kind != Pressed {
		return nil
	}
	switch e.Button {
	case Button1:
		d.State.CycleTarget(d.Count)
		d.logger().Debug("comparison target", "slot", d.State.Target())
	case Button2:
		d.State.ToggleUnit()
		d.logger().Info("Show temp in " + d.State.Unit().String() + ".")
		if d.Screen != nil {
			if err := d.Screen.Clear(); err != nil {
				return fmt.Errorf("ui: failed to clear screen: %w", err)
			}
		}
	default:
		d.logger().Warn("unknown button", "button", e.Button)
	}
	return nil
}

// DispatchAll applies events in order and returns the first error.
//
// Every event is applied even after an error.
func (d *Dispatcher) DispatchAll(events []Event) error {
	var first error
	for _, e := range events {
		if err := d.Dispatch(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
