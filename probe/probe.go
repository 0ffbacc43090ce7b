// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package probe runs the main loop of the thermometer: poll the buttons,
// redraw the screen when due, and count seconds from a one-second tick.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/GermanBionicSystems/thermoprobe/render"
	"github.com/GermanBionicSystems/thermoprobe/ui"
)

// Clock is the time base of the device.
type Clock interface {
	// NowMillis returns the milliseconds elapsed since boot.
	NowMillis() uint64
	// Ticks delivers one value per second. Ticks are dropped when the
	// receiver falls behind.
	Ticks() <-chan time.Time
	// After waits for d then sends the current time.
	After(d time.Duration) <-chan time.Time
}

// TickClock implements Clock on top of a clockwork.Clock.
type TickClock struct {
	clk    clockwork.Clock
	start  time.Time
	ticker clockwork.Ticker
}

// NewClock returns a Clock whose boot time is now. Call Stop to release the
// ticker.
func NewClock(clk clockwork.Clock) *TickClock {
	return &TickClock{
		clk:    clk,
		start:  clk.Now(),
		ticker: clk.NewTicker(time.Second),
	}
}

// NowMillis implements Clock.
func (c *TickClock) NowMillis() uint64 {
	return uint64(c.clk.Since(c.start) / time.Millisecond)
}

// Ticks implements Clock.
func (c *TickClock) Ticks() <-chan time.Time {
	return c.ticker.Chan()
}

// After implements Clock.
func (c *TickClock) After(d time.Duration) <-chan time.Time {
	return c.clk.After(d)
}

// Stop stops the one-second ticker.
func (c *TickClock) Stop() {
	c.ticker.Stop()
}

// Opts contains the options of a Device.
type Opts struct {
	// PollInterval is the pause between two iterations of the main loop.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	PollInterval: 10 * time.Millisecond,
}

// Device ties the input, the UI state and the screen together.
type Device struct {
	clock    Clock
	input    ui.InputSource
	dispatch *ui.Dispatcher
	sched    *render.Scheduler
	poll     time.Duration
	logger   *slog.Logger
}

// New returns a Device. The Dispatcher's State is the one ticked by Run.
func New(c Clock, in ui.InputSource, d *ui.Dispatcher, s *render.Scheduler, opts *Opts) *Device {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev := &Device{
		clock:    c,
		input:    in,
		dispatch: d,
		sched:    s,
		poll:     opts.PollInterval,
		logger:   opts.Logger,
	}
	if dev.logger == nil {
		dev.logger = slog.Default()
	}
	if dev.poll <= 0 {
		dev.poll = DefaultOpts.PollInterval
	}
	return dev
}

// Step runs one iteration of the main loop: apply pending button events,
// then render if due.
//
// It returns whether a render cycle ran. Errors are not fatal; the next Step
// starts afresh.
func (d *Device) Step() (bool, error) {
	errIn := d.dispatch.DispatchAll(d.input.PollEvents())
	rendered, errOut := d.sched.MaybeRender(d.clock.NowMillis())
	return rendered, errors.Join(errIn, errOut)
}

// Run counts seconds and steps the main loop until ctx is done.
//
// It always returns ctx.Err().
func (d *Device) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.tick(ctx)
	}()
	defer wg.Wait()

	for {
		if _, err := d.Step(); err != nil {
			d.logger.Error("step failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(d.poll):
		}
	}
}

func (d *Device) tick(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.clock.Ticks():
			d.dispatch.State.Tick()
		}
	}
}
