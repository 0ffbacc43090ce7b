// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buttons turns active-low push buttons on GPIO pins into debounced
// ui events.
//
// One goroutine per pin waits for edges; events are queued and handed out by
// PollEvents without blocking.
package buttons

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/thermoprobe/ui"
)

// Opts contains the options of a Dev.
type Opts struct {
	// Debounce is the minimum time between two accepted edges of one pin.
	Debounce time.Duration
	// Clock timestamps edges. Defaults to the real clock.
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Debounce: 50 * time.Millisecond,
}

// queueSize is the number of events kept between two PollEvents calls.
const queueSize = 16

// edgeTimeout bounds WaitForEdge so Halt is noticed.
const edgeTimeout = 100 * time.Millisecond

// Dev implements ui.InputSource.
type Dev struct {
	clock    clockwork.Clock
	debounce time.Duration
	logger   *slog.Logger
	events   chan ui.Event
	stop     chan struct{}
	wg       sync.WaitGroup
	halt     sync.Once
	names    []string
}

// New configures every pin as a pulled-up input with edge detection and
// starts watching them.
func New(pins map[ui.Button]gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if len(pins) == 0 {
		return nil, errors.New("buttons: no pin")
	}
	d := &Dev{
		clock:    opts.Clock,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		events:   make(chan ui.Event, queueSize),
		stop:     make(chan struct{}),
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	for b, p := range pins {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			_ = d.Halt()
			return nil, fmt.Errorf("buttons: failed to configure %s for %s: %w", p, b, err)
		}
		d.names = append(d.names, b.String()+"="+p.String())
		d.wg.Add(1)
		go d.watch(b, p)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("buttons%v", d.names)
}

// PollEvents implements ui.InputSource.
func (d *Dev) PollEvents() []ui.Event {
	var out []ui.Event
	for {
		select {
		case e := <-d.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// Halt implements conn.Resource. It stops watching the pins.
func (d *Dev) Halt() error {
	d.halt.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
	return nil
}

func (d *Dev) watch(b ui.Button, p gpio.PinIn) {
	defer d.wg.Done()
	last := ui.Released
	var lastEdge time.Time
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		if !p.WaitForEdge(edgeTimeout) {
			continue
		}
		now := d.clock.Now()
		if !lastEdge.IsZero() && now.Sub(lastEdge) < d.debounce {
			continue
		}
		lastEdge = now
		kind := ui.Released
		if p.Read() == gpio.Low {
			kind = ui.Pressed
		}
		if kind == last {
			continue
		}
		last = kind
		select {
		case d.events <- ui.Event{Button: b, Kind: kind}:
		default:
			d.logger.Warn("button event dropped", "button", b, "kind", kind)
		}
	}
}
