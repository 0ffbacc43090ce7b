// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jonboulle/clockwork"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/thermoprobe/ds18b20"
	"github.com/GermanBionicSystems/thermoprobe/probe"
	"github.com/GermanBionicSystems/thermoprobe/render"
	"github.com/GermanBionicSystems/thermoprobe/sensor"
	"github.com/GermanBionicSystems/thermoprobe/ui"
)

// run boots the probe and loops until ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	hw := newHardware(a.logger)
	defer func() {
		if cerr := hw.Close(); cerr != nil {
			a.logger.Warn("shutdown", "err", cerr)
		}
	}()

	bus, err := hw.oneWire(&a.cfg.OneWire)
	if err != nil {
		return err
	}
	scr, err := hw.display(&a.cfg.Display)
	if err != nil {
		return err
	}
	volt, err := hw.battery(&a.cfg.Battery)
	if err != nil {
		return err
	}
	in, err := hw.buttons(&a.cfg.Buttons)
	if err != nil {
		return err
	}

	if err := scr.Clear(); err != nil {
		a.logger.Warn("failed to clear screen", "err", err)
	}
	src := ds18b20.NewBus(bus)
	reg := sensor.Discover(src, &sensor.Opts{Resolution: a.cfg.OneWire.Resolution, Logger: a.logger})

	st := ui.NewState()
	d := &ui.Dispatcher{State: st, Count: reg.Count(), Screen: scr, Logger: a.logger}
	sched := render.New(scr, src, reg, st, volt, &render.Opts{Interval: a.cfg.Timing.Render, Logger: a.logger})
	clk := probe.NewClock(clockwork.NewRealClock())
	defer clk.Stop()

	a.logger.Info("running", "bus", src, "display", scr, "sensors", reg.Count())
	err = probe.New(clk, in, d, sched, &probe.Opts{PollInterval: a.cfg.Timing.Poll, Logger: a.logger}).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// scan prints the devices of the configured 1-wire bus.
func (a *app) scan(w io.Writer) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	hw := newHardware(a.logger)
	defer func() {
		if err := hw.Close(); err != nil {
			a.logger.Warn("shutdown", "err", err)
		}
	}()
	bus, err := hw.oneWire(&a.cfg.OneWire)
	if err != nil {
		return err
	}
	return scan(w, ds18b20.NewBus(bus))
}

// scan lists every device answering on src, including the ones the probe
// ignores.
func scan(w io.Writer, src sensor.TemperatureSource) error {
	addrs, err := src.Discover()
	t := table.New().Border(lipgloss.NormalBorder()).Headers("ADDRESS", "VALID", "FAMILY")
	for _, addr := range addrs {
		t.Row(sensor.Format(addr), yesNo(src.IsValid(addr)), ds18b20.FamilyOf(addr).String())
	}
	if _, werr := fmt.Fprintln(w, t.Render()); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		_, err = fmt.Fprintln(w, "no device found")
		return err
	}
	p, err := src.IsParasitePowered()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d device(s), parasite power: %s\n", len(addrs), yesNo(p))
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
