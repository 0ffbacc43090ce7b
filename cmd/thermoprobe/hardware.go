// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewirereg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/ds248x"
	"periph.io/x/devices/v3/serlcd"
	"periph.io/x/devices/v3/ssd1306"

	"github.com/GermanBionicSystems/thermoprobe/battery"
	"github.com/GermanBionicSystems/thermoprobe/buttons"
	"github.com/GermanBionicSystems/thermoprobe/config"
	"github.com/GermanBionicSystems/thermoprobe/console"
	"github.com/GermanBionicSystems/thermoprobe/framebuf"
	"github.com/GermanBionicSystems/thermoprobe/render"
	"github.com/GermanBionicSystems/thermoprobe/textlcd"
	"github.com/GermanBionicSystems/thermoprobe/ui"
)

// screen is a render.Display that can be released.
type screen interface {
	render.Display
	conn.Resource
}

// hardware opens the buses and devices named in the configuration and
// releases them in reverse order.
type hardware struct {
	logger *slog.Logger
	i2c    map[string]i2c.BusCloser
	halt   []conn.Resource
	close  []func() error
}

func newHardware(logger *slog.Logger) *hardware {
	return &hardware{logger: logger, i2c: map[string]i2c.BusCloser{}}
}

// Close halts every device then closes every bus.
func (h *hardware) Close() error {
	var errs []error
	for i := len(h.halt) - 1; i >= 0; i-- {
		if err := h.halt[i].Halt(); err != nil {
			errs = append(errs, fmt.Errorf("failed to halt %s: %w", h.halt[i], err))
		}
	}
	for i := len(h.close) - 1; i >= 0; i-- {
		if err := h.close[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// i2cBus opens an I²C bus once; devices sharing a bus share the handle.
func (h *hardware) i2cBus(name string) (i2c.Bus, error) {
	if b, ok := h.i2c[name]; ok {
		return b, nil
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C bus %q: %w", name, err)
	}
	h.i2c[name] = b
	h.close = append(h.close, b.Close)
	return b, nil
}

func (h *hardware) oneWire(cfg *config.OneWireConfig) (onewire.Bus, error) {
	if cfg.Bus != config.DS248x {
		b, err := onewirereg.Open(cfg.Bus)
		if err != nil {
			return nil, fmt.Errorf("failed to open 1-wire bus %q: %w", cfg.Bus, err)
		}
		h.close = append(h.close, b.Close)
		return b, nil
	}
	ib, err := h.i2cBus(cfg.I2CBus)
	if err != nil {
		return nil, err
	}
	d, err := ds248x.New(ib, cfg.Addr, &ds248x.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ds248x: %w", err)
	}
	h.halt = append(h.halt, d)
	return d, nil
}

func (h *hardware) display(cfg *config.DisplayConfig) (screen, error) {
	switch cfg.Kind {
	case config.Console:
		d := console.New(&console.Opts{Color: cfg.Color, Swatch: true})
		h.halt = append(h.halt, d)
		return d, nil
	case config.SSD1306:
		b, err := h.i2cBus(cfg.I2CBus)
		if err != nil {
			return nil, err
		}
		// ssd1306 only supports the default address.
		if cfg.Addr != 0x3c {
			h.logger.Warn("ignoring display address", "addr", cfg.Addr)
		}
		opts := ssd1306.DefaultOpts
		opts.W, opts.H = cfg.Width, cfg.Height
		drv, err := ssd1306.NewI2C(b, &opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ssd1306: %w", err)
		}
		fo := framebuf.Opts{Points: cfg.Points}
		if cfg.Font != "" {
			if fo.TTF, err = os.ReadFile(cfg.Font); err != nil {
				_ = drv.Halt()
				return nil, fmt.Errorf("failed to read font: %w", err)
			}
		}
		d, err := framebuf.New(drv, &fo)
		if err != nil {
			_ = drv.Halt()
			return nil, err
		}
		h.halt = append(h.halt, d)
		return d, nil
	case config.SerLCD:
		b, err := h.i2cBus(cfg.I2CBus)
		if err != nil {
			return nil, err
		}
		lcd := serlcd.NewConn(&i2c.Dev{Bus: b, Addr: cfg.Addr}, cfg.Rows, cfg.Cols)
		if err := lcd.Display(true); err != nil {
			return nil, fmt.Errorf("failed to initialize serlcd: %w", err)
		}
		d := textlcd.New(lcd, &textlcd.Opts{Degree: textlcd.DefaultOpts.Degree, Compact: true})
		h.halt = append(h.halt, d)
		return d, nil
	}
	return nil, fmt.Errorf("unknown display %q", cfg.Kind)
}

var adcChannels = [...]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// battery returns nil when the battery is not monitored.
func (h *hardware) battery(cfg *config.BatteryConfig) (render.VoltageSource, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	b, err := h.i2cBus(cfg.I2CBus)
	if err != nil {
		return nil, err
	}
	adc, err := ads1x15.NewADS1115(b, &ads1x15.Opts{I2cAddress: cfg.Addr})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ads1115: %w", err)
	}
	p, err := adc.PinForChannel(adcChannels[cfg.Channel], 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("failed to configure ads1115: %w", err)
	}
	d, err := battery.New(p, &battery.Opts{
		VrefMillivolts: cfg.VrefMillivolts,
		Scale:          physic.ElectricPotential(cfg.ScaleMillivolts) * physic.MilliVolt,
	})
	if err != nil {
		_ = p.Halt()
		return nil, err
	}
	h.halt = append(h.halt, d)
	return d, nil
}

// noButtons is the input of a probe without buttons.
type noButtons struct{}

func (noButtons) PollEvents() []ui.Event { return nil }

func (h *hardware) buttons(cfg *config.ButtonsConfig) (ui.InputSource, error) {
	pins := map[ui.Button]gpio.PinIn{}
	for b, name := range map[ui.Button]string{ui.Button1: cfg.Button1, ui.Button2: cfg.Button2} {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("failed to find %s pin %q", b, name)
		}
		pins[b] = p
	}
	if len(pins) == 0 {
		return noButtons{}, nil
	}
	d, err := buttons.New(pins, &buttons.Opts{Debounce: cfg.Debounce, Clock: clockwork.NewRealClock(), Logger: h.logger})
	if err != nil {
		return nil, err
	}
	h.halt = append(h.halt, d)
	return d, nil
}
