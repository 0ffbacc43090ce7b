// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the thermoprobe configuration file.
//
// Fields missing from the file keep the values of Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Display kinds.
const (
	Console = "console"
	SSD1306 = "ssd1306"
	SerLCD  = "serlcd"
)

// DS248x selects a DS2482/DS2483 I²C to 1-wire bridge instead of a 1-wire
// bus from the host registry.
const DS248x = "ds248x"

// Config represents the probe configuration.
type Config struct {
	OneWire OneWireConfig `yaml:"onewire"`
	Buttons ButtonsConfig `yaml:"buttons"`
	Battery BatteryConfig `yaml:"battery"`
	Display DisplayConfig `yaml:"display"`
	Timing  TimingConfig  `yaml:"timing"`
}

// OneWireConfig selects the sensor bus.
type OneWireConfig struct {
	// Bus is a onewirereg name, DS248x or empty for the first registered bus.
	Bus        string `yaml:"bus"`
	I2CBus     string `yaml:"i2c_bus"`
	Addr       uint16 `yaml:"addr"`
	Resolution int    `yaml:"resolution"` // 9 to 12 bits
}

// ButtonsConfig names the gpioreg pins of the two buttons. An empty name
// disables the button.
type ButtonsConfig struct {
	Button1  string        `yaml:"button1"`
	Button2  string        `yaml:"button2"`
	Debounce time.Duration `yaml:"debounce"`
}

// BatteryConfig selects the ADS1115 channel sensing the battery divider.
type BatteryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	I2CBus         string `yaml:"i2c_bus"`
	Addr           uint16 `yaml:"addr"`
	Channel        int    `yaml:"channel"`
	VrefMillivolts int    `yaml:"vref_mv"`
	// ScaleMillivolts is the divider output read as a full scale sample.
	ScaleMillivolts int `yaml:"scale_mv"`
}

// DisplayConfig selects the screen.
type DisplayConfig struct {
	Kind   string `yaml:"kind"`
	I2CBus string `yaml:"i2c_bus"`
	Addr   uint16 `yaml:"addr"`
	// Width and Height are in pixels for ssd1306.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Rows and Cols are in characters for serlcd.
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
	// Font is an optional TrueType file for ssd1306.
	Font   string  `yaml:"font"`
	Points float64 `yaml:"points"`
	// Color forces ANSI colours on the console.
	Color bool `yaml:"color"`
}

// TimingConfig holds the loop cadences.
type TimingConfig struct {
	Render time.Duration `yaml:"render"`
	Poll   time.Duration `yaml:"poll"`
}

// Default returns the configuration of the reference hardware: a DS2482 on
// the first I²C bus, buttons on GPIO35 and GPIO0 and a SSD1306 screen.
func Default() *Config {
	return &Config{
		OneWire: OneWireConfig{
			Bus:        DS248x,
			Addr:       0x18,
			Resolution: 10,
		},
		Buttons: ButtonsConfig{
			Button1:  "GPIO35",
			Button2:  "GPIO0",
			Debounce: 50 * time.Millisecond,
		},
		Battery: BatteryConfig{
			Addr:            0x48,
			VrefMillivolts:  1100,
			ScaleMillivolts: 3300,
		},
		Display: DisplayConfig{
			Kind:   SSD1306,
			Addr:   0x3c,
			Width:  128,
			Height: 64,
			Rows:   4,
			Cols:   20,
			Points: 10,
		},
		Timing: TimingConfig{
			Render: time.Second,
			Poll:   10 * time.Millisecond,
		},
	}
}

// Load reads filename on top of Default. A missing file is not an error.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: failed to marshal: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", filename, err)
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if r := c.OneWire.Resolution; r < 9 || r > 12 {
		return fmt.Errorf("config: onewire.resolution must be between 9 and 12, got %d", r)
	}
	if c.Buttons.Debounce < 0 {
		return fmt.Errorf("config: buttons.debounce must not be negative, got %s", c.Buttons.Debounce)
	}
	if c.Battery.Enabled {
		if ch := c.Battery.Channel; ch < 0 || ch > 3 {
			return fmt.Errorf("config: battery.channel must be between 0 and 3, got %d", ch)
		}
		if c.Battery.VrefMillivolts <= 0 {
			return fmt.Errorf("config: battery.vref_mv must be positive, got %d", c.Battery.VrefMillivolts)
		}
		if c.Battery.ScaleMillivolts <= 0 {
			return fmt.Errorf("config: battery.scale_mv must be positive, got %d", c.Battery.ScaleMillivolts)
		}
	}
	switch c.Display.Kind {
	case Console:
	case SSD1306:
		if c.Display.Width <= 0 || c.Display.Height <= 0 {
			return fmt.Errorf("config: invalid display size %dx%d", c.Display.Width, c.Display.Height)
		}
	case SerLCD:
		if c.Display.Rows <= 0 || c.Display.Cols <= 0 {
			return fmt.Errorf("config: invalid display size %dx%d", c.Display.Cols, c.Display.Rows)
		}
	default:
		return fmt.Errorf("config: unknown display.kind %q", c.Display.Kind)
	}
	if c.Timing.Render <= 0 || c.Timing.Poll <= 0 {
		return errors.New("config: timing.render and timing.poll must be positive")
	}
	return nil
}
