// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermoprobe shows the temperature of the DS18B20 probes on a 1-wire bus,
// the spread between them and the battery voltage.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GermanBionicSystems/thermoprobe/config"
)

// app is the state shared by the subcommands.
type app struct {
	cfgPath  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "thermoprobe",
		Short: "Multi-probe 1-wire thermometer",
		Long: `thermoprobe reads every DS18B20 family thermometer on a 1-wire bus and
shows each temperature, the spread between them and the difference to a
selected probe. One button cycles the compared probe, the other toggles
between Celsius and Fahrenheit.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "thermoprobe.yaml", "configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the thermometer (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "List the devices on the 1-wire bus",
		Long:  `Enumerate the 1-wire bus once and print the address, checksum validity and family of every device, then the power mode of the bus.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.scan(cmd.OutOrStdout())
		},
	})
	return root
}

// setup configures logging and loads the configuration.
func (a *app) setup(w io.Writer) error {
	logger, err := newLogger(w, a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
