// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermoprobe is a multi-probe 1-wire thermometer built on periph.
//
// The sensor package discovers the probes, sample aggregates a cycle of
// readings, ui holds the state changed by the buttons and render draws the
// screen. probe ties them together in a cooperative loop. The remaining
// packages are the hardware backends: ds18b20, battery, buttons and the
// console, framebuf and textlcd screens.
//
// The executable is in cmd/thermoprobe.
package thermoprobe
