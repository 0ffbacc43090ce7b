// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18b20 talks to Maxim 1-wire thermometers (DS18B20, DS18S20,
// DS1822, DS1825, DS28EA00) sharing one bus.
//
// Bus implements sensor.TemperatureSource: conversions are started on all
// devices at once with a Skip ROM command, then each device's scratchpad is
// read individually.
//
// # Datasheet
//
// https://datasheets.maximintegrated.com/en/ds/DS18B20.pdf
package ds18b20

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/thermoprobe/sensor"
)

// Family code of the specific device type
type Family byte

func (f Family) String() string {
	switch f {
	case DS18S20:
		return "DS18S20"
	case DS1822:
		return "DS1822"
	case DS18B20:
		return "DS18B20"
	case DS1825:
		return "DS1825"
	case DS28EA00:
		return "DS28EA00"
	default:
		return "unknown"
	}
}

// Supported families.
const (
	DS18S20  Family = 0x10
	DS1822   Family = 0x22
	DS18B20  Family = 0x28
	DS1825   Family = 0x3B
	DS28EA00 Family = 0x42
)

// FamilyOf returns the family code of a device address.
func FamilyOf(a onewire.Address) Family {
	return Family(a & 0xFF)
}

// Known reports whether f is a supported thermometer.
func (f Family) Known() bool {
	switch f {
	case DS18S20, DS1822, DS18B20, DS1825, DS28EA00:
		return true
	}
	return false
}

// fixedResolution reports whether the device ignores the configuration
// register. The DS18S20 always converts in 750ms.
func (f Family) fixedResolution() bool {
	return f == DS18S20
}

// ConvertAll performs a conversion on all DS18B20 devices on the bus.
//
// During the conversion it places the bus in strong pull-up mode to power
// parasitic devices and returns when the conversions have completed. This time
// period is determined by the maximum resolution of all devices on the bus and
// must be provided.
func ConvertAll(o onewire.Bus, maxResolutionBits int) error {
	if maxResolutionBits < 9 || maxResolutionBits > 12 {
		return errors.New("ds18b20: invalid maxResolutionBits")
	}
	if err := o.Tx([]byte{0xcc, 0x44}, nil, onewire.StrongPullup); err != nil {
		return err
	}
	conversionSleep(maxResolutionBits)
	return nil
}

// IsParasitePowered reports whether at least one device on the bus is
// powered from the data line. Such devices pull the bus low on a Read Power
// Supply command.
func IsParasitePowered(o onewire.Bus) (bool, error) {
	var r [1]byte
	if err := o.Tx([]byte{0xcc, 0xb4}, r[:], onewire.WeakPullup); err != nil {
		return false, err
	}
	return r[0] == 0, nil
}

// New returns an object that communicates over 1-wire to the thermometer
// with the specified 64-bit address.
//
// resolutionBits must be in the range 9..12 and determines how many bits of
// precision the readings have. The resolution affects the conversion time:
// 9bits:94ms, 10bits:188ms, 11bits:375ms, 12bits:750ms.
//
// A resolution of 10 bits corresponds to 0.25C and tends to be a good
// compromise between conversion time and the device's inherent accuracy of
// +/-0.5C.
func New(o onewire.Bus, addr onewire.Address, resolutionBits int) (*Dev, error) {
	if resolutionBits < 9 || resolutionBits > 12 {
		return nil, errors.New("ds18b20: invalid resolutionBits")
	}
	d := &Dev{onewire: onewire.Dev{Bus: o, Addr: addr}, resolution: resolutionBits}
	if d.Family().fixedResolution() {
		d.resolution = 12
	}

	// Reading the scratchpad tells whether the device answers and how it is
	// configured.
	spad, err := d.readScratchpad()
	if err != nil {
		return nil, err
	}
	if d.Family().fixedResolution() || int(spad[4]>>5) == resolutionBits-9 {
		return d, nil
	}
	// Write TH, TL and the configuration register (datasheet p.6).
	if err := d.onewire.Tx([]byte{0x4e, 0, 0, byte((resolutionBits-9)<<5) | 0x1f}, nil); err != nil {
		return nil, err
	}
	// Copy the scratchpad to EEPROM.
	if err := d.onewire.TxPower([]byte{0x48}, nil); err != nil {
		return nil, err
	}
	sleep(10 * time.Millisecond)
	return d, nil
}

// Dev is a handle to one thermometer on a 1-wire bus.
type Dev struct {
	onewire    onewire.Dev // device on 1-wire bus
	resolution int         // resolution in bits (9..12)
}

// Family returns the device family.
func (d *Dev) Family() Family {
	return FamilyOf(d.onewire.Addr)
}

// Resolution returns the conversion resolution in bits.
func (d *Dev) Resolution() int {
	return d.resolution
}

func (d *Dev) String() string {
	return d.Family().String() + "{" + d.onewire.String() + "}"
}

// LastTemp reads the temperature resulting from the last conversion from the
// device.
//
// It is useful in combination with ConvertAll.
func (d *Dev) LastTemp() (physic.Temperature, error) {
	spad, err := d.readScratchpad()
	if err != nil {
		return 0, err
	}
	c := d.parseTemperature(spad)
	// The device powers up with 85°C. Reading it means no conversion happened,
	// usually for lack of power.
	if c == 85*physic.Celsius+physic.ZeroCelsius {
		return 0, busError("ds18b20: has not performed a temperature conversion (insufficient pull-up?)")
	}
	return c, nil
}

// parseTemperature decodes the scratchpad, with the extended resolution
// formula for the DS18S20.
func (d *Dev) parseTemperature(spad []byte) physic.Temperature {
	raw := int16(spad[1])<<8 | int16(spad[0])
	if d.Family() == DS18S20 && spad[7] != 0 {
		// TEMP_READ - 0.25 + (COUNT_PER_C - COUNT_REMAIN) / COUNT_PER_C, with
		// COUNT_PER_C fixed at 16.
		raw = ((raw & int16(-2)) << 3) + 12 - int16(spad[6])
	}
	// raw has 4 fractional bits, datasheet p.4.
	return physic.Temperature(raw)*physic.Kelvin/16 + physic.ZeroCelsius
}

// readScratchpad reads the 9 bytes of scratchpad and checks the CRC.
// It returns the 8 bytes of scratchpad data (excluding the CRC byte).
func (d *Dev) readScratchpad() ([]byte, error) {
	var spad [9]byte
	if err := d.onewire.Tx([]byte{0xbe}, spad[:]); err != nil {
		return nil, err
	}
	if !onewire.CheckCRC(spad[:]) {
		for _, s := range spad {
			if s != 0xff {
				return nil, busError("ds18b20: incorrect scratchpad CRC")
			}
		}
		return nil, busError("ds18b20: device did not respond")
	}
	return spad[:8], nil
}

// Bus is a set of thermometers sharing one 1-wire bus.
type Bus struct {
	mu   sync.Mutex
	bus  onewire.Bus
	devs map[onewire.Address]*Dev
}

// NewBus returns a Bus over o. No I/O is done until Discover.
func NewBus(o onewire.Bus) *Bus {
	return &Bus{bus: o, devs: map[onewire.Address]*Dev{}}
}

func (b *Bus) String() string {
	return "ds18b20.Bus{" + b.bus.String() + "}"
}

// Discover implements sensor.TemperatureSource.
//
// An empty bus is not an error.
func (b *Bus) Discover() ([]onewire.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	addrs, err := b.bus.Search(false)
	var nd onewire.NoDevicesError
	if errors.As(err, &nd) && nd.NoDevices() {
		return addrs, nil
	}
	if err != nil {
		return addrs, fmt.Errorf("ds18b20: search failed: %w", err)
	}
	return addrs, nil
}

// IsValid implements sensor.TemperatureSource.
func (b *Bus) IsValid(addr onewire.Address) bool {
	if addr == 0 {
		return false
	}
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(addr >> (8 * uint(i)))
	}
	return onewire.CheckCRC(buf[:])
}

// IsRecognizedFamily implements sensor.TemperatureSource.
func (b *Bus) IsRecognizedFamily(addr onewire.Address) bool {
	return FamilyOf(addr).Known()
}

// SetResolution implements sensor.ResolutionSetter.
func (b *Bus) SetResolution(addr onewire.Address, bits int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := New(b.bus, addr, bits)
	if err != nil {
		return err
	}
	b.devs[addr] = d
	return nil
}

// RequestConversion implements sensor.TemperatureSource.
//
// It waits for the slowest configured device. Without any configured device
// it waits for a 12 bits conversion.
func (b *Bus) RequestConversion() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bits := 9
	for _, d := range b.devs {
		bits = max(bits, d.resolution)
	}
	if len(b.devs) == 0 {
		bits = 12
	}
	return ConvertAll(b.bus, bits)
}

// ReadCelsius implements sensor.TemperatureSource.
func (b *Bus) ReadCelsius(addr onewire.Address) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.devs[addr]
	if d == nil {
		d = &Dev{onewire: onewire.Dev{Bus: b.bus, Addr: addr}, resolution: 12}
	}
	t, err := d.LastTemp()
	if err != nil {
		return sensor.DisconnectedC, fmt.Errorf("%w: %w", sensor.ErrDisconnected, err)
	}
	return t.Celsius(), nil
}

// IsParasitePowered implements sensor.TemperatureSource.
func (b *Bus) IsParasitePowered() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return IsParasitePowered(b.bus)
}

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

// conversionSleep sleeps for the time a conversion takes, which depends
// on the resolution:
// 9bits:94ms, 10bits:188ms, 11bits:376ms, 12bits:752ms, datasheet p.6.
func conversionSleep(bits int) {
	sleep((94 << uint(bits-9)) * time.Millisecond)
}

var sleep = time.Sleep

var _ sensor.TemperatureSource = &Bus{}
var _ sensor.ResolutionSetter = &Bus{}
