// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package mcp3w0c provides device drivers for MCP3004/3008/3204/3208 SPI ADCs.
package mcp3w0c

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/phmon/gpio"
	"github.com/warthog618/phmon/spi"
)

// ErrNoResponse indicates the device did not drive the null bit low,
// typically because it is absent or unpowered.
var ErrNoResponse = errors.New("no response from ADC")

// MCP3w0c reads ADC values from a Microchip MCP3xxx family device.
// Supported variants are MCP3004/3008/3204/3208.
// The w indicates the width of the device (0 => 10, 2 => 12)
// and the c the number of channels.
// The two data pins, Mosi and Miso, may be tied and connected to a single GPIO pin.
type MCP3w0c struct {
	*spi.SPI
	width uint
}

// New creates a MCP3w0c on the given BCM GPIO pins.
func New(tclk time.Duration, sclk, ssz, mosi, miso int, width uint) (*MCP3w0c, error) {
	s, err := spi.New(tclk, sclk, ssz, mosi, miso)
	if err != nil {
		return nil, err
	}
	return NewFromSPI(s, width), nil
}

// NewFromSPI creates a MCP3w0c on an existing bus.
func NewFromSPI(s *spi.SPI, width uint) *MCP3w0c {
	return &MCP3w0c{s, width}
}

// NewMCP3008 creates a MCP3008.
func NewMCP3008(tclk time.Duration, sclk, ssz, mosi, miso int) (*MCP3w0c, error) {
	return New(tclk, sclk, ssz, mosi, miso, 10)
}

// NewMCP3208 creates a MCP3208.
func NewMCP3208(tclk time.Duration, sclk, ssz, mosi, miso int) (*MCP3w0c, error) {
	return New(tclk, sclk, ssz, mosi, miso, 12)
}

// Width returns the number of bits in a conversion.
func (adc *MCP3w0c) Width() uint {
	return adc.width
}

// Read returns the value of a single channel.
func (adc *MCP3w0c) Read(ch int) (uint16, error) {
	return adc.read(ch, gpio.High)
}

// ReadDifferential returns the value of a differential pair.
func (adc *MCP3w0c) ReadDifferential(ch int) (uint16, error) {
	return adc.read(ch, gpio.Low)
}

func (adc *MCP3w0c) read(ch int, sgl gpio.Level) (uint16, error) {
	adc.Mu.Lock()
	defer adc.Mu.Unlock()
	adc.Ssz.High()
	adc.Sclk.Low()
	adc.Mosi.High()
	adc.Mosi.Output()
	time.Sleep(adc.Tclk)
	adc.Ssz.Low()
	defer adc.Ssz.High()

	adc.ClockOut(gpio.High) // Start
	adc.ClockOut(sgl)       // SGL/DIFFZ
	for i := 2; i >= 0; i-- {
		adc.ClockOut(ch>>uint(i)&0x01 == 0x01)
	}
	// mux settling
	adc.Mosi.Input()
	time.Sleep(adc.Tclk)
	adc.Sclk.High()
	if adc.ClockIn() {
		return 0, fmt.Errorf("%w: channel %d", ErrNoResponse, ch)
	}
	var d uint16
	for i := uint(0); i < adc.width; i++ {
		d = d << 1
		if adc.ClockIn() {
			d = d | 0x01
		}
	}
	return d, nil
}

// Channel is a single ended input of the ADC.
type Channel struct {
	adc *MCP3w0c
	ch  int
}

// Channel returns the single ended input ch.
func (adc *MCP3w0c) Channel(ch int) Channel {
	return Channel{adc, ch}
}

// Read returns a conversion of the channel.
func (c Channel) Read() (int, error) {
	v, err := c.adc.Read(c.ch)
	return int(v), err
}
