// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package adc0832 provides a device driver for the ADC0832 8-bit SPI ADC.
package adc0832

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/phmon/gpio"
	"github.com/warthog618/phmon/spi"
)

// ErrMismatch indicates the LSB first copy of a conversion did not match
// the MSB first copy.
var ErrMismatch = errors.New("conversion mismatch")

// ADC0832 reads ADC values from a connected ADC0832.
// The two data pins, di and do, may be tied and connected to a single GPIO pin.
type ADC0832 struct {
	*spi.SPI
	// time to allow mux to settle after clocking out ODD/SIGN
	tset time.Duration
}

// New creates a ADC0832 on the given BCM GPIO pins.
func New(tclk, tset time.Duration, sclk, ssz, mosi, miso int) (*ADC0832, error) {
	s, err := spi.New(tclk, sclk, ssz, mosi, miso)
	if err != nil {
		return nil, err
	}
	return NewFromSPI(s, tset), nil
}

// NewFromSPI creates a ADC0832 on an existing bus.
func NewFromSPI(s *spi.SPI, tset time.Duration) *ADC0832 {
	return &ADC0832{s, tset}
}

// Read returns the value of a single channel.
func (adc *ADC0832) Read(ch int) (uint8, error) {
	return adc.read(ch, gpio.High)
}

// ReadDifferential returns the value of a differential pair.
func (adc *ADC0832) ReadDifferential(ch int) (uint8, error) {
	return adc.read(ch, gpio.Low)
}

func (adc *ADC0832) read(ch int, sgl gpio.Level) (uint8, error) {
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
	adc.ClockOut(sgl)       // SGL/DIFZ
	adc.ClockOut(ch != 0)   // ODD/Sign
	// mux settling
	adc.Mosi.Input()
	time.Sleep(adc.tset)
	adc.Sclk.High()
	var d uint8
	for i := 0; i < 8; i++ {
		d = d << 1
		if adc.ClockIn() {
			d = d | 0x01
		}
	}
	// the device then repeats bits 1 to 7, LSB first
	var r uint8
	for i := uint(1); i < 8; i++ {
		if adc.ClockIn() {
			r |= 1 << i
		}
	}
	if r != d&^0x01 {
		return 0, fmt.Errorf("%w: channel %d read 0x%02x then 0x%02x", ErrMismatch, ch, d, r|d&0x01)
	}
	return d, nil
}

// Channel is a single ended input of the ADC.
type Channel struct {
	adc *ADC0832
	ch  int
}

// Channel returns the single ended input ch.
func (adc *ADC0832) Channel(ch int) Channel {
	return Channel{adc, ch}
}

// Read returns a conversion of the channel.
func (c Channel) Read() (int, error) {
	v, err := c.adc.Read(c.ch)
	return int(v), err
}
