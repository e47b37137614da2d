// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package spi provides a bit bashed SPI master over GPIO lines.
package spi

import (
	"sync"
	"time"

	"github.com/warthog618/phmon/gpio"
)

// Line is the subset of a gpio.Pin used to drive the bus.
type Line interface {
	Input()
	Output()
	High()
	Low()
	Write(l gpio.Level)
	Read() gpio.Level
}

// SPI is a device connected via three or four GPIO lines.
// Mosi and Miso may be the same line for devices with a shared data pin.
// This is unrelated to the Linux SPI drivers.
type SPI struct {
	Mu sync.Mutex
	// time between clock edges (i.e. half the cycle time)
	Tclk time.Duration
	Sclk Line
	Ssz  Line
	Mosi Line
	Miso Line
}

// New creates a SPI on the given BCM GPIO pins.
func New(tclk time.Duration, sclk, ssz, mosi, miso int) (*SPI, error) {
	var lines [4]Line
	for i, n := range []int{sclk, ssz, mosi, miso} {
		p, err := gpio.NewPin(n)
		if err != nil {
			return nil, err
		}
		lines[i] = p
	}
	return NewFromLines(tclk, lines[0], lines[1], lines[2], lines[3]), nil
}

// NewFromLines creates a SPI on already allocated lines.
func NewFromLines(tclk time.Duration, sclk, ssz, mosi, miso Line) *SPI {
	spi := &SPI{Tclk: tclk, Sclk: sclk, Ssz: ssz, Mosi: mosi, Miso: miso}
	// hold the device deselected until needed
	spi.Sclk.Low()
	spi.Sclk.Output()
	spi.Ssz.High()
	spi.Ssz.Output()
	return spi
}

// Close releases the output lines.
func (spi *SPI) Close() {
	spi.Mu.Lock()
	spi.Sclk.Input()
	spi.Ssz.Input()
	spi.Mosi.Input()
	spi.Mu.Unlock()
}

// ClockIn clocks in a data bit from Miso.
// The clock starts high and ends with the rising edge of the next clock.
// The caller must hold Mu.
func (spi *SPI) ClockIn() gpio.Level {
	time.Sleep(spi.Tclk)
	// the device writes on the falling edge
	spi.Sclk.Low()
	time.Sleep(spi.Tclk)
	b := spi.Miso.Read()
	spi.Sclk.High()
	return b
}

// ClockOut clocks out a data bit on Mosi.
// The clock starts low and ends with the falling edge of the next clock.
// The caller must hold Mu.
func (spi *SPI) ClockOut(l gpio.Level) {
	spi.Mosi.Write(l)
	time.Sleep(spi.Tclk)
	// the device reads on the rising edge
	spi.Sclk.High()
	time.Sleep(spi.Tclk)
	spi.Sclk.Low()
}
