// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package spitest provides a scripted device for testing SPI drivers.
package spitest

import (
	"time"

	"github.com/warthog618/phmon/gpio"
	"github.com/warthog618/phmon/spi"
)

// Device records what the master clocks out on Mosi and replies on Miso
// with a scripted sequence of bits, one per read.
type Device struct {
	// Out holds the levels written to Mosi while selected.
	Out []gpio.Level
	// In is the reply, consumed one bit per Miso read.
	// Reads past the end return Idle.
	In   []gpio.Level
	Idle gpio.Level
	// Selects counts the falling edges of Ssz.
	Selects  int
	selected bool
}

// Bits converts v to its width most significant bits, MSB first.
func Bits(v uint, width int) []gpio.Level {
	bb := make([]gpio.Level, width)
	for i := range bb {
		bb[i] = v>>uint(width-1-i)&1 == 1
	}
	return bb
}

// SPI returns a SPI with a zero clock period wired to the device.
func (d *Device) SPI() *spi.SPI {
	return spi.NewFromLines(time.Duration(0),
		&line{}, &ssz{d: d}, &mosi{d: d}, &miso{d: d})
}

type line struct {
	level gpio.Level
}

func (l *line) Input() {}

func (l *line) Output() {}

func (l *line) High() { l.Write(gpio.High) }

func (l *line) Low() { l.Write(gpio.Low) }

func (l *line) Write(lv gpio.Level) { l.level = lv }

func (l *line) Read() gpio.Level { return l.level }

type ssz struct {
	line
	d *Device
}

func (s *ssz) High() { s.Write(gpio.High) }

func (s *ssz) Low() { s.Write(gpio.Low) }

func (s *ssz) Write(lv gpio.Level) {
	if !lv && s.level {
		s.d.Selects++
	}
	s.level = lv
	s.d.selected = bool(!lv)
}

type mosi struct {
	line
	d *Device
}

func (m *mosi) High() { m.Write(gpio.High) }

func (m *mosi) Low() { m.Write(gpio.Low) }

func (m *mosi) Write(lv gpio.Level) {
	m.level = lv
	if m.d.selected {
		m.d.Out = append(m.d.Out, lv)
	}
}

type miso struct {
	line
	d *Device
}

func (m *miso) Read() gpio.Level {
	if len(m.d.In) == 0 {
		return m.d.Idle
	}
	b := m.d.In[0]
	m.d.In = m.d.In[1:]
	return b
}
