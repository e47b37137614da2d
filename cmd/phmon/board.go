// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/reef-pi/rpi/i2c"
	"github.com/warthog618/go-gpiocdev"
	"github.com/warthog618/phmon"
	"github.com/warthog618/phmon/dht"
	"github.com/warthog618/phmon/gpio"
	"github.com/warthog618/phmon/lcd"
	"github.com/warthog618/phmon/spi/adc0832"
	"github.com/warthog618/phmon/spi/mcp3w0c"
)

// parts selects the devices opened by openBoard.
type parts int

const (
	adcPart parts = 1 << iota
	pumpPart
	displayPart
	envPart

	allParts = adcPart | pumpPart | displayPart | envPart
)

// board is the set of devices attached to the Pi.
type board struct {
	hw      phmon.Hardware
	closers []func() error
}

// scaled shifts readings from narrower ADCs up to the 12-bit range the
// button zones are defined over.
type scaled struct {
	in    phmon.AnalogInput
	shift uint
}

func (s scaled) Read() (int, error) {
	v, err := s.in.Read()
	return v << s.shift, err
}

// openBoard opens the selected devices.
// The display and environment sensor are optional, so failures to open
// them are logged and the board continues without them.
func openBoard(hc hwConfig, pp parts, log *slog.Logger) (*board, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}
	b := &board{closers: []func() error{gpio.Close}}
	if err := b.open(hc, pp, log); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *board) open(hc hwConfig, pp parts, log *slog.Logger) error {
	if pp&adcPart != 0 {
		if err := b.openADC(hc); err != nil {
			return err
		}
	}
	if pp&pumpPart != 0 {
		if err := b.openPumps(hc, log); err != nil {
			return err
		}
	}
	if pp&displayPart != 0 && hc.lcdAddr != 0 {
		if err := b.openDisplay(hc); err != nil {
			log.Warn("display unavailable", slog.Any("error", err))
		}
	}
	if pp&envPart != 0 && hc.envDir != "none" && hc.envDir != "" {
		dir := hc.envDir
		var err error
		if dir == "auto" {
			dir, err = dht.Find(dht.DevicesDir)
		}
		if err != nil {
			log.Warn("environment sensor unavailable", slog.Any("error", err))
		} else {
			b.hw.Environment = dht.New(dir)
		}
	}
	return nil
}

func (b *board) openADC(hc hwConfig) error {
	switch hc.chip {
	case "mcp3208", "mcp3008":
		width := uint(12)
		if hc.chip == "mcp3008" {
			width = 10
		}
		adc, err := mcp3w0c.New(hc.tclk, hc.sclk, hc.ssz, hc.mosi, hc.miso, width)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() error { adc.Close(); return nil })
		b.hw.Probe = scaled{adc.Channel(hc.phChannel), 12 - width}
		b.hw.Buttons = scaled{adc.Channel(hc.buttonsChan), 12 - width}
	case "adc0832":
		adc, err := adc0832.New(hc.tclk, hc.tset, hc.sclk, hc.ssz, hc.mosi, hc.miso)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() error { adc.Close(); return nil })
		b.hw.Probe = scaled{adc.Channel(hc.phChannel), 4}
		b.hw.Buttons = scaled{adc.Channel(hc.buttonsChan), 4}
	default:
		return fmt.Errorf("%w: unknown ADC '%s'", phmon.ErrInvalidConfig, hc.chip)
	}
	return nil
}

// cdevLine drives a pump through the GPIO character device.
type cdevLine struct {
	*gpiocdev.Line
	log *slog.Logger
}

func (l cdevLine) set(v int) {
	if err := l.SetValue(v); err != nil {
		l.log.Error("pump line write failed",
			slog.Int("offset", l.Offset()),
			slog.Any("error", err))
	}
}

func (l cdevLine) High() { l.set(1) }

func (l cdevLine) Low() { l.set(0) }

func (b *board) openPumps(hc hwConfig, log *slog.Logger) error {
	if hc.pumpChip != "" {
		return b.openCdevPumps(hc, log)
	}
	var pins [2]*gpio.Pin
	for i, n := range []int{hc.lower, hc.raise} {
		p, err := gpio.NewPin(n)
		if err != nil {
			return err
		}
		p.Low()
		p.Output()
		pins[i] = p
	}
	b.hw.Lower, b.hw.Raise = pins[0], pins[1]
	b.closers = append(b.closers, func() error {
		for _, p := range pins {
			p.Low()
		}
		return nil
	})
	return nil
}

func (b *board) openCdevPumps(hc hwConfig, log *slog.Logger) error {
	var lines [2]cdevLine
	for i, n := range []int{hc.lower, hc.raise} {
		l, err := gpiocdev.RequestLine(hc.pumpChip, n,
			gpiocdev.WithConsumer("phmon"),
			gpiocdev.AsOutput(0))
		if err != nil {
			if i > 0 {
				lines[0].Close()
			}
			return fmt.Errorf("pump line %d: %w", n, err)
		}
		lines[i] = cdevLine{l, log}
	}
	b.hw.Lower, b.hw.Raise = lines[0], lines[1]
	b.closers = append(b.closers, func() error {
		var errs []error
		for _, l := range lines {
			l.Low()
			errs = append(errs, l.Close())
		}
		return errors.Join(errs...)
	})
	return nil
}

func (b *board) openDisplay(hc hwConfig) error {
	bus, err := i2c.New()
	if err != nil {
		return err
	}
	d, err := lcd.New(bus, byte(hc.lcdAddr))
	if err != nil {
		bus.Close()
		return err
	}
	b.closers = append(b.closers, func() error {
		return errors.Join(d.Clear(), bus.Close())
	})
	b.hw.Display = d
	return nil
}

// Close closes the devices in reverse order of opening.
func (b *board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
