// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package lcd drives a HD44780 character display through a PCF8574 I2C
// backpack, using the controller's 4-bit interface.
//
// The backpack maps its port to the display as
//
//	P7..P4  D7..D4
//	P3      backlight
//	P2      E
//	P1      R/W (held low)
//	P0      RS
package lcd

import (
	"errors"
	"fmt"
	"time"
)

// Bus writes to a device on an I2C bus.
// It is satisfied by a reef-pi i2c.Bus.
type Bus interface {
	WriteBytes(addr byte, value []byte) error
}

// DefaultAddr is the usual address of a PCF8574 backpack.
const DefaultAddr = 0x27

// ErrInvalidPosition indicates a MoveTo outside the display.
var ErrInvalidPosition = errors.New("invalid position")

const (
	modeCmd  byte = 0x00
	modeData byte = 0x01
	enable   byte = 0x04
	light    byte = 0x08

	cmdClear       = 0x01
	cmdHome        = 0x02
	cmdEntryMode   = 0x04
	cmdDisplay     = 0x08
	cmdFunctionSet = 0x20
	cmdSetDDRAM    = 0x80

	entryLeft   = 0x02
	displayOn   = 0x04
	twoLine     = 0x08
	execTime    = 50 * time.Microsecond
	clearTime   = 2 * time.Millisecond
	powerOnTime = 50 * time.Millisecond
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// LCD is a character display.
type LCD struct {
	bus       Bus
	addr      byte
	cols      int
	rows      int
	backlight byte
	sleep     func(time.Duration)
}

// Option modifies the construction of an LCD.
type Option func(*LCD)

// WithSize sets the geometry of the display.
// The default is 16 columns by 2 rows.
func WithSize(cols, rows int) Option {
	return func(l *LCD) {
		l.cols = cols
		l.rows = rows
	}
}

// WithBacklight sets the initial state of the backlight.
func WithBacklight(on bool) Option {
	return func(l *LCD) {
		l.backlight = 0
		if on {
			l.backlight = light
		}
	}
}

// New initialises the display at addr on the bus and clears it.
func New(bus Bus, addr byte, options ...Option) (*LCD, error) {
	l := &LCD{
		bus:       bus,
		addr:      addr,
		cols:      16,
		rows:      2,
		backlight: light,
		sleep:     time.Sleep,
	}
	for _, option := range options {
		option(l)
	}
	if l.rows < 1 || l.rows > len(rowOffsets) || l.cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d display", ErrInvalidPosition, l.cols, l.rows)
	}
	if err := l.init(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LCD) init() error {
	l.sleep(powerOnTime)
	// 0x33 then 0x32 walks the controller from any state into 4-bit mode
	for _, c := range []byte{
		0x33,
		0x32,
		cmdEntryMode | entryLeft,
		cmdDisplay | displayOn,
		cmdFunctionSet | twoLine,
		cmdHome,
	} {
		if err := l.send(c, modeCmd); err != nil {
			return err
		}
	}
	return l.Clear()
}

// Cols returns the number of columns.
func (l *LCD) Cols() int {
	return l.cols
}

// Rows returns the number of rows.
func (l *LCD) Rows() int {
	return l.rows
}

// Clear blanks the display and homes the cursor.
func (l *LCD) Clear() error {
	if err := l.send(cmdClear, modeCmd); err != nil {
		return err
	}
	l.sleep(clearTime)
	return nil
}

// MoveTo positions the cursor.
func (l *LCD) MoveTo(col, row int) error {
	if row < 0 || row >= l.rows || col < 0 || col >= l.cols {
		return fmt.Errorf("%w: (%d, %d)", ErrInvalidPosition, col, row)
	}
	return l.send(cmdSetDDRAM|(rowOffsets[row]+byte(col)), modeCmd)
}

// Write writes text from the cursor.
// Bytes are written as is, so characters outside ASCII are taken from the
// controller's character ROM.
func (l *LCD) Write(text string) error {
	for i := 0; i < len(text); i++ {
		if err := l.send(text[i], modeData); err != nil {
			return err
		}
	}
	return nil
}

// SetBacklight turns the backlight on or off.
func (l *LCD) SetBacklight(on bool) error {
	WithBacklight(on)(l)
	if err := l.bus.WriteBytes(l.addr, []byte{l.backlight}); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	return nil
}

// send writes b as two nibbles, each latched on the falling edge of E.
func (l *LCD) send(b, mode byte) error {
	hi := b&0xf0 | l.backlight | mode
	lo := b<<4 | l.backlight | mode
	if err := l.bus.WriteBytes(l.addr, []byte{hi | enable, hi, lo | enable, lo}); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	l.sleep(execTime)
	return nil
}
