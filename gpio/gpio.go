// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package gpio provides memory mapped access to the BCM GPIO block on the
// Raspberry Pi.
//
// Only the operations the bath controller needs are supported: pin mode,
// level write and level read. Pins are identified by their BCM number.
//
//	if err := gpio.Open(); err != nil {
//		return err
//	}
//	defer gpio.Close()
//
//	pump, err := gpio.NewPin(17)
//	if err != nil {
//		return err
//	}
//	pump.Low()
//	pump.Output()
package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// Pin is a single GPIO line.
type Pin struct {
	pin      int
	fsel     int
	levelReg int
	clearReg int
	setReg   int
	mask     uint32
	// last level written or read
	shadow Level
}

// Level is the high (true) or low (false) level of a Pin.
type Level bool

// Mode is the function of a Pin.
type Mode int

// Pin modes, as encoded in the function select registers.
const (
	Input Mode = iota
	Output
	Alt5
	Alt4
	Alt0
	Alt1
	Alt2
	Alt3
)

// Pin levels.
const (
	Low  Level = false
	High Level = true
)

// MaxGPIOPin is one past the highest pin on the 40 pin header.
const MaxGPIOPin = 28

const (
	memLength = 4096
	// three bits per pin in the fsel registers
	modeMask uint32 = 7
)

var (
	// memlock covers read/modify/write of the mapped registers, and the
	// mapping itself. Single register reads and writes are atomic so
	// Read and Write skip it.
	memlock sync.Mutex
	mem     []uint32
	mem8    []byte
)

var (
	// ErrAlreadyOpen indicates the GPIO block is already mapped.
	ErrAlreadyOpen = errors.New("already open")
	// ErrNotOpen indicates a pin was requested before Open.
	ErrNotOpen = errors.New("not open")
	// ErrInvalidPin indicates a pin number outside the header.
	ErrInvalidPin = errors.New("invalid pin")
)

// NewPin creates a Pin for the BCM GPIO number.
// The pin keeps whatever mode and level it currently has.
func NewPin(pin int) (*Pin, error) {
	memlock.Lock()
	defer memlock.Unlock()
	if len(mem) == 0 {
		return nil, ErrNotOpen
	}
	if pin < 0 || pin >= MaxGPIOPin {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPin, pin)
	}
	// all header pins are in bank 0
	bank := pin / 32
	p := &Pin{
		pin:      pin,
		fsel:     pin / 10,
		setReg:   7 + bank,
		clearReg: 10 + bank,
		levelReg: 13 + bank,
		mask:     uint32(1) << uint(pin&0x1f),
	}
	p.shadow = mem[p.levelReg]&p.mask != 0
	return p, nil
}

// Pin returns the BCM number of the pin.
func (pin *Pin) Pin() int {
	return pin.pin
}

// Input sets the pin as an input.
func (pin *Pin) Input() {
	pin.SetMode(Input)
}

// Output sets the pin as an output.
func (pin *Pin) Output() {
	pin.SetMode(Output)
}

// High drives the pin high.
func (pin *Pin) High() {
	pin.Write(High)
}

// Low drives the pin low.
func (pin *Pin) Low() {
	pin.Write(Low)
}

// Toggle inverts the last level.
func (pin *Pin) Toggle() {
	pin.Write(!pin.shadow)
}

// Mode returns the mode in the function select register.
func (pin *Pin) Mode() Mode {
	shift := uint(pin.pin%10) * 3
	return Mode(mem[pin.fsel] >> shift & modeMask)
}

// SetMode sets the pin mode.
func (pin *Pin) SetMode(mode Mode) {
	shift := uint(pin.pin%10) * 3
	memlock.Lock()
	defer memlock.Unlock()
	mem[pin.fsel] = mem[pin.fsel]&^(modeMask<<shift) | uint32(mode)<<shift
}

// Shadow returns the last level written to, or read from, the pin.
func (pin *Pin) Shadow() Level {
	return pin.shadow
}

// Read returns the current level of the pin.
func (pin *Pin) Read() Level {
	level := Level(mem[pin.levelReg]&pin.mask != 0)
	pin.shadow = level
	return level
}

// Write sets the level of an output pin.
func (pin *Pin) Write(level Level) {
	if level == Low {
		mem[pin.clearReg] = pin.mask
	} else {
		mem[pin.setReg] = pin.mask
	}
	pin.shadow = level
}
