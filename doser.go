// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import (
	"fmt"
	"time"
)

// Line is a digital output driving a pump.
// *gpio.Pin satisfies it.
type Line interface {
	High()
	Low()
}

// Pump identifies one of the two dosing pumps.
type Pump int

const (
	// LowerPump (pump 1) draws from the acid reservoir.
	LowerPump Pump = iota
	// RaisePump (pump 2) draws from the base reservoir.
	RaisePump

	noPump Pump = -1
)

func (p Pump) String() string {
	switch p {
	case LowerPump:
		return "lower"
	case RaisePump:
		return "raise"
	default:
		return fmt.Sprintf("pump(%d)", int(p))
	}
}

// Dose records a single drip.
type Dose struct {
	Time  time.Time
	Pump  Pump
	PH    float64
	Pulse time.Duration
}

// Doser drives the two pump lines. At most one pump is ever active.
type Doser struct {
	lines  [2]Line
	clock  Clock
	pulse  time.Duration
	active Pump
}

// NewDoser creates a Doser and forces both lines low.
func NewDoser(lower, raise Line, clock Clock, pulse time.Duration) *Doser {
	d := &Doser{
		lines:  [2]Line{lower, raise},
		clock:  clock,
		pulse:  pulse,
		active: noPump,
	}
	lower.Low()
	raise.Low()
	return d
}

// Pulse returns the drip duration.
func (d *Doser) Pulse() time.Duration {
	return d.pulse
}

// Active returns the running pump, if any.
func (d *Doser) Active() (Pump, bool) {
	return d.active, d.active != noPump
}

// Drip runs the pump for one pulse, blocking until it is off again.
func (d *Doser) Drip(p Pump) error {
	if err := d.Prime(p); err != nil {
		return err
	}
	d.clock.Sleep(d.pulse)
	d.Halt()
	return nil
}

// Prime switches the pump on and leaves it running until Halt.
// Priming a pump that is already running is a no-op.
func (d *Doser) Prime(p Pump) error {
	if p != LowerPump && p != RaisePump {
		return fmt.Errorf("unknown pump %d", int(p))
	}
	if d.active == p {
		return nil
	}
	if d.active != noPump {
		return fmt.Errorf("%w: %s running", ErrPumpBusy, d.active)
	}
	d.active = p
	d.lines[p].High()
	return nil
}

// Halt switches off whichever pump is running.
func (d *Doser) Halt() {
	if d.active == noPump {
		return
	}
	d.lines[d.active].Low()
	d.active = noPump
}
