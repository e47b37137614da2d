// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package phmon holds the pH bath at a target by dripping acid or base from
// two reservoirs, driven by a single analog button ladder and a pH probe.
//
// The package is the control core only. Hardware is reached through small
// capability interfaces (AnalogInput, Line, Environment and Display) which
// the gpio, spi, lcd and dht packages implement on a Raspberry Pi.
//
// Example of use:
//
//	loop, err := phmon.NewLoop(phmon.DefaultConfig(), hw)
//	if err != nil {
//		panic(err)
//	}
//	loop.Run(ctx)
//
// The button ladder multiplexes five buttons onto one ADC channel:
//
//	########(3)###
//	#(1)##(2)#(5)#
//	########(4)###
//
// 1 Start, 2 Stop, 3 Prime pump 1, 4 Prime pump 2, 5 Calibrate.
package phmon

import "fmt"

// Action is the operation requested by a button.
type Action int

// Button actions, in descending order of ladder voltage.
const (
	None Action = iota
	Start
	Stop
	PrimePump1
	PrimePump2
	Calibrate
)

var actionNames = map[Action]string{
	None:       "none",
	Start:      "start",
	Stop:       "stop",
	PrimePump1: "prime1",
	PrimePump2: "prime2",
	Calibrate:  "calibrate",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Zone maps the half open sample range (Lower, Upper] to an Action.
type Zone struct {
	Lower  int
	Upper  int
	Action Action
}

// Contains returns true if the sample falls within the zone.
func (z Zone) Contains(sample int) bool {
	return z.Lower < sample && sample <= z.Upper
}

// Zones is a button ladder, ordered from highest to lowest range.
type Zones []Zone

// DefaultZones returns the ladder for the five button board on a 12-bit ADC.
//
// Nominal readings are Start 1480, Stop 700, Prime 1 370, Prime 2 140 and
// Calibrate 0. Calibrate covers [0, 80].
func DefaultZones() Zones {
	return Zones{
		{1000, 2000, Start},
		{500, 1000, Stop},
		{250, 500, PrimePump1},
		{80, 250, PrimePump2},
		{-1, 80, Calibrate},
	}
}

// NewZones validates and returns a ladder.
// Zones must be non-empty, strictly descending and must not overlap.
func NewZones(zz ...Zone) (Zones, error) {
	zones := Zones(zz)
	if err := zones.Validate(); err != nil {
		return nil, err
	}
	return zones, nil
}

// Validate checks the ladder invariants.
func (zz Zones) Validate() error {
	if len(zz) == 0 {
		return fmt.Errorf("%w: no zones", ErrInvalidZones)
	}
	seen := make(map[Action]bool)
	for i, z := range zz {
		if z.Action == None {
			return fmt.Errorf("%w: zone %d has no action", ErrInvalidZones, i)
		}
		if seen[z.Action] {
			return fmt.Errorf("%w: %s mapped twice", ErrInvalidZones, z.Action)
		}
		seen[z.Action] = true
		if z.Lower >= z.Upper {
			return fmt.Errorf("%w: %s bounds (%d, %d] inverted", ErrInvalidZones, z.Action, z.Lower, z.Upper)
		}
		if i > 0 && z.Upper > zz[i-1].Lower {
			return fmt.Errorf("%w: %s overlaps %s", ErrInvalidZones, z.Action, zz[i-1].Action)
		}
	}
	return nil
}

// Threshold returns the top of the ladder.
// Samples above it mean no button is pressed.
func (zz Zones) Threshold() int {
	if len(zz) == 0 {
		return 0
	}
	return zz[0].Upper
}

// Classify returns the action for a sample, or None if no zone contains it.
//
// Zones are scanned from highest to lowest and the first match wins.
func (zz Zones) Classify(sample int) Action {
	if sample > zz.Threshold() {
		return None
	}
	for _, z := range zz {
		if z.Contains(sample) {
			return z.Action
		}
	}
	return None
}
