// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import (
	"fmt"
	"time"
)

// Transition is a change in the state of the button ladder.
type Transition int

// Transitions reported by the Decoder.
const (
	NoTransition Transition = iota
	// Pressed is reported once the debounced sample confirms a zone.
	Pressed
	// Held is reported for each sample that remains in the pressed zone.
	Held
	// Released is reported when the sample leaves the pressed zone.
	Released
)

func (t Transition) String() string {
	switch t {
	case Pressed:
		return "pressed"
	case Held:
		return "held"
	case Released:
		return "released"
	default:
		return "none"
	}
}

// Event is a Transition of a particular button.
type Event struct {
	Transition Transition
	Action     Action
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Action, e.Transition)
}

type decoderState int

const (
	decoderIdle decoderState = iota
	decoderDebouncing
	decoderHeld
)

// Decoder converts a stream of button ladder samples into Events.
//
// A sample at or below the ladder threshold starts a debounce period.
// The first sample taken after the period must fall in the same zone to
// confirm the press. The press is then held until a sample leaves the zone.
// The Decoder does no sampling or sleeping of its own; it is driven by Update.
type Decoder struct {
	zones    Zones
	debounce time.Duration
	state    decoderState
	// the candidate while debouncing, else the held action.
	action Action
	since  time.Time
}

// NewDecoder creates a Decoder for the ladder.
func NewDecoder(zones Zones, debounce time.Duration) (*Decoder, error) {
	if err := zones.Validate(); err != nil {
		return nil, err
	}
	if debounce < 0 {
		return nil, fmt.Errorf("%w: negative debounce %v", ErrInvalidConfig, debounce)
	}
	return &Decoder{zones: zones, debounce: debounce}, nil
}

// Update feeds a sample taken at now into the Decoder.
func (d *Decoder) Update(now time.Time, sample int) Event {
	switch d.state {
	case decoderDebouncing:
		if now.Sub(d.since) < d.debounce {
			return Event{}
		}
		a := d.zones.Classify(sample)
		switch {
		case a == None:
			d.Reset()
		case a != d.action:
			// still settling - restart against the new zone
			d.action = a
			d.since = now
		default:
			d.state = decoderHeld
			return Event{Pressed, a}
		}
		return Event{}
	case decoderHeld:
		if d.zones.Classify(sample) == d.action {
			return Event{Held, d.action}
		}
		a := d.action
		d.Reset()
		return Event{Released, a}
	default:
		if sample > d.zones.Threshold() {
			return Event{}
		}
		a := d.zones.Classify(sample)
		if a == None {
			return Event{}
		}
		d.state = decoderDebouncing
		d.action = a
		d.since = now
		return Event{}
	}
}

// Debouncing returns true while a press awaits confirmation.
func (d *Decoder) Debouncing() bool {
	return d.state == decoderDebouncing
}

// Holding returns the action currently held, or None.
func (d *Decoder) Holding() Action {
	if d.state != decoderHeld {
		return None
	}
	return d.action
}

// Reset returns the Decoder to idle, dropping any press in progress.
func (d *Decoder) Reset() {
	d.state = decoderIdle
	d.action = None
	d.since = time.Time{}
}
