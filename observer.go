// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

// Observer is notified of what the Loop does.
// Calls are made from the Loop goroutine and must not block for long.
type Observer interface {
	Pressed(a Action)
	ModeChanged(running bool)
	Reading(ph float64)
	Environment(temperature, humidity float64)
	Dosed(d Dose)
	Calibrated(r CalibrationResult)
	Fault(source string, err error)
}

// NopObserver ignores everything.
// Embed it to implement only the calls of interest.
type NopObserver struct{}

// Pressed implements Observer.
func (NopObserver) Pressed(a Action) {}

// ModeChanged implements Observer.
func (NopObserver) ModeChanged(running bool) {}

// Reading implements Observer.
func (NopObserver) Reading(ph float64) {}

// Environment implements Observer.
func (NopObserver) Environment(temperature, humidity float64) {}

// Dosed implements Observer.
func (NopObserver) Dosed(d Dose) {}

// Calibrated implements Observer.
func (NopObserver) Calibrated(r CalibrationResult) {}

// Fault implements Observer.
func (NopObserver) Fault(source string, err error) {}

// Observers fans calls out to each Observer in turn.
type Observers []Observer

// Pressed implements Observer.
func (oo Observers) Pressed(a Action) {
	for _, o := range oo {
		o.Pressed(a)
	}
}

// ModeChanged implements Observer.
func (oo Observers) ModeChanged(running bool) {
	for _, o := range oo {
		o.ModeChanged(running)
	}
}

// Reading implements Observer.
func (oo Observers) Reading(ph float64) {
	for _, o := range oo {
		o.Reading(ph)
	}
}

// Environment implements Observer.
func (oo Observers) Environment(temperature, humidity float64) {
	for _, o := range oo {
		o.Environment(temperature, humidity)
	}
}

// Dosed implements Observer.
func (oo Observers) Dosed(d Dose) {
	for _, o := range oo {
		o.Dosed(d)
	}
}

// Calibrated implements Observer.
func (oo Observers) Calibrated(r CalibrationResult) {
	for _, o := range oo {
		o.Calibrated(r)
	}
}

// Fault implements Observer.
func (oo Observers) Fault(source string, err error) {
	for _, o := range oo {
		o.Fault(source, err)
	}
}
