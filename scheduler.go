// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import "time"

// ShouldAdjust returns true once elapsed has passed the interval.
func ShouldAdjust(elapsed, interval time.Duration) bool {
	return elapsed > interval
}

// DeadBand is a tolerance window around a target pH.
type DeadBand struct {
	Target float64
	Band   float64
}

// Correction returns the pump needed to bring ph back toward the target.
// The edges of the window count as in tolerance.
func (db DeadBand) Correction(ph float64) (Pump, bool) {
	switch {
	case ph > db.Target+db.Band:
		return LowerPump, true
	case ph < db.Target-db.Band:
		return RaisePump, true
	}
	return noPump, false
}
