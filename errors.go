// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import "errors"

var (
	// ErrSensorUnavailable indicates an analog or environment read failed.
	// The read is skipped and retried on a later cycle.
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrInvalidSampleCount indicates a read was requested with fewer than one sample.
	ErrInvalidSampleCount = errors.New("invalid sample count")

	// ErrInvalidZones indicates a button zone table that is inverted,
	// overlapping or not in descending order.
	ErrInvalidZones = errors.New("invalid button zones")

	// ErrPumpBusy indicates a pump was requested while the other is active.
	ErrPumpBusy = errors.New("pump busy")

	// ErrInvalidConfig indicates a configuration value that can never work.
	ErrInvalidConfig = errors.New("invalid config")
)
