// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import (
	"fmt"
	"time"
)

// AnalogInput is a single ADC channel.
type AnalogInput interface {
	Read() (int, error)
}

// Calibration is the linear map from an averaged raw probe reading to pH.
type Calibration struct {
	Gradient float64
	Offset   float64
}

// PH converts a raw reading to pH.
func (c Calibration) PH(raw float64) float64 {
	return raw*c.Gradient + c.Offset
}

// CalibrationResult describes a completed single point calibration.
type CalibrationResult struct {
	Time        time.Time
	Reference   float64
	Measured    float64
	Calibration Calibration
}

// Error returns the correction applied to the offset.
func (r CalibrationResult) Error() float64 {
	return r.Reference - r.Measured
}

// Sensor reads pH from a probe on an analog input.
//
// Each read averages a number of raw samples, with a settle delay between
// them to let the analog front end recover.
type Sensor struct {
	in     AnalogInput
	clock  Clock
	settle time.Duration
	cal    Calibration
}

// NewSensor creates a Sensor with the initial calibration.
func NewSensor(in AnalogInput, clock Clock, settle time.Duration, cal Calibration) *Sensor {
	return &Sensor{in: in, clock: clock, settle: settle, cal: cal}
}

// Calibration returns the current calibration.
func (s *Sensor) Calibration() Calibration {
	return s.cal
}

// Raw returns the average of repeats raw samples.
//
// A failed sample aborts the read, so a dead probe costs at most one sample.
func (s *Sensor) Raw(repeats int) (float64, error) {
	if repeats < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSampleCount, repeats)
	}
	total := 0
	for i := 0; i < repeats; i++ {
		v, err := s.in.Read()
		if err != nil {
			return 0, fmt.Errorf("%w: probe: %v", ErrSensorUnavailable, err)
		}
		total += v
		s.clock.Sleep(s.settle)
	}
	return float64(total) / float64(repeats), nil
}

// Read returns the pH averaged over repeats samples.
func (s *Sensor) Read(repeats int) (float64, error) {
	raw, err := s.Raw(repeats)
	if err != nil {
		return 0, err
	}
	return s.cal.PH(raw), nil
}

// Calibrate reads the probe, which must be sitting in a buffer of the
// reference pH, and shifts the offset so the reading matches the reference.
// The gradient is left untouched.
func (s *Sensor) Calibrate(reference float64, repeats int) (CalibrationResult, error) {
	measured, err := s.Read(repeats)
	if err != nil {
		return CalibrationResult{}, err
	}
	s.cal.Offset += reference - measured
	return CalibrationResult{
		Time:        s.clock.Now(),
		Reference:   reference,
		Measured:    measured,
		Calibration: s.cal,
	}, nil
}
