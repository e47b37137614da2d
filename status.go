// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Display is a character display.
type Display interface {
	Clear() error
	MoveTo(col, row int) error
	Write(text string) error
}

// Environment is a temperature and humidity sensor.
// Measure refreshes the values returned by Temperature and Humidity.
type Environment interface {
	Measure() error
	Temperature() float64
	Humidity() float64
}

// DisplayWidth is the number of columns on the status display.
const DisplayWidth = 16

// degree symbol in the HD44780 A00 character ROM.
const degree = "\xdf"

// Status is the information shown while running.
type Status struct {
	Temperature float64
	Humidity    float64
	// EnvOK is false if the environment could not be measured.
	EnvOK bool
	PH    float64
	// PHOK is false if the probe could not be read.
	PHOK bool
	// Remaining is the time until the next adjustment check.
	Remaining time.Duration
}

// Lines renders the status as the two display rows.
func (s Status) Lines() (string, string) {
	top := "--" + degree + "C   --%"
	if s.EnvOK {
		top = fmt.Sprintf("%.1f%sC   %d%%", s.Temperature, degree, int(s.Humidity))
	}
	ph := "--"
	if s.PHOK {
		ph = fmt.Sprintf("%.1f", s.PH)
	}
	return top, fmt.Sprintf("pH %s  %s", ph, FormatCountdown(s.Remaining))
}

// FormatCountdown formats d as HH:MM:SS, truncated to the second.
// Negative durations show as zero.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	hh, secs := secs/3600, secs%3600
	mm, ss := secs/60, secs%60
	return fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss)
}

// Center pads text with spaces to width, any odd space going on the right.
// Text longer than width is truncated.
func Center(text string, width int) string {
	if len(text) >= width {
		return text[:width]
	}
	pad := width - len(text)
	left := pad / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}

// StatusReporter renders centred text on a two row Display.
type StatusReporter struct {
	d     Display
	width int
}

// NewStatusReporter creates a StatusReporter for the display.
func NewStatusReporter(d Display) *StatusReporter {
	return &StatusReporter{d: d, width: DisplayWidth}
}

// Line writes text, centred, across the whole row.
func (r *StatusReporter) Line(row int, text string) error {
	if err := r.d.MoveTo(0, row); err != nil {
		return err
	}
	return r.d.Write(Center(text, r.width))
}

// Lines writes both rows.
func (r *StatusReporter) Lines(top, bottom string) error {
	return errors.Join(r.Line(0, top), r.Line(1, bottom))
}

// Status writes the running status.
func (r *StatusReporter) Status(s Status) error {
	return r.Lines(s.Lines())
}

// Clear blanks the display.
func (r *StatusReporter) Clear() error {
	return r.d.Clear()
}

type nopDisplay struct{}

func (nopDisplay) Clear() error { return nil }

func (nopDisplay) MoveTo(col, row int) error { return nil }

func (nopDisplay) Write(text string) error { return nil }
