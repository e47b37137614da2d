// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/phmon"
)

var errFake = errors.New("fake failure")

// clock advances only when slept on.
type clock struct {
	now     time.Time
	slept   []time.Duration
	onSleep func()
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	if c.onSleep != nil {
		c.onSleep()
	}
}

// input is an analog channel returning a settable value.
type input struct {
	value int
	err   error
	reads int
}

func (i *input) Read() (int, error) {
	i.reads++
	if i.err != nil {
		return 0, i.err
	}
	return i.value, nil
}

// bench tracks both pump lines and records any instant they are both high.
type bench struct {
	lines       [2]*line
	overlap     bool
	transitions []string
}

func newBench() *bench {
	b := &bench{}
	b.lines[0] = &line{b: b, name: "lower"}
	b.lines[1] = &line{b: b, name: "raise"}
	return b
}

func (b *bench) lower() *line { return b.lines[0] }

func (b *bench) raise() *line { return b.lines[1] }

type line struct {
	b    *bench
	name string
	high bool
	// number of rising edges
	pulses int
}

func (l *line) High() {
	if !l.high {
		l.pulses++
	}
	l.high = true
	l.b.transitions = append(l.b.transitions, l.name+" high")
	if l.b.lines[0].high && l.b.lines[1].high {
		l.b.overlap = true
	}
}

func (l *line) Low() {
	l.high = false
	l.b.transitions = append(l.b.transitions, l.name+" low")
}

type display struct {
	rows   [2]string
	col    int
	row    int
	err    error
	clears int
}

func (d *display) Clear() error {
	d.clears++
	d.rows = [2]string{}
	return d.err
}

func (d *display) MoveTo(col, row int) error {
	if d.err != nil {
		return d.err
	}
	if row < 0 || row > 1 {
		return fmt.Errorf("bad row %d", row)
	}
	d.col, d.row = col, row
	return nil
}

func (d *display) Write(text string) error {
	if d.err != nil {
		return d.err
	}
	d.rows[d.row] = d.rows[d.row][:min(d.col, len(d.rows[d.row]))] + text
	d.col += len(text)
	return nil
}

type env struct {
	temperature float64
	humidity    float64
	err         error
}

func (e *env) Measure() error {
	return e.err
}

func (e *env) Temperature() float64 {
	return e.temperature
}

func (e *env) Humidity() float64 {
	return e.humidity
}

type observer struct {
	phmon.NopObserver
	pressed      []phmon.Action
	modes        []bool
	readings     []float64
	doses        []phmon.Dose
	calibrations []phmon.CalibrationResult
	faults       []string
}

func (o *observer) Pressed(a phmon.Action) {
	o.pressed = append(o.pressed, a)
}

func (o *observer) ModeChanged(running bool) {
	o.modes = append(o.modes, running)
}

func (o *observer) Reading(ph float64) {
	o.readings = append(o.readings, ph)
}

func (o *observer) Dosed(d phmon.Dose) {
	o.doses = append(o.doses, d)
}

func (o *observer) Calibrated(r phmon.CalibrationResult) {
	o.calibrations = append(o.calibrations, r)
}

func (o *observer) Fault(source string, err error) {
	o.faults = append(o.faults, source)
}
