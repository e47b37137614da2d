// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/phmon"
)

type rig struct {
	cfg     phmon.Config
	clock   *clock
	buttons *input
	probe   *input
	bench   *bench
	display *display
	env     *env
	obs     *observer
	loop    *phmon.Loop
}

func newRig(t *testing.T, mutate ...func(*phmon.Config)) *rig {
	t.Helper()
	cfg := phmon.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	r := &rig{
		cfg:     cfg,
		clock:   newClock(),
		buttons: &input{value: released},
		probe:   &input{value: 2100},
		bench:   newBench(),
		display: &display{},
		env:     &env{temperature: 23.46, humidity: 61.9},
		obs:     &observer{},
	}
	hw := phmon.Hardware{
		Buttons:     r.buttons,
		Probe:       r.probe,
		Lower:       r.bench.lower(),
		Raise:       r.bench.raise(),
		Environment: r.env,
		Display:     r.display,
	}
	loop, err := phmon.NewLoop(cfg, hw,
		phmon.WithClock(r.clock),
		phmon.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		phmon.WithObserver(r.obs))
	require.Nil(t, err)
	r.loop = loop
	return r
}

// step sets the button ladder and runs a cycle.
func (r *rig) step(st *phmon.State, buttons int) phmon.Cycle {
	r.buttons.value = buttons
	return r.loop.Step(st)
}

// click presses and releases a button.
func (r *rig) click(t *testing.T, st *phmon.State, buttons int, a phmon.Action) {
	t.Helper()
	c := r.step(st, buttons)
	require.Equal(t, phmon.Event{Transition: phmon.Pressed, Action: a}, c.Event)
	c = r.step(st, released)
	require.Equal(t, phmon.Event{Transition: phmon.Released, Action: a}, c.Event)
}

func TestNewLoop(t *testing.T) {
	b := newBench()
	hw := phmon.Hardware{
		Buttons: &input{},
		Probe:   &input{},
		Lower:   b.lower(),
		Raise:   b.raise(),
	}
	l, err := phmon.NewLoop(phmon.DefaultConfig(), hw)
	assert.Nil(t, err)
	assert.NotNil(t, l)

	cfg := phmon.DefaultConfig()
	cfg.Repeats = 0
	_, err = phmon.NewLoop(cfg, hw)
	assert.ErrorIs(t, err, phmon.ErrInvalidSampleCount)

	cfg = phmon.DefaultConfig()
	cfg.StatusInterval = 10*time.Second + time.Millisecond
	_, err = phmon.NewLoop(cfg, hw)
	assert.ErrorIs(t, err, phmon.ErrInvalidConfig)

	cfg = phmon.DefaultConfig()
	cfg.Zones = phmon.Zones{{Lower: 100, Upper: 50, Action: phmon.Start}}
	_, err = phmon.NewLoop(cfg, hw)
	assert.ErrorIs(t, err, phmon.ErrInvalidZones)

	hw.Probe = nil
	_, err = phmon.NewLoop(phmon.DefaultConfig(), hw)
	assert.ErrorIs(t, err, phmon.ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	assert.Nil(t, phmon.DefaultConfig().Validate())
	patterns := []struct {
		name   string
		mutate func(*phmon.Config)
		err    error
	}{
		{"period", func(c *phmon.Config) { c.Period = 0 }, phmon.ErrInvalidConfig},
		{"debounce", func(c *phmon.Config) { c.Debounce = -1 }, phmon.ErrInvalidConfig},
		{"drip", func(c *phmon.Config) { c.Drip = 0 }, phmon.ErrInvalidConfig},
		{"interval", func(c *phmon.Config) { c.Interval = 0 }, phmon.ErrInvalidConfig},
		{"status", func(c *phmon.Config) { c.StatusInterval = 0 }, phmon.ErrInvalidConfig},
		{"settle", func(c *phmon.Config) { c.Settle = -1 }, phmon.ErrInvalidConfig},
		{"band", func(c *phmon.Config) { c.Band = -0.1 }, phmon.ErrInvalidConfig},
		{"repeats", func(c *phmon.Config) { c.Repeats = 0 }, phmon.ErrInvalidSampleCount},
		{"calrepeats", func(c *phmon.Config) { c.CalibrationRepeats = -1 }, phmon.ErrInvalidSampleCount},
		{"zones", func(c *phmon.Config) { c.Zones = nil }, phmon.ErrInvalidZones},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			cfg := phmon.DefaultConfig()
			p.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), p.err)
		})
	}
}

func TestLoopStartStop(t *testing.T) {
	r := newRig(t)
	var st phmon.State
	r.click(t, &st, 1480, phmon.Start)
	assert.True(t, st.Running)
	r.click(t, &st, 700, phmon.Stop)
	assert.False(t, st.Running)
	assert.Equal(t, []bool{true, false}, r.obs.modes)
	assert.Equal(t, []phmon.Action{phmon.Start, phmon.Stop}, r.obs.pressed)
}

func TestLoopStartResetsTimer(t *testing.T) {
	r := newRig(t)
	st := phmon.State{Elapsed: time.Hour}
	r.step(&st, 1480)
	// frozen while stopped
	assert.Equal(t, time.Hour, st.Elapsed)
	r.step(&st, released)
	assert.True(t, st.Running)
	assert.Equal(t, r.cfg.Period, st.Elapsed)
}

func TestLoopPrime(t *testing.T) {
	r := newRig(t)
	var st phmon.State
	c := r.step(&st, 370)
	assert.Equal(t, phmon.Event{Transition: phmon.Pressed, Action: phmon.PrimePump1}, c.Event)
	assert.True(t, r.bench.lower().high)
	assert.Equal(t, phmon.PumpPriming, st.Phase)

	c = r.step(&st, 368)
	assert.Equal(t, phmon.Event{Transition: phmon.Held, Action: phmon.PrimePump1}, c.Event)
	assert.True(t, r.bench.lower().high)

	c = r.step(&st, released)
	assert.Equal(t, phmon.Event{Transition: phmon.Released, Action: phmon.PrimePump1}, c.Event)
	assert.False(t, r.bench.lower().high)
	assert.Equal(t, phmon.Idle, st.Phase)

	r.step(&st, 140)
	assert.True(t, r.bench.raise().high)
	r.step(&st, released)
	assert.False(t, r.bench.raise().high)
	assert.False(t, r.bench.overlap)
	assert.Equal(t, 1, r.bench.lower().pulses)
	assert.Equal(t, 1, r.bench.raise().pulses)
}

func TestLoopAwaitingDebounce(t *testing.T) {
	r := newRig(t)
	in := &seqInput{values: []int{1480, 700}}
	hw := phmon.Hardware{
		Buttons: in,
		Probe:   r.probe,
		Lower:   r.bench.lower(),
		Raise:   r.bench.raise(),
	}
	l, err := phmon.NewLoop(r.cfg, hw, phmon.WithClock(r.clock))
	require.Nil(t, err)
	var st phmon.State
	c := l.Step(&st)
	assert.Equal(t, phmon.Event{}, c.Event)
	assert.Equal(t, phmon.AwaitingDebounce, st.Phase)
	c = l.Step(&st)
	assert.Equal(t, phmon.Event{Transition: phmon.Pressed, Action: phmon.Stop}, c.Event)
	assert.Equal(t, phmon.Idle, st.Phase)
}

func TestLoopCalibrate(t *testing.T) {
	r := newRig(t)
	var st phmon.State
	r.click(t, &st, 0, phmon.Calibrate)
	require.Len(t, r.obs.calibrations, 1)
	cr := r.obs.calibrations[0]
	assert.Equal(t, 6.86, cr.Reference)
	assert.InDelta(t, 5.257, cr.Measured, 1e-9)
	assert.InDelta(t, 6.86, r.loop.Calibration().PH(2100), 1e-12)
	assert.Contains(t, r.clock.slept, r.cfg.AckHold)
	// calibration read uses the larger sample count
	assert.GreaterOrEqual(t, r.probe.reads, r.cfg.CalibrationRepeats)
}

func TestLoopCalibrateFault(t *testing.T) {
	r := newRig(t)
	r.probe.err = errFake
	var st phmon.State
	r.click(t, &st, 0, phmon.Calibrate)
	assert.Empty(t, r.obs.calibrations)
	assert.Contains(t, r.obs.faults, "probe")
	assert.Equal(t, phmon.DefaultConfig().Calibration, r.loop.Calibration())
}

func TestLoopAdjustScenario(t *testing.T) {
	r := newRig(t)
	// raw 2100 reads as pH 5.257, below 5.8-0.2
	st := phmon.State{Running: true, Elapsed: 2*time.Hour + 200*time.Millisecond}
	c := r.step(&st, released)
	assert.True(t, c.Checked)
	require.NotNil(t, c.Dose)
	assert.Equal(t, phmon.RaisePump, c.Dose.Pump)
	assert.InDelta(t, 5.257, c.Dose.PH, 1e-9)
	assert.Equal(t, r.cfg.Drip, c.Dose.Pulse)
	assert.Equal(t, 1, r.bench.raise().pulses)
	assert.Zero(t, r.bench.lower().pulses)
	assert.False(t, r.bench.raise().high)
	// reset by the check, then advanced by the cycle
	assert.Equal(t, r.cfg.Period, st.Elapsed)
	assert.Len(t, r.obs.doses, 1)
}

func TestLoopAdjustInterval(t *testing.T) {
	r := newRig(t, func(c *phmon.Config) {
		c.Interval = time.Second
		c.StatusInterval = time.Second
	})
	// pH 10.8
	r.probe.value = 3000
	st := phmon.State{Running: true}
	for i := 0; i < 6; i++ {
		c := r.step(&st, released)
		assert.False(t, c.Checked, "cycle %d", i)
		assert.Nil(t, c.Dose)
	}
	assert.Zero(t, r.bench.lower().pulses)
	c := r.step(&st, released)
	assert.True(t, c.Checked)
	require.NotNil(t, c.Dose)
	assert.Equal(t, phmon.LowerPump, c.Dose.Pump)
	assert.Equal(t, r.cfg.Period, st.Elapsed)
}

func TestLoopAdjustInBand(t *testing.T) {
	// reads 5.857
	r := newRig(t, func(c *phmon.Config) { c.Calibration.Offset = -7.1 })
	st := phmon.State{Running: true, Elapsed: 3 * time.Hour}
	c := r.step(&st, released)
	assert.True(t, c.Checked)
	assert.Nil(t, c.Dose)
	assert.Equal(t, r.cfg.Period, st.Elapsed)
	assert.Zero(t, r.bench.lower().pulses+r.bench.raise().pulses)
}

func TestLoopStoppedNoAdjust(t *testing.T) {
	r := newRig(t)
	st := phmon.State{Elapsed: 3 * time.Hour}
	c := r.step(&st, released)
	assert.False(t, c.Checked)
	assert.Equal(t, 3*time.Hour, st.Elapsed)
	assert.Zero(t, r.bench.raise().pulses)
}

func TestLoopAccumulateWhileStopped(t *testing.T) {
	r := newRig(t, func(c *phmon.Config) { c.AccumulateWhileStopped = true })
	var st phmon.State
	r.step(&st, released)
	assert.Equal(t, r.cfg.Period, st.Elapsed)

	st.Elapsed = 3 * time.Hour
	c := r.step(&st, released)
	assert.True(t, c.Checked)
	assert.Nil(t, c.Dose)
	assert.Equal(t, r.cfg.Period, st.Elapsed)
	assert.Zero(t, r.bench.raise().pulses)

	// Start does not reset an accumulating timer
	st.Elapsed = time.Hour
	r.click(t, &st, 1480, phmon.Start)
	assert.Equal(t, time.Hour+2*r.cfg.Period, st.Elapsed)
}

func TestLoopProbeFault(t *testing.T) {
	r := newRig(t)
	r.probe.err = errFake
	st := phmon.State{Running: true, Elapsed: 3 * time.Hour}
	c := r.step(&st, released)
	assert.False(t, c.Checked)
	assert.Nil(t, c.Dose)
	// retried next cycle
	assert.Equal(t, 3*time.Hour+r.cfg.Period, st.Elapsed)
	assert.Contains(t, r.obs.faults, "probe")

	r.probe.err = nil
	c = r.step(&st, released)
	assert.True(t, c.Checked)
	assert.NotNil(t, c.Dose)
}

func TestLoopButtonFaultWhilePriming(t *testing.T) {
	r := newRig(t)
	var st phmon.State
	r.step(&st, 140)
	assert.True(t, r.bench.raise().high)
	r.buttons.err = errFake
	c := r.loop.Step(&st)
	assert.Equal(t, phmon.Event{Transition: phmon.Released, Action: phmon.PrimePump2}, c.Event)
	assert.False(t, r.bench.raise().high)
	assert.Contains(t, r.obs.faults, "buttons")
}

func TestLoopButtonFaultWhileHoldingStart(t *testing.T) {
	r := newRig(t)
	var st phmon.State
	r.step(&st, 1480)
	r.buttons.err = errFake
	c := r.loop.Step(&st)
	assert.Equal(t, phmon.Event{}, c.Event)
	assert.False(t, st.Running)
}

func TestLoopPrimeDefersAdjust(t *testing.T) {
	r := newRig(t)
	r.probe.value = 3000
	st := phmon.State{Running: true, Elapsed: 3 * time.Hour}
	c := r.step(&st, 370)
	assert.False(t, c.Checked)
	assert.False(t, c.Reported)
	c = r.step(&st, 370)
	assert.False(t, c.Checked)
	assert.Equal(t, 1, r.bench.lower().pulses)

	c = r.step(&st, released)
	assert.True(t, c.Checked)
	require.NotNil(t, c.Dose)
	assert.Equal(t, phmon.LowerPump, c.Dose.Pump)
	assert.Equal(t, 2, r.bench.lower().pulses)
	assert.False(t, r.bench.overlap)
}

func TestLoopStatus(t *testing.T) {
	r := newRig(t)
	var st phmon.State
	c := r.step(&st, released)
	assert.True(t, c.Reported)
	assert.Equal(t, "   PH MONITOR   ", r.display.rows[0])
	assert.Equal(t, "  NOT RUNNING   ", r.display.rows[1])

	c = r.step(&st, released)
	assert.False(t, c.Reported)

	// mode change refreshes immediately
	r.click(t, &st, 1480, phmon.Start)
	assert.Equal(t, phmon.Center("23.5\xdfC   61%", 16), r.display.rows[0])
	assert.Equal(t, "pH 5.3  02:00:00", r.display.rows[1])

	// then on the status interval
	require.Equal(t, 800*time.Millisecond, st.Uptime)
	n := 0
	for !r.step(&st, released).Reported {
		n++
	}
	assert.Equal(t, 46, n)
	assert.Equal(t, r.cfg.StatusInterval, st.Uptime-r.cfg.Period)
	assert.Equal(t, "pH 5.3  01:59:50", r.display.rows[1])
}

func TestLoopStatusFaults(t *testing.T) {
	r := newRig(t)
	r.env.err = errFake
	r.probe.err = errFake
	st := phmon.State{Running: true}
	c := r.step(&st, released)
	assert.True(t, c.Reported)
	assert.Equal(t, phmon.Center("--\xdfC   --%", 16), r.display.rows[0])
	assert.Equal(t, phmon.Center("pH --  02:00:00", 16), r.display.rows[1])
	assert.Contains(t, r.obs.faults, "environment")
	assert.Contains(t, r.obs.faults, "probe")

	r.display.err = errFake
	st.Uptime = 0
	r.step(&st, released)
	assert.Contains(t, r.obs.faults, "display")
}

func TestLoopStatusAfterCheck(t *testing.T) {
	r := newRig(t)
	// the display sees the timer as reset by the check in the same cycle
	st := phmon.State{Running: true, Elapsed: 3 * time.Hour}
	c := r.step(&st, released)
	assert.True(t, c.Checked)
	assert.True(t, c.Reported)
	assert.Equal(t, "pH 5.3  02:00:00", r.display.rows[1])
}

func TestLoopRun(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.buttons.value = 370
	sleeps := 0
	r.clock.onSleep = func() {
		sleeps++
		if sleeps == 5 {
			cancel()
		}
	}
	err := r.loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	// primed when cancelled, but off on return
	assert.Equal(t, 1, r.bench.lower().pulses)
	assert.False(t, r.bench.lower().high)
	assert.False(t, r.bench.raise().high)
}
