// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package phmon

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the tunables of the control loop.
type Config struct {
	// Period is the time between loop cycles.
	Period time.Duration
	// Debounce is the delay before a press is confirmed.
	Debounce time.Duration
	// Drip is the pump pulse for a single dose.
	Drip time.Duration
	// Interval is the minimum time between adjustment checks.
	Interval time.Duration
	// StatusInterval is the time between display refreshes.
	// It must be a multiple of Period.
	StatusInterval time.Duration
	// AckHold is how long the calibration acknowledgement is shown.
	AckHold time.Duration
	// Settle is the delay between probe samples.
	Settle time.Duration
	// Repeats is the number of probe samples averaged for a reading.
	Repeats int
	// CalibrationRepeats is the number of probe samples averaged when calibrating.
	CalibrationRepeats int
	// Target is the pH the bath is held at.
	Target float64
	// Band is the tolerance either side of Target.
	Band float64
	// Reference is the pH of the calibration buffer.
	Reference float64
	// Calibration is the initial probe calibration.
	Calibration Calibration
	// Zones is the button ladder.
	Zones Zones
	// AccumulateWhileStopped keeps the adjustment timer running while
	// stopped, so the first check after Start may come early.
	AccumulateWhileStopped bool
	// Banner is shown while stopped.
	Banner [2]string
}

// DefaultConfig returns the configuration of the reference build.
func DefaultConfig() Config {
	return Config{
		Period:             200 * time.Millisecond,
		Debounce:           2 * time.Millisecond,
		Drip:               20 * time.Millisecond,
		Interval:           2 * time.Hour,
		StatusInterval:     10 * time.Second,
		AckHold:            time.Second,
		Settle:             2 * time.Millisecond,
		Repeats:            200,
		CalibrationRepeats: 500,
		Target:             5.8,
		Band:               0.2,
		Reference:          6.86,
		Calibration:        Calibration{Gradient: 6.17e-3, Offset: -7.7},
		Zones:              DefaultZones(),
		Banner:             [2]string{"PH MONITOR", "NOT RUNNING"},
	}
}

// Validate checks for values the loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Period <= 0:
		return fmt.Errorf("%w: period %v", ErrInvalidConfig, c.Period)
	case c.Debounce < 0:
		return fmt.Errorf("%w: debounce %v", ErrInvalidConfig, c.Debounce)
	case c.Drip <= 0:
		return fmt.Errorf("%w: drip %v", ErrInvalidConfig, c.Drip)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval %v", ErrInvalidConfig, c.Interval)
	case c.StatusInterval <= 0 || c.StatusInterval%c.Period != 0:
		return fmt.Errorf("%w: status interval %v is not a multiple of period %v",
			ErrInvalidConfig, c.StatusInterval, c.Period)
	case c.AckHold < 0 || c.Settle < 0:
		return fmt.Errorf("%w: negative delay", ErrInvalidConfig)
	case c.Band < 0:
		return fmt.Errorf("%w: band %v", ErrInvalidConfig, c.Band)
	case c.Repeats < 1:
		return fmt.Errorf("%w: repeats %d", ErrInvalidSampleCount, c.Repeats)
	case c.CalibrationRepeats < 1:
		return fmt.Errorf("%w: calibration repeats %d", ErrInvalidSampleCount, c.CalibrationRepeats)
	}
	return c.Zones.Validate()
}

// Phase is the activity of the loop within a cycle.
type Phase int

// Loop phases.
const (
	Idle Phase = iota
	AwaitingDebounce
	PumpPriming
	Calibrating
)

func (p Phase) String() string {
	switch p {
	case AwaitingDebounce:
		return "debounce"
	case PumpPriming:
		return "priming"
	case Calibrating:
		return "calibrating"
	default:
		return "idle"
	}
}

// State is the mutable state of the loop.
// It is owned by whoever calls Step.
type State struct {
	Running bool
	// Elapsed is the time since the last adjustment check.
	Elapsed time.Duration
	// Uptime is the time since the loop started.
	Uptime time.Duration
	Phase  Phase
	// forces a display refresh on the next report
	dirty bool
}

// Cycle summarises what a single Step did.
type Cycle struct {
	Event Event
	// Checked is true if the adjustment check was made.
	Checked bool
	// Dose is the drip made by the check, if any.
	Dose *Dose
	// Reported is true if the display was refreshed.
	Reported bool
}

// Hardware is the set of devices the loop drives.
// Environment and Display are optional.
type Hardware struct {
	Buttons     AnalogInput
	Probe       AnalogInput
	Lower       Line
	Raise       Line
	Environment Environment
	Display     Display
}

// Loop is the pH control loop.
type Loop struct {
	cfg     Config
	clock   Clock
	log     *slog.Logger
	obs     Observer
	buttons AnalogInput
	decoder *Decoder
	sensor  *Sensor
	doser   *Doser
	env     Environment
	status  *StatusReporter
	band    DeadBand
}

// Option modifies the construction of a Loop.
type Option func(*Loop)

// WithClock sets the Clock used for all timing.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) {
		l.log = log
	}
}

// WithObserver adds an Observer.
func WithObserver(o Observer) Option {
	return func(l *Loop) {
		if oo, ok := l.obs.(Observers); ok {
			l.obs = append(oo, o)
			return
		}
		l.obs = Observers{o}
	}
}

// NewLoop creates a Loop. Both pump lines are driven low.
func NewLoop(cfg Config, hw Hardware, options ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Buttons == nil || hw.Probe == nil || hw.Lower == nil || hw.Raise == nil {
		return nil, fmt.Errorf("%w: missing hardware", ErrInvalidConfig)
	}
	l := &Loop{
		cfg:     cfg,
		clock:   SystemClock{},
		log:     slog.Default(),
		obs:     NopObserver{},
		buttons: hw.Buttons,
		env:     hw.Environment,
		band:    DeadBand{Target: cfg.Target, Band: cfg.Band},
	}
	for _, option := range options {
		option(l)
	}
	dec, err := NewDecoder(cfg.Zones, cfg.Debounce)
	if err != nil {
		return nil, err
	}
	l.decoder = dec
	l.sensor = NewSensor(hw.Probe, l.clock, cfg.Settle, cfg.Calibration)
	l.doser = NewDoser(hw.Lower, hw.Raise, l.clock, cfg.Drip)
	d := hw.Display
	if d == nil {
		d = nopDisplay{}
	}
	l.status = NewStatusReporter(d)
	return l, nil
}

// Calibration returns the current probe calibration.
func (l *Loop) Calibration() Calibration {
	return l.sensor.Calibration()
}

// Run cycles the loop until the context is done.
// Both pumps are off when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer l.doser.Halt()
	l.log.Info("control loop started",
		slog.Duration("period", l.cfg.Period),
		slog.Duration("interval", l.cfg.Interval),
		slog.Float64("target", l.cfg.Target),
		slog.Float64("band", l.cfg.Band))
	var st State
	for {
		select {
		case <-ctx.Done():
			l.log.Info("control loop stopped")
			return ctx.Err()
		default:
		}
		l.Step(&st)
		l.clock.Sleep(l.cfg.Period)
	}
}

// Step runs a single cycle against st.
//
// The order within a cycle is fixed: button dispatch, adjustment check,
// display refresh and then the timer advance.
func (l *Loop) Step(st *State) Cycle {
	var c Cycle
	c.Event = l.poll()
	l.dispatch(st, c.Event)
	c.Checked, c.Dose = l.adjust(st)
	c.Reported = l.report(st)
	l.advance(st)
	return c
}

func (l *Loop) poll() Event {
	ev, ok := l.sampleButtons()
	if ok && l.decoder.Debouncing() {
		l.clock.Sleep(l.cfg.Debounce)
		ev, _ = l.sampleButtons()
	}
	return ev
}

func (l *Loop) sampleButtons() (Event, bool) {
	v, err := l.buttons.Read()
	if err != nil {
		l.fault("buttons", fmt.Errorf("%w: buttons: %v", ErrSensorUnavailable, err))
		// a dead ladder must not leave a pump primed
		held := l.decoder.Holding()
		l.decoder.Reset()
		if held == PrimePump1 || held == PrimePump2 {
			return Event{Released, held}, false
		}
		return Event{}, false
	}
	return l.decoder.Update(l.clock.Now(), v), true
}

func primePump(a Action) Pump {
	if a == PrimePump2 {
		return RaisePump
	}
	return LowerPump
}

func (l *Loop) dispatch(st *State, ev Event) {
	switch ev.Transition {
	case Pressed:
		l.log.Debug("button pressed", slog.String("action", ev.Action.String()))
		l.obs.Pressed(ev.Action)
		switch ev.Action {
		case PrimePump1, PrimePump2:
			p := primePump(ev.Action)
			if err := l.doser.Prime(p); err != nil {
				l.fault("pump", err)
				break
			}
			l.log.Info("priming", slog.String("pump", p.String()))
		}
	case Released:
		l.log.Debug("button released", slog.String("action", ev.Action.String()))
		switch ev.Action {
		case Start:
			l.setRunning(st, true)
		case Stop:
			l.setRunning(st, false)
		case PrimePump1, PrimePump2:
			l.doser.Halt()
			l.log.Info("priming stopped", slog.String("pump", primePump(ev.Action).String()))
		case Calibrate:
			st.Phase = Calibrating
			l.calibrate()
			st.dirty = true
		case None:
		}
	}
	st.Phase = l.phase()
}

func (l *Loop) phase() Phase {
	switch {
	case l.decoder.Debouncing():
		return AwaitingDebounce
	case l.decoder.Holding() == PrimePump1 || l.decoder.Holding() == PrimePump2:
		return PumpPriming
	}
	return Idle
}

func (l *Loop) setRunning(st *State, running bool) {
	if st.Running == running {
		return
	}
	st.Running = running
	st.dirty = true
	if running && !l.cfg.AccumulateWhileStopped {
		st.Elapsed = 0
	}
	l.log.Info("mode changed", slog.Bool("running", running))
	l.obs.ModeChanged(running)
}

func (l *Loop) calibrate() {
	r, err := l.sensor.Calibrate(l.cfg.Reference, l.cfg.CalibrationRepeats)
	if err != nil {
		l.fault("probe", err)
		if err := l.status.Line(0, "CAL FAILED"); err != nil {
			l.fault("display", err)
		}
		l.clock.Sleep(l.cfg.AckHold)
		return
	}
	l.log.Info("calibrated",
		slog.Float64("reference", r.Reference),
		slog.Float64("measured", r.Measured),
		slog.Float64("offset", r.Calibration.Offset))
	l.obs.Calibrated(r)
	if err := l.status.Line(0, "CALIBRATED"); err != nil {
		l.fault("display", err)
	}
	l.clock.Sleep(l.cfg.AckHold)
}

// adjust makes the dead band check if it is due.
// A failed probe read leaves the timer alone so the check is retried
// on the next cycle.
func (l *Loop) adjust(st *State) (bool, *Dose) {
	if l.decoder.Holding() != None {
		return false, nil
	}
	if !st.Running && !l.cfg.AccumulateWhileStopped {
		return false, nil
	}
	if !ShouldAdjust(st.Elapsed, l.cfg.Interval) {
		return false, nil
	}
	if !st.Running {
		st.Elapsed = 0
		l.log.Debug("adjustment skipped while stopped")
		return true, nil
	}
	ph, err := l.sensor.Read(l.cfg.Repeats)
	if err != nil {
		l.fault("probe", err)
		return false, nil
	}
	st.Elapsed = 0
	l.obs.Reading(ph)
	p, ok := l.band.Correction(ph)
	if !ok {
		l.log.Info("pH within band", slog.Float64("ph", ph))
		return true, nil
	}
	if err := l.doser.Drip(p); err != nil {
		l.fault("pump", err)
		return true, nil
	}
	d := Dose{Time: l.clock.Now(), Pump: p, PH: ph, Pulse: l.doser.Pulse()}
	l.log.Info("dosed", slog.String("pump", p.String()), slog.Float64("ph", ph))
	l.obs.Dosed(d)
	return true, &d
}

func (l *Loop) report(st *State) bool {
	if l.decoder.Holding() != None {
		return false
	}
	if !st.dirty && st.Uptime%l.cfg.StatusInterval != 0 {
		return false
	}
	st.dirty = false
	if !st.Running {
		if err := l.status.Lines(l.cfg.Banner[0], l.cfg.Banner[1]); err != nil {
			l.fault("display", err)
		}
		return true
	}
	s := Status{Remaining: l.cfg.Interval - st.Elapsed}
	if l.env != nil {
		if err := l.env.Measure(); err != nil {
			l.fault("environment", fmt.Errorf("%w: environment: %v", ErrSensorUnavailable, err))
		} else {
			s.Temperature, s.Humidity, s.EnvOK = l.env.Temperature(), l.env.Humidity(), true
			l.obs.Environment(s.Temperature, s.Humidity)
		}
	}
	if ph, err := l.sensor.Read(l.cfg.Repeats); err != nil {
		l.fault("probe", err)
	} else {
		s.PH, s.PHOK = ph, true
		l.obs.Reading(ph)
	}
	if err := l.status.Status(s); err != nil {
		l.fault("display", err)
	}
	return true
}

func (l *Loop) advance(st *State) {
	st.Uptime += l.cfg.Period
	if st.Running || l.cfg.AccumulateWhileStopped {
		st.Elapsed += l.cfg.Period
	}
}

func (l *Loop) fault(source string, err error) {
	l.log.Warn("fault", slog.String("source", source), slog.Any("error", err))
	l.obs.Fault(source, err)
}
