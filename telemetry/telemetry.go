// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package telemetry publishes the events of the bath to an MQTT broker.
//
// Events are published as JSON to topics under a common prefix:
//
//	<prefix>/ph           {"time":..., "ph":5.81}
//	<prefix>/environment  {"time":..., "temperature":23.4, "humidity":61}
//	<prefix>/mode         {"time":..., "running":true}           (retained)
//	<prefix>/dose         {"time":..., "pump":"raise", "ph":5.26, "pulse_ms":20}
//	<prefix>/calibration  {"time":..., "reference":6.86, "measured":6.5, "offset":-7.34}
//	<prefix>/fault        {"time":..., "source":"probe", "error":"..."}
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/warthog618/phmon"
)

// Publisher is the part of an MQTT client used to publish.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Telemetry is a phmon.Observer that publishes to MQTT.
type Telemetry struct {
	pub     Publisher
	prefix  string
	qos     byte
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// Option modifies the construction of a Telemetry.
type Option func(*Telemetry)

// WithQoS sets the MQTT quality of service. The default is 0.
func WithQoS(qos byte) Option {
	return func(t *Telemetry) {
		t.qos = qos
	}
}

// WithLogger sets the logger used to report publish failures.
func WithLogger(log *slog.Logger) Option {
	return func(t *Telemetry) {
		t.log = log
	}
}

// WithClock sets the source of event times.
func WithClock(now func() time.Time) Option {
	return func(t *Telemetry) {
		t.now = now
	}
}

// New creates a Telemetry publishing to topics under prefix.
func New(pub Publisher, prefix string, options ...Option) *Telemetry {
	t := &Telemetry{
		pub:     pub,
		prefix:  prefix,
		timeout: time.Second,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Connect connects a paho client to the broker.
func Connect(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(timeout)
	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(timeout) {
		// keeps retrying in the background
		return c, nil
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", broker, err)
	}
	return c, nil
}

func (t *Telemetry) publish(topic string, retained bool, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		t.log.Error("telemetry encode failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	topic = t.prefix + "/" + topic
	tok := t.pub.Publish(topic, t.qos, retained, b)
	// QoS 0 completes once queued, so only wait for acknowledged publishes
	if t.qos == 0 {
		return
	}
	go func() {
		if !tok.WaitTimeout(t.timeout) {
			t.log.Warn("telemetry publish timed out", slog.String("topic", topic))
			return
		}
		if err := tok.Error(); err != nil {
			t.log.Warn("telemetry publish failed", slog.String("topic", topic), slog.Any("error", err))
		}
	}()
}

type phEvent struct {
	Time time.Time `json:"time"`
	PH   float64   `json:"ph"`
}

type environmentEvent struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

type modeEvent struct {
	Time    time.Time `json:"time"`
	Running bool      `json:"running"`
}

type doseEvent struct {
	Time    time.Time `json:"time"`
	Pump    string    `json:"pump"`
	PH      float64   `json:"ph"`
	PulseMS int64     `json:"pulse_ms"`
}

type calibrationEvent struct {
	Time      time.Time `json:"time"`
	Reference float64   `json:"reference"`
	Measured  float64   `json:"measured"`
	Offset    float64   `json:"offset"`
}

type faultEvent struct {
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	Error  string    `json:"error"`
}

// Pressed implements phmon.Observer.
// Presses are local to the controller and not published.
func (t *Telemetry) Pressed(a phmon.Action) {}

// Reading implements phmon.Observer.
func (t *Telemetry) Reading(ph float64) {
	t.publish("ph", false, phEvent{t.now(), ph})
}

// Environment implements phmon.Observer.
func (t *Telemetry) Environment(temperature, humidity float64) {
	t.publish("environment", false, environmentEvent{t.now(), temperature, humidity})
}

// ModeChanged implements phmon.Observer.
func (t *Telemetry) ModeChanged(running bool) {
	t.publish("mode", true, modeEvent{t.now(), running})
}

// Dosed implements phmon.Observer.
func (t *Telemetry) Dosed(d phmon.Dose) {
	t.publish("dose", false, doseEvent{d.Time, d.Pump.String(), d.PH, d.Pulse.Milliseconds()})
}

// Calibrated implements phmon.Observer.
func (t *Telemetry) Calibrated(r phmon.CalibrationResult) {
	t.publish("calibration", false,
		calibrationEvent{r.Time, r.Reference, r.Measured, r.Calibration.Offset})
}

// Fault implements phmon.Observer.
func (t *Telemetry) Fault(source string, err error) {
	t.publish("fault", false, faultEvent{t.now(), source, err.Error()})
}
