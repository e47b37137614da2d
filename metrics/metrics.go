// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package metrics exports the state of the bath as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warthog618/phmon"
)

const namespace = "phmon"

// Metrics is a phmon.Observer that maintains a set of Prometheus metrics.
type Metrics struct {
	reg          *prometheus.Registry
	ph           prometheus.Gauge
	temperature  prometheus.Gauge
	humidity     prometheus.Gauge
	running      prometheus.Gauge
	offset       prometheus.Gauge
	lastDose     prometheus.Gauge
	doses        *prometheus.CounterVec
	presses      *prometheus.CounterVec
	faults       *prometheus.CounterVec
	calibrations prometheus.Counter
}

// New creates the metrics on a registry of their own, along with the
// standard Go and process collectors.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help,
		})
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, labels)
	}
	m := &Metrics{
		reg:         prometheus.NewRegistry(),
		ph:          gauge("ph", "Most recent pH reading of the bath."),
		temperature: gauge("temperature_celsius", "Most recent air temperature."),
		humidity:    gauge("humidity_percent", "Most recent relative humidity."),
		running:     gauge("running", "1 while automatic adjustment is running."),
		offset:      gauge("calibration_offset", "Offset of the probe calibration."),
		lastDose:    gauge("last_dose_timestamp_seconds", "Time of the most recent dose."),
		doses:       counter("doses_total", "Doses delivered, by pump.", "pump"),
		presses:     counter("button_presses_total", "Button presses, by action.", "action"),
		faults:      counter("faults_total", "Faults, by source.", "source"),
	}
	m.calibrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "calibrations_total", Help: "Successful calibrations.",
	})
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ph, m.temperature, m.humidity, m.running, m.offset, m.lastDose,
		m.doses, m.presses, m.faults, m.calibrations,
	)
	// expose the series before the first event
	for _, p := range []phmon.Pump{phmon.LowerPump, phmon.RaisePump} {
		m.doses.WithLabelValues(p.String())
	}
	return m
}

// SetCalibration records the initial probe calibration.
func (m *Metrics) SetCalibration(c phmon.Calibration) {
	m.offset.Set(c.Offset)
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Pressed implements phmon.Observer.
func (m *Metrics) Pressed(a phmon.Action) {
	m.presses.WithLabelValues(a.String()).Inc()
}

// ModeChanged implements phmon.Observer.
func (m *Metrics) ModeChanged(running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.running.Set(v)
}

// Reading implements phmon.Observer.
func (m *Metrics) Reading(ph float64) {
	m.ph.Set(ph)
}

// Environment implements phmon.Observer.
func (m *Metrics) Environment(temperature, humidity float64) {
	m.temperature.Set(temperature)
	m.humidity.Set(humidity)
}

// Dosed implements phmon.Observer.
func (m *Metrics) Dosed(d phmon.Dose) {
	m.doses.WithLabelValues(d.Pump.String()).Inc()
	m.lastDose.Set(float64(d.Time.UnixNano()) / float64(time.Second))
}

// Calibrated implements phmon.Observer.
func (m *Metrics) Calibrated(r phmon.CalibrationResult) {
	m.calibrations.Inc()
	m.offset.Set(r.Calibration.Offset)
}

// Fault implements phmon.Observer.
func (m *Metrics) Fault(source string, err error) {
	m.faults.WithLabelValues(source).Inc()
}

// Handler returns a router serving the metrics on /metrics and a liveness
// check on /healthz.
func (m *Metrics) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})).
		Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

// Serve serves h on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()
	log.Info("serving metrics", slog.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}
