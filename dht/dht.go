// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package dht reads a DHT11 or DHT22 temperature and humidity sensor via the
// Linux IIO dht11 driver.
//
// The driver is enabled with the dht11 device tree overlay, e.g.
//
//	dtoverlay=dht11,gpiopin=4
package dht

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DevicesDir is where IIO devices appear in sysfs.
const DevicesDir = "/sys/bus/iio/devices"

const (
	driverName   = "dht11"
	tempFile     = "in_temp_input"
	humidityFile = "in_humidityrelative_input"
)

// ErrNotFound indicates no dht11 IIO device is present.
var ErrNotFound = errors.New("dht11 device not found")

// Find returns the directory of the first dht11 device under root.
func Find(root string) (string, error) {
	names, err := filepath.Glob(filepath.Join(root, "iio:device*", "name"))
	if err != nil {
		return "", err
	}
	for _, n := range names {
		b, err := os.ReadFile(n)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(b)) == driverName {
			return filepath.Dir(n), nil
		}
	}
	return "", fmt.Errorf("%w under %s", ErrNotFound, root)
}

// Sensor is a DHT sensor exposed by the IIO driver.
type Sensor struct {
	dir         string
	temperature float64
	humidity    float64
}

// New creates a Sensor for the IIO device directory.
func New(dir string) *Sensor {
	return &Sensor{dir: dir}
}

// Measure reads the sensor.
// On error the previous values are retained.
func (s *Sensor) Measure() error {
	t, err := s.readMilli(tempFile)
	if err != nil {
		return err
	}
	h, err := s.readMilli(humidityFile)
	if err != nil {
		return err
	}
	s.temperature, s.humidity = t, h
	return nil
}

// Temperature returns the last measured temperature in degrees Celsius.
func (s *Sensor) Temperature() float64 {
	return s.temperature
}

// Humidity returns the last measured relative humidity in percent.
func (s *Sensor) Humidity() float64 {
	return s.humidity
}

// readMilli reads a channel reported in thousandths.
// The driver returns EIO or ETIMEDOUT when a transfer fails its checksum
// or times out, which is common, so callers should expect to retry.
func (s *Sensor) readMilli(file string) (float64, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return 0, fmt.Errorf("dht: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("dht: %s: %w", file, err)
	}
	return float64(v) / 1000, nil
}
