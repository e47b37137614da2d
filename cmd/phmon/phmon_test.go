// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/phmon"
)

func TestParsePump(t *testing.T) {
	patterns := []struct {
		arg  string
		pump phmon.Pump
	}{
		{"lower", phmon.LowerPump},
		{"ACID", phmon.LowerPump},
		{"1", phmon.LowerPump},
		{"raise", phmon.RaisePump},
		{"Base", phmon.RaisePump},
		{"2", phmon.RaisePump},
	}
	for _, p := range patterns {
		got, err := parsePump(p.arg)
		assert.Nil(t, err, p.arg)
		assert.Equal(t, p.pump, got, p.arg)
	}
	_, err := parsePump("3")
	assert.NotNil(t, err)
}

func TestScaled(t *testing.T) {
	in := scaled{in: constInput(1023), shift: 2}
	v, err := in.Read()
	assert.Nil(t, err)
	assert.Equal(t, 4092, v)
}

type constInput int

func (c constInput) Read() (int, error) {
	return int(c), nil
}

func TestOpenCdevPumpsMissingChip(t *testing.T) {
	b := &board{}
	hc := hwConfig{pumpChip: "gpiochip-missing", lower: 17, raise: 27}
	err := b.openPumps(hc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotNil(t, err)
	assert.Nil(t, b.hw.Lower)
	assert.Empty(t, b.closers)
}
