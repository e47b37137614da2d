// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/phmon/journal"
)

func TestParseKinds(t *testing.T) {
	kk, err := parseKinds([]string{"dose", "fault"})
	require.Nil(t, err)
	assert.Equal(t, []journal.Kind{journal.DoseKind, journal.FaultKind}, kk)

	kk, err = parseKinds(nil)
	require.Nil(t, err)
	assert.Empty(t, kk)

	_, err = parseKinds([]string{"dose", "bogus"})
	assert.NotNil(t, err)
}

func TestPrintEntries(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	err := printEntries(&buf, []journal.Entry{
		{Kind: journal.ReadingKind, Time: t0, PH: 5.8},
		{Kind: journal.ModeKind, Time: t0.Add(time.Minute), Running: true},
	})
	require.Nil(t, err)
	assert.Equal(t,
		"2026-03-01 12:00:00 reading pH 5.80\n2026-03-01 12:01:00 mode running\n",
		buf.String())
}
