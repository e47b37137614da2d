// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warthog618/phmon"
)

func init() {
	readCmd.Flags().IntVarP(&readOpts.Repeats, "repeats", "n", 0, "probe samples to average (default ph.repeats)")
	readCmd.Flags().Float64VarP(&readOpts.Reference, "reference", "r", 0, "also report the offset that calibrates the probe to this pH")
	rootCmd.AddCommand(readCmd)
}

var (
	readCmd = &cobra.Command{
		Use:   "read",
		Short: "Read the pH probe and button ladder",
		Args:  cobra.NoArgs,
		RunE:  read,
	}
	readOpts = struct {
		Repeats   int
		Reference float64
	}{}
)

func read(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	lc, hc, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	b, err := openBoard(hc, adcPart|envPart, log)
	if err != nil {
		return err
	}
	defer b.Close()

	repeats := lc.Repeats
	if readOpts.Repeats != 0 {
		repeats = readOpts.Repeats
	}
	s := phmon.NewSensor(b.hw.Probe, phmon.SystemClock{}, lc.Settle, lc.Calibration)
	raw, err := s.Raw(repeats)
	if err != nil {
		logErr(cmd, err)
	} else {
		fmt.Printf("probe: raw=%.1f pH=%.2f\n", raw, lc.Calibration.PH(raw))
		if cmd.Flags().Changed("reference") {
			measured := lc.Calibration.PH(raw)
			fmt.Printf("offset for pH %.2f: %.4f\n",
				readOpts.Reference, lc.Calibration.Offset+readOpts.Reference-measured)
		}
	}
	v, err := b.hw.Buttons.Read()
	if err != nil {
		logErr(cmd, err)
	} else {
		fmt.Printf("buttons: raw=%d action=%s\n", v, lc.Zones.Classify(v))
	}
	if env := b.hw.Environment; env != nil {
		if err := env.Measure(); err != nil {
			logErr(cmd, err)
		} else {
			fmt.Printf("environment: %.1fC %.0f%%\n", env.Temperature(), env.Humidity())
		}
	}
	return nil
}
