// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/phmon"
)

func init() {
	buttonsCmd.Flags().BoolVarP(&buttonsOpts.Held, "held", "H", false, "also display held events")
	buttonsCmd.Flags().UintVarP(&buttonsOpts.NumEvents, "num-events", "n", 0, "exit after n presses")
	buttonsCmd.Flags().BoolVarP(&buttonsOpts.Raw, "raw", "r", false, "display the raw sample with each event")
	rootCmd.AddCommand(buttonsCmd)
}

var (
	buttonsCmd = &cobra.Command{
		Use:   "buttons",
		Short: "Monitor the button ladder",
		Long:  `Decode button presses and releases and print them to standard output.`,
		Args:  cobra.NoArgs,
		RunE:  buttons,
	}
	buttonsOpts = struct {
		Held      bool
		Raw       bool
		NumEvents uint
	}{}
)

func buttons(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	lc, hc, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	b, err := openBoard(hc, adcPart, log)
	if err != nil {
		return err
	}
	defer b.Close()

	dec, err := phmon.NewDecoder(lc.Zones, lc.Debounce)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ticker := time.NewTicker(lc.Period)
	defer ticker.Stop()
	sample := func() (phmon.Event, int, bool) {
		v, err := b.hw.Buttons.Read()
		if err != nil {
			logErr(cmd, err)
			dec.Reset()
			return phmon.Event{}, 0, false
		}
		return dec.Update(time.Now(), v), v, true
	}
	presses := uint(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		ev, v, ok := sample()
		if ok && dec.Debouncing() {
			time.Sleep(lc.Debounce)
			ev, v, _ = sample()
		}
		switch ev.Transition {
		case phmon.NoTransition:
			continue
		case phmon.Held:
			if !buttonsOpts.Held {
				continue
			}
		case phmon.Pressed:
			presses++
		}
		if buttonsOpts.Raw {
			fmt.Printf("%s (%d)\n", ev, v)
		} else {
			fmt.Println(ev)
		}
		if buttonsOpts.NumEvents != 0 && ev.Transition == phmon.Released &&
			presses >= buttonsOpts.NumEvents {
			return nil
		}
	}
}
