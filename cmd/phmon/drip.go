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
	dripCmd.Flags().UintVarP(&dripOpts.Count, "count", "n", 1, "number of drips")
	dripCmd.Flags().DurationVarP(&dripOpts.Gap, "gap", "g", time.Second, "time between drips")
	dripCmd.SetHelpTemplate(dripCmd.HelpTemplate() + extendedPumpHelp)
	rootCmd.AddCommand(dripCmd)
}

var (
	dripCmd = &cobra.Command{
		Use:     "drip <pump>",
		Short:   "Deliver drips from a pump",
		Args:    cobra.ExactArgs(1),
		RunE:    drip,
		Example: "  phmon drip raise -n 5",
	}
	dripOpts = struct {
		Count uint
		Gap   time.Duration
	}{}
)

func drip(cmd *cobra.Command, args []string) error {
	p, err := parsePump(args[0])
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	lc, hc, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	b, err := openBoard(hc, pumpPart, log)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	d := phmon.NewDoser(b.hw.Lower, b.hw.Raise, phmon.SystemClock{}, lc.Drip)
	for i := uint(0); i < dripOpts.Count; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(dripOpts.Gap):
			}
		}
		if err := d.Drip(p); err != nil {
			return err
		}
		fmt.Printf("drip %d from %s pump\n", i+1, p)
	}
	return nil
}
