// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/phmon"
)

func init() {
	primeCmd.Flags().DurationVarP(&primeOpts.Duration, "duration", "d", 0, "time to run the pump (default until interrupted)")
	primeCmd.SetHelpTemplate(primeCmd.HelpTemplate() + extendedPumpHelp)
	rootCmd.AddCommand(primeCmd)
}

var (
	primeCmd = &cobra.Command{
		Use:     "prime <pump>",
		Short:   "Run a pump continuously to prime its line",
		Args:    cobra.ExactArgs(1),
		RunE:    prime,
		Example: "  phmon prime lower -d 5s",
	}
	primeOpts = struct {
		Duration time.Duration
	}{}
)

func prime(cmd *cobra.Command, args []string) error {
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
	if primeOpts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, primeOpts.Duration)
		defer cancel()
	}
	d := phmon.NewDoser(b.hw.Lower, b.hw.Raise, phmon.SystemClock{}, lc.Drip)
	if err := d.Prime(p); err != nil {
		return err
	}
	defer d.Halt()
	start := time.Now()
	fmt.Printf("priming %s pump\n", p)
	<-ctx.Done()
	fmt.Printf("primed %s pump for %v\n", p, time.Since(start).Round(time.Millisecond))
	return nil
}
