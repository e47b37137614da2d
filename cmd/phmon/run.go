// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/warthog618/phmon"
	"github.com/warthog618/phmon/journal"
	"github.com/warthog618/phmon/metrics"
	"github.com/warthog618/phmon/telemetry"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control loop",
	Long: `Run the pH control loop until interrupted.

The loop starts stopped and is started and stopped from the buttons.
Both pumps are turned off when the loop exits.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	lc, hc, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBoard(hc, allParts, log)
	if err != nil {
		return err
	}
	defer b.Close()

	opts := []phmon.Option{phmon.WithLogger(log)}
	if hc.journalDir != "" {
		j, err := journal.Open(hc.journalDir,
			journal.WithLogger(log),
			journal.WithRetention(hc.retention))
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, phmon.WithObserver(j))
		if hc.journalGC != "" {
			c := cron.New()
			if _, err := c.AddFunc(hc.journalGC, func() {
				if err := j.GC(); err != nil {
					log.Warn("journal gc failed", slog.Any("error", err))
				}
			}); err != nil {
				return err
			}
			c.Start()
			// wait for any running GC before the journal is closed
			defer func() { <-c.Stop().Done() }()
		}
	}
	if hc.metricsAddr != "" {
		m := metrics.New()
		m.SetCalibration(lc.Calibration)
		opts = append(opts, phmon.WithObserver(m))
		go func() {
			if err := metrics.Serve(ctx, hc.metricsAddr, m.Handler(), log); err != nil {
				log.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}
	if hc.mqttBroker != "" {
		c, err := telemetry.Connect(hc.mqttBroker, hc.mqttClient, 5*time.Second)
		if err != nil {
			return err
		}
		defer c.Disconnect(250)
		t := telemetry.New(c, hc.mqttTopic,
			telemetry.WithQoS(hc.mqttQoS),
			telemetry.WithLogger(log))
		opts = append(opts, phmon.WithObserver(t))
	}
	loop, err := phmon.NewLoop(lc, b.hw, opts...)
	if err != nil {
		return err
	}
	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
