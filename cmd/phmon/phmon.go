// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

// phmon is a utility to run and maintain the pH bath controller.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warthog618/phmon"
)

var version = "undefined"

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config-file", "c", "phmon.json", "configuration file")
	pf.StringVar(&rootOpts.LogLevel, "log-level", "info", "log level [debug|info|warn|error]")
	addSettingFlags(rootCmd)
}

var (
	rootCmd = &cobra.Command{
		Use:   "phmon",
		Short: "phmon is a utility to control the pH of a hydroponic bath",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
		Version:      version,
		SilenceUsage: true,
	}
	rootOpts = struct {
		LogLevel string
	}{}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(os.Stderr, "phmon %s: %s\n", cmd.Name(), err)
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(rootOpts.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level '%s'", rootOpts.LogLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

var pumpNames = map[string]phmon.Pump{
	"lower": phmon.LowerPump,
	"acid":  phmon.LowerPump,
	"1":     phmon.LowerPump,
	"raise": phmon.RaisePump,
	"base":  phmon.RaisePump,
	"2":     phmon.RaisePump,
}

func parsePump(arg string) (phmon.Pump, error) {
	if p, ok := pumpNames[strings.ToLower(arg)]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("can't parse pump '%s'", arg)
}

var extendedPumpHelp = `
Pumps:
  The pump lowering the pH may be identified as [lower|acid|1],
  and the pump raising the pH as [raise|base|2].
`
