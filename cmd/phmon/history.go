// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/phmon/journal"
)

func init() {
	historyCmd.Flags().DurationVarP(&historyOpts.Since, "since", "s", 24*time.Hour, "how far back to list (0 for everything)")
	historyCmd.Flags().StringSliceVarP(&historyOpts.Kinds, "kind", "k", nil, "kinds of entry to list [dose|calibration|reading|mode|fault]")
	rootCmd.AddCommand(historyCmd)
}

var (
	historyCmd = &cobra.Command{
		Use:     "history",
		Short:   "List the journal",
		Args:    cobra.NoArgs,
		RunE:    history,
		Example: "  phmon history -s 168h -k dose,calibration",
	}
	historyOpts = struct {
		Since time.Duration
		Kinds []string
	}{}
)

func history(cmd *cobra.Command, args []string) error {
	kk, err := parseKinds(historyOpts.Kinds)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	_, hc, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if hc.journalDir == "" {
		return errors.New("no journal configured")
	}
	j, err := journal.Open(hc.journalDir, journal.WithLogger(log))
	if err != nil {
		return err
	}
	defer j.Close()
	var since time.Time
	if historyOpts.Since > 0 {
		since = time.Now().Add(-historyOpts.Since)
	}
	ee, err := j.Entries(since, kk...)
	if err != nil {
		return err
	}
	return printEntries(os.Stdout, ee)
}

func parseKinds(names []string) ([]journal.Kind, error) {
	var kk []journal.Kind
	for _, n := range names {
		k, err := journal.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kk = append(kk, k)
	}
	return kk, nil
}

func printEntries(w io.Writer, ee []journal.Entry) error {
	for _, e := range ee {
		e.Time = e.Time.Local()
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	return nil
}
