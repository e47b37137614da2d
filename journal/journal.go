// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package journal records the history of the bath in a BadgerDB store.
//
// A Journal is a phmon.Observer, so it can be attached to a Loop to record
// doses, calibrations, readings, mode changes and faults as they happen.
package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/warthog618/phmon"
)

// Kind identifies the type of an Entry.
// It prefixes the keys so each kind can be scanned on its own.
type Kind byte

// Entry kinds.
const (
	DoseKind        Kind = 'd'
	CalibrationKind Kind = 'c'
	ReadingKind     Kind = 'r'
	ModeKind        Kind = 'm'
	FaultKind       Kind = 'f'
)

// Kinds lists all the entry kinds.
var Kinds = []Kind{DoseKind, CalibrationKind, ReadingKind, ModeKind, FaultKind}

var kindNames = map[Kind]string{
	DoseKind:        "dose",
	CalibrationKind: "calibration",
	ReadingKind:     "reading",
	ModeKind:        "mode",
	FaultKind:       "fault",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// ParseKind returns the Kind with the given name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", name)
}

// Entry is a single journal record.
// Only the fields relevant to the Kind are set.
type Entry struct {
	Kind Kind
	Time time.Time
	// Pump and Pulse describe a dose.
	Pump  string
	Pulse time.Duration
	// PH is the reading, the reading that triggered a dose, or the
	// measured value of a calibration.
	PH float64
	// Reference and Offset describe a calibration.
	Reference float64
	Offset    float64
	Running   bool
	// Source and Message describe a fault.
	Source  string
	Message string
}

func (e Entry) String() string {
	ts := e.Time.Format(time.DateTime)
	switch e.Kind {
	case DoseKind:
		return fmt.Sprintf("%s dose %s pump %v at pH %.2f", ts, e.Pump, e.Pulse, e.PH)
	case CalibrationKind:
		return fmt.Sprintf("%s calibration reference %.2f measured %.2f offset %.4f",
			ts, e.Reference, e.PH, e.Offset)
	case ReadingKind:
		return fmt.Sprintf("%s reading pH %.2f", ts, e.PH)
	case ModeKind:
		mode := "stopped"
		if e.Running {
			mode = "running"
		}
		return fmt.Sprintf("%s mode %s", ts, mode)
	case FaultKind:
		return fmt.Sprintf("%s fault %s: %s", ts, e.Source, e.Message)
	}
	return fmt.Sprintf("%s %s", ts, e.Kind)
}

// Journal is a persistent, time ordered, log of Entries.
type Journal struct {
	phmon.NopObserver
	db       *badger.DB
	log      *slog.Logger
	ttl      time.Duration
	now      func() time.Time
	seq      atomic.Uint32
	inMemory bool
}

// Option modifies the construction of a Journal.
type Option func(*Journal)

// WithLogger sets the logger used to report write failures.
func WithLogger(log *slog.Logger) Option {
	return func(j *Journal) {
		j.log = log
	}
}

// WithRetention expires entries after d.
// The default is to keep entries forever.
func WithRetention(d time.Duration) Option {
	return func(j *Journal) {
		j.ttl = d
	}
}

// WithClock sets the source of entry times for observed events that do not
// carry their own.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// Open opens the journal in dir, creating it if necessary.
// An empty dir opens a journal held only in memory.
func Open(dir string, opts ...Option) (*Journal, error) {
	j := &Journal{log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	bopts := badger.DefaultOptions(dir).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if dir == "" {
		bopts = bopts.WithInMemory(true)
		j.inMemory = true
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	j.db = db
	j.log.Info("journal opened", slog.String("dir", dir))
	return j, nil
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// GC reclaims value log space held by expired and overwritten entries.
// It rewrites at most one value log file per call, so should be called
// periodically.
func (j *Journal) GC() error {
	if j.inMemory {
		return nil
	}
	err := j.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("journal: gc: %w", err)
	}
	return nil
}

// key is the kind followed by the big endian time, so keys sort
// chronologically within a kind, then a sequence number to keep
// entries with the same time distinct.
func (j *Journal) key(e Entry) []byte {
	k := make([]byte, 1+8+4)
	k[0] = byte(e.Kind)
	binary.BigEndian.PutUint64(k[1:9], uint64(e.Time.UnixNano()))
	binary.BigEndian.PutUint32(k[9:], j.seq.Add(1))
	return k
}

func encode(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (Entry, error) {
	var e Entry
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e)
	return e, err
}

// Append adds an entry to the journal.
func (j *Journal) Append(e Entry) error {
	if _, ok := kindNames[e.Kind]; !ok {
		return fmt.Errorf("journal: unknown kind %d", byte(e.Kind))
	}
	v, err := encode(e)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	be := badger.NewEntry(j.key(e), v)
	if j.ttl > 0 {
		be = be.WithTTL(j.ttl)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(be)
	})
}

// Entries returns the entries of the given kinds recorded at or after
// since, oldest first. No kinds means all kinds.
func (j *Journal) Entries(since time.Time, kinds ...Kind) ([]Entry, error) {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	var ee []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		for _, k := range kinds {
			iopts := badger.DefaultIteratorOptions
			iopts.Prefix = []byte{byte(k)}
			it := txn.NewIterator(iopts)
			start := make([]byte, 9)
			start[0] = byte(k)
			if !since.IsZero() {
				binary.BigEndian.PutUint64(start[1:], uint64(since.UnixNano()))
			}
			for it.Seek(start); it.Valid(); it.Next() {
				err := it.Item().Value(func(val []byte) error {
					e, err := decode(val)
					if err != nil {
						return err
					}
					ee = append(ee, e)
					return nil
				})
				if err != nil {
					it.Close()
					return fmt.Errorf("journal: decode: %w", err)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ee, func(a, b int) bool {
		return ee[a].Time.Before(ee[b].Time)
	})
	return ee, nil
}

func (j *Journal) append(e Entry) {
	if err := j.Append(e); err != nil {
		j.log.Error("journal write failed",
			slog.String("kind", e.Kind.String()),
			slog.Any("error", err))
	}
}

// Dosed implements phmon.Observer.
func (j *Journal) Dosed(d phmon.Dose) {
	j.append(Entry{
		Kind:  DoseKind,
		Time:  d.Time,
		Pump:  d.Pump.String(),
		Pulse: d.Pulse,
		PH:    d.PH,
	})
}

// Calibrated implements phmon.Observer.
func (j *Journal) Calibrated(r phmon.CalibrationResult) {
	j.append(Entry{
		Kind:      CalibrationKind,
		Time:      r.Time,
		PH:        r.Measured,
		Reference: r.Reference,
		Offset:    r.Calibration.Offset,
	})
}

// Reading implements phmon.Observer.
func (j *Journal) Reading(ph float64) {
	j.append(Entry{Kind: ReadingKind, Time: j.now(), PH: ph})
}

// ModeChanged implements phmon.Observer.
func (j *Journal) ModeChanged(running bool) {
	j.append(Entry{Kind: ModeKind, Time: j.now(), Running: running})
}

// Fault implements phmon.Observer.
func (j *Journal) Fault(source string, err error) {
	j.append(Entry{Kind: FaultKind, Time: j.now(), Source: source, Message: err.Error()})
}
