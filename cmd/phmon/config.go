// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/phmon"
)

// setting is a configuration key that may also be set from the command line.
type setting struct {
	key   string
	def   interface{}
	usage string
}

var settings = []setting{
	{"loop.period", "200ms", "time between control loop cycles"},
	{"loop.accumulate", false, "advance the adjustment timer while stopped"},
	{"button.debounce", "2ms", "button debounce delay"},
	{"button.threshold", 2000, "button ladder reading below which a button is pressed"},
	{"pump.drip", "20ms", "pump pulse for a single drip"},
	{"pump.lower", 17, "BCM GPIO driving the pH lowering pump"},
	{"pump.raise", 27, "BCM GPIO driving the pH raising pump"},
	{"pump.chip", "", "GPIO chip driving the pumps via the character device (empty for gpiomem)"},
	{"adjust.interval", "2h", "time between adjustment checks"},
	{"status.interval", "10s", "time between display refreshes"},
	{"status.ackhold", "1s", "time the calibration acknowledgement is shown"},
	{"ph.target", 5.8, "target pH"},
	{"ph.band", 0.2, "tolerance either side of the target pH"},
	{"ph.gradient", 6.17e-3, "probe calibration gradient (pH per ADC count)"},
	{"ph.offset", -7.7, "probe calibration offset"},
	{"ph.reference", 6.86, "pH of the calibration buffer"},
	{"ph.repeats", 200, "probe samples averaged per reading"},
	{"ph.calrepeats", 500, "probe samples averaged when calibrating"},
	{"ph.settle", "2ms", "delay between probe samples"},
	{"adc.chip", "mcp3208", "ADC [mcp3208|mcp3008|adc0832]"},
	{"adc.tclk", "500ns", "ADC SPI half clock period"},
	{"adc.tset", "2us", "ADC0832 mux settling time"},
	{"adc.sclk", 21, "BCM GPIO for the ADC clock"},
	{"adc.ssz", 6, "BCM GPIO for the ADC chip select"},
	{"adc.mosi", 19, "BCM GPIO for the ADC data in"},
	{"adc.miso", 26, "BCM GPIO for the ADC data out"},
	{"adc.ph", 0, "ADC channel of the pH probe"},
	{"adc.buttons", 1, "ADC channel of the button ladder"},
	{"lcd.addr", 0x27, "I2C address of the LCD backpack (0 to disable)"},
	{"env.dir", "auto", "IIO directory of the DHT sensor (auto to search, none to disable)"},
	{"journal.dir", "/var/lib/phmon", "journal directory (empty to disable)"},
	{"journal.retention", "2160h", "time journal entries are kept (0 to keep forever)"},
	{"journal.gc", "@every 1h", "schedule of journal value log garbage collection"},
	{"metrics.addr", ":9110", "metrics listen address (empty to disable)"},
	{"mqtt.broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (empty to disable)"},
	{"mqtt.topic", "phmon", "prefix of published MQTT topics"},
	{"mqtt.client", "phmon", "MQTT client ID"},
	{"mqtt.qos", 0, "MQTT quality of service"},
}

func flagName(key string) string {
	return strings.ReplaceAll(key, ".", "-")
}

// addSettingFlags adds a flag for each setting.
// Flags are strings and only those set on the command line are passed
// into the configuration, so the other sources are not masked by the
// flag defaults.
func addSettingFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	for _, s := range settings {
		pf.String(flagName(s.key), fmt.Sprint(s.def), s.usage)
	}
}

// changedFlags returns the settings explicitly set on the command line,
// keyed by their configuration key.
func changedFlags(fs *pflag.FlagSet) map[string]interface{} {
	m := map[string]interface{}{}
	fs.Visit(func(f *pflag.Flag) {
		m[strings.ReplaceAll(f.Name, "-", ".")] = f.Value.String()
	})
	return m
}

// nest converts dotted keys into nested maps.
func nest(flat map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	root := map[string]interface{}{}
	for _, k := range keys {
		path := strings.Split(k, ".")
		m := root
		for _, p := range path[:len(path)-1] {
			sub, ok := m[p].(map[string]interface{})
			if !ok {
				sub = map[string]interface{}{}
				m[p] = sub
			}
			m = sub
		}
		m[path[len(path)-1]] = flat[k]
	}
	return root
}

func loadConfig(cmd *cobra.Command) *config.Config {
	defaultConfig := map[string]interface{}{}
	for _, s := range settings {
		defaultConfig[s.key] = s.def
	}
	def := dict.New(dict.WithMap(nest(defaultConfig)))
	flags := dict.New(dict.WithMap(nest(changedFlags(cmd.Flags()))))
	// highest priority sources first - flags override environment
	cfg := config.New(
		flags,
		env.New(env.WithEnvPrefix("PHMON_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "phmon.json", json.NewDecoder()))
	return cfg.GetConfig("", config.WithMust)
}

// hwConfig is the configuration of the devices attached to the Pi.
type hwConfig struct {
	chip        string
	tclk        time.Duration
	tset        time.Duration
	sclk        int
	ssz         int
	mosi        int
	miso        int
	phChannel   int
	buttonsChan int
	lower       int
	raise       int
	pumpChip    string
	lcdAddr     int
	envDir      string
	journalDir  string
	retention   time.Duration
	journalGC   string
	metricsAddr string
	mqttBroker  string
	mqttTopic   string
	mqttClient  string
	mqttQoS     byte
}

// loadSettings loads the loop and hardware configuration.
func loadSettings(cmd *cobra.Command) (lc phmon.Config, hc hwConfig, err error) {
	defer func() {
		// MustGet panics on values that do not convert
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", phmon.ErrInvalidConfig, r)
		}
	}()
	cfg := loadConfig(cmd)
	lc = phmon.DefaultConfig()
	lc.Period = cfg.MustGet("loop.period").Duration()
	lc.AccumulateWhileStopped = cfg.MustGet("loop.accumulate").Bool()
	lc.Debounce = cfg.MustGet("button.debounce").Duration()
	lc.Drip = cfg.MustGet("pump.drip").Duration()
	lc.Interval = cfg.MustGet("adjust.interval").Duration()
	lc.StatusInterval = cfg.MustGet("status.interval").Duration()
	lc.AckHold = cfg.MustGet("status.ackhold").Duration()
	lc.Target = cfg.MustGet("ph.target").Float()
	lc.Band = cfg.MustGet("ph.band").Float()
	lc.Calibration.Gradient = cfg.MustGet("ph.gradient").Float()
	lc.Calibration.Offset = cfg.MustGet("ph.offset").Float()
	lc.Reference = cfg.MustGet("ph.reference").Float()
	lc.Repeats = int(cfg.MustGet("ph.repeats").Int())
	lc.CalibrationRepeats = int(cfg.MustGet("ph.calrepeats").Int())
	lc.Settle = cfg.MustGet("ph.settle").Duration()
	lc.Zones[0].Upper = int(cfg.MustGet("button.threshold").Int())
	if err = lc.Validate(); err != nil {
		return
	}
	hc = hwConfig{
		chip:        cfg.MustGet("adc.chip").String(),
		tclk:        cfg.MustGet("adc.tclk").Duration(),
		tset:        cfg.MustGet("adc.tset").Duration(),
		sclk:        int(cfg.MustGet("adc.sclk").Int()),
		ssz:         int(cfg.MustGet("adc.ssz").Int()),
		mosi:        int(cfg.MustGet("adc.mosi").Int()),
		miso:        int(cfg.MustGet("adc.miso").Int()),
		phChannel:   int(cfg.MustGet("adc.ph").Int()),
		buttonsChan: int(cfg.MustGet("adc.buttons").Int()),
		lower:       int(cfg.MustGet("pump.lower").Int()),
		raise:       int(cfg.MustGet("pump.raise").Int()),
		pumpChip:    cfg.MustGet("pump.chip").String(),
		lcdAddr:     int(cfg.MustGet("lcd.addr").Int()),
		envDir:      cfg.MustGet("env.dir").String(),
		journalDir:  cfg.MustGet("journal.dir").String(),
		retention:   cfg.MustGet("journal.retention").Duration(),
		journalGC:   cfg.MustGet("journal.gc").String(),
		metricsAddr: cfg.MustGet("metrics.addr").String(),
		mqttBroker:  cfg.MustGet("mqtt.broker").String(),
		mqttTopic:   cfg.MustGet("mqtt.topic").String(),
		mqttClient:  cfg.MustGet("mqtt.client").String(),
	}
	qos := cfg.MustGet("mqtt.qos").Int()
	if qos < 0 || qos > 2 {
		err = fmt.Errorf("%w: mqtt qos %d", phmon.ErrInvalidConfig, qos)
		return
	}
	hc.mqttQoS = byte(qos)
	if hc.journalGC != "" {
		if _, perr := cron.ParseStandard(hc.journalGC); perr != nil {
			err = fmt.Errorf("%w: journal gc: %v", phmon.ErrInvalidConfig, perr)
			return
		}
	}
	return
}
