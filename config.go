package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

const configEnv = "SKEETER_CONFIG"

type signalSection struct {
	Mode        string   `toml:"mode"`
	CarrierWave string   `toml:"carrier_wave"`
	CarrierHz   float64  `toml:"carrier_hz"`
	Volume      *float64 `toml:"volume"`
	ModWave     string   `toml:"mod_wave"`
	RateHz      float64  `toml:"rate_hz"`
	DepthHz     float64  `toml:"depth_hz"`
	Debug       bool     `toml:"audible_debug"`
	Distortion  bool     `toml:"distortion"`
	Drive       float64  `toml:"drive"`
}

type firebaseSection struct {
	APIKey       string `toml:"api_key"`
	ProjectID    string `toml:"project_id"`
	BaseURL      string `toml:"base_url"`
	PollInterval string `toml:"poll_interval"`
}

type fileConfig struct {
	Signal   signalSection   `toml:"signal"`
	Firebase firebaseSection `toml:"firebase"`
}

type Config struct {
	Path      string
	Signal    signal.Config
	Firestore tally.FirestoreConfig
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "skeeter", "config.toml")
}

// loadConfig reads the TOML config named by path, then $SKEETER_CONFIG, then
// the user config dir. Only a missing default file is not an error.
func loadConfig(path string) (Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		path = defaultConfigPath()
		explicit = false
	}

	cfg := Config{Path: path, Signal: signal.DefaultConfig()}
	if path == "" {
		return cfg, nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg.Path = ""
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.Signal = fc.Signal.apply(cfg.Signal)

	fb := fc.Firebase
	cfg.Firestore = tally.FirestoreConfig{
		ProjectID: fb.ProjectID,
		APIKey:    fb.APIKey,
		BaseURL:   fb.BaseURL,
	}
	if fb.PollInterval != "" {
		d, err := time.ParseDuration(fb.PollInterval)
		if err != nil {
			return cfg, fmt.Errorf("config %s: poll_interval: %w", path, err)
		}
		cfg.Firestore.PollInterval = d
	}
	return cfg, nil
}

// apply overlays the values present in the file. Bad values fall back to
// defaults during sanitizing rather than failing the load.
func (s signalSection) apply(c signal.Config) signal.Config {
	if s.Mode != "" {
		c.Mode, _ = signal.ParseMode(s.Mode)
	}
	if s.CarrierWave != "" {
		if w, ok := signal.ParseWaveform(s.CarrierWave); ok {
			c.CarrierWave = w
		}
	}
	if s.CarrierHz != 0 {
		c.CarrierHz = s.CarrierHz
	}
	if s.Volume != nil {
		c.Volume = *s.Volume
	}
	if s.ModWave != "" {
		if w, ok := signal.ParseWaveform(s.ModWave); ok {
			c.Modulation.Wave = w
		}
	}
	if s.RateHz != 0 {
		c.Modulation.RateHz = s.RateHz
	}
	c.Modulation.DepthHz = s.DepthHz
	c.Modulation.AudibleDebug = s.Debug
	c.Distortion.Enabled = s.Distortion
	if s.Drive != 0 {
		c.Distortion.Drive = s.Drive
	}
	return c.Sanitize()
}
