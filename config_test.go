package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/whyrusleeping/skeeter/signal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[signal]
mode = "fm"
carrier_wave = "triangle"
carrier_hz = 19500
volume = 0
rate_hz = 45
depth_hz = 300
distortion = true
drive = 0.3

[firebase]
api_key = "web-key"
project_id = "skeeter-votes"
poll_interval = "10s"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	want := signal.DefaultConfig()
	want.Mode = signal.FM
	want.CarrierWave = signal.Triangle
	want.CarrierHz = 19500
	want.Volume = 0
	want.Modulation.RateHz = 45
	want.Modulation.DepthHz = 300
	want.Distortion = signal.Distortion{Enabled: true, Drive: 0.3}
	if cfg.Signal != want {
		t.Errorf("signal = %+v\nwant %+v", cfg.Signal, want)
	}

	fs := cfg.Firestore
	if fs.ProjectID != "skeeter-votes" || fs.APIKey != "web-key" || fs.PollInterval != 10*time.Second {
		t.Errorf("firestore = %+v", fs)
	}
}

func TestLoadConfigBadValuesUseDefaults(t *testing.T) {
	path := writeConfig(t, `
[signal]
mode = "stereo"
carrier_hz = -5
volume = 400
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Signal.Mode != signal.Tone || cfg.Signal.CarrierHz != signal.DefaultCarrierHz || cfg.Signal.Volume != 100 {
		t.Errorf("signal = %+v", cfg.Signal)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	path := writeConfig(t, "[signal]\ncarrier_hz = 17000\n")
	t.Setenv(configEnv, path)
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != path || cfg.Signal.CarrierHz != 17000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}

	t.Setenv(configEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("missing default config: %v", err)
	}
	if cfg.Signal != signal.DefaultConfig() {
		t.Errorf("signal = %+v", cfg.Signal)
	}
	if cfg.Firestore.ProjectID != "" {
		t.Error("firestore configured from nothing")
	}
}

func TestLoadConfigSyntaxError(t *testing.T) {
	path := writeConfig(t, "[signal\ncarrier_hz = ")
	if _, err := loadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}
