package signal

import (
	"math"
	"testing"
)

func TestMasterGain(t *testing.T) {
	cases := []struct {
		percent, want float64
	}{
		{0, 0},
		{20, 0.04 * MaxGain},
		{50, 0.25 * MaxGain},
		{100, MaxGain},
		{250, MaxGain},
		{-10, 0},
	}
	for _, c := range cases {
		if got := MasterGain(c.percent); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("MasterGain(%f) = %f, want %f", c.percent, got, c.want)
		}
	}
}

func TestEffectiveDepth(t *testing.T) {
	cases := []struct {
		depth, carrier, want float64
	}{
		{0, 20000, 1000},
		{0, 1000, 100},
		{0, 19000, 950},
		{250, 20000, 250},
	}
	for _, c := range cases {
		if got := EffectiveDepth(c.depth, c.carrier); got != c.want {
			t.Errorf("EffectiveDepth(%f, %f) = %f, want %f", c.depth, c.carrier, got, c.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := Config{
		Mode:        Mode(9),
		CarrierWave: Waveform(-1),
		CarrierHz:   math.NaN(),
		Volume:      math.Inf(-1),
		Modulation:  Modulation{Wave: Waveform(12), RateHz: 0, DepthHz: -4},
		Distortion:  Distortion{Drive: math.NaN()},
	}.Sanitize()

	want := DefaultConfig()
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}

	if got := (Config{CarrierHz: 1e6}).Sanitize().CarrierHz; got != MaxCarrierHz {
		t.Errorf("carrier clamp = %f", got)
	}
}

func TestResolveTone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Modulation.AudibleDebug = true
	r := cfg.Resolve()
	if r.Debug || r.CarrierHz != DefaultCarrierHz {
		t.Errorf("debug applied outside fm: %+v", r)
	}
	if r.RateHz != 0 || r.DepthHz != 0 {
		t.Errorf("tone mode carries modulation: %+v", r)
	}
}

func TestResolveDebug(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = FM
	cfg.Modulation.AudibleDebug = true
	r := cfg.Resolve()
	if r.CarrierHz != DebugCarrierHz || r.RateHz != DebugRateHz || r.DepthHz != DebugDepthHz || r.CarrierWave != Sine {
		t.Errorf("debug remap = %+v", r)
	}
	if cfg.CarrierHz != DefaultCarrierHz {
		t.Error("resolve modified the config")
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("FM"); !ok || m != FM {
		t.Errorf("ParseMode(FM) = %v, %v", m, ok)
	}
	if m, ok := ParseMode("chirp"); ok || m != Tone {
		t.Errorf("ParseMode(chirp) = %v, %v", m, ok)
	}
}

func TestLimit(t *testing.T) {
	if got := MaxCarrierFor(44100); got != 44100*NyquistMargin {
		t.Errorf("max carrier at 44.1k = %f", got)
	}
	if got := MaxCarrierFor(96000); got != MaxCarrierHz {
		t.Errorf("max carrier at 96k = %f", got)
	}

	r := Resolved{Mode: Tone, CarrierHz: 23000}.Limit(44100)
	if r.CarrierHz != MaxCarrierFor(44100) {
		t.Errorf("tone carrier = %f", r.CarrierHz)
	}

	r = Resolved{Mode: FM, CarrierHz: 20000, DepthHz: 1000}.Limit(48000)
	if r.CarrierHz != 20000 || r.DepthHz != 1000 {
		t.Errorf("fm within range changed: %+v", r)
	}
	r = Resolved{Mode: FM, CarrierHz: 22000, DepthHz: 1100}.Limit(44100)
	if r.CarrierHz+r.DepthHz > MaxCarrierFor(44100) {
		t.Errorf("fm peak %f over limit", r.CarrierHz+r.DepthHz)
	}
}
