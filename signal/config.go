package signal

import (
	"math"
	"strings"
)

type Mode int

const (
	Tone Mode = iota
	FM
)

func (m Mode) String() string {
	if m == FM {
		return "fm"
	}
	return "tone"
}

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tone":
		return Tone, true
	case "fm":
		return FM, true
	}
	return Tone, false
}

const (
	DefaultCarrierHz = 18000
	DefaultVolume    = 20
	DefaultRateHz    = 60

	MinCarrierHz = 20
	MaxCarrierHz = 24000
	MaxRateHz    = 1000

	// NyquistMargin keeps the highest instantaneous carrier frequency this
	// fraction of the sample rate, just under Nyquist.
	NyquistMargin = 0.475

	// MinSampleRate is the lowest device rate that still reproduces the
	// default carrier.
	MinSampleRate = 40000

	// MaxGain caps the master amplitude at full volume.
	MaxGain = 0.3

	// auto depth: a fraction of the carrier, never below a floor
	AutoDepthRatio = 0.05
	MinAutoDepthHz = 100

	// audible debug remap for checking FM by ear
	DebugCarrierHz = 4000
	DebugRateHz    = 5
	DebugDepthHz   = 120
)

type Modulation struct {
	Wave   Waveform
	RateHz float64
	// DepthHz is the peak carrier deviation. Zero selects the automatic depth.
	DepthHz      float64
	AudibleDebug bool
}

type Distortion struct {
	Enabled bool
	Drive   float64
}

// Config is the user-facing description of the signal. Modulation is only
// read in FM mode and Distortion.Drive only when Distortion.Enabled is set.
type Config struct {
	Mode        Mode
	CarrierWave Waveform
	CarrierHz   float64
	// Volume is the user volume in percent. The master gain is derived from it.
	Volume     float64
	Modulation Modulation
	Distortion Distortion
}

func DefaultConfig() Config {
	return Config{
		Mode:        Tone,
		CarrierWave: Square,
		CarrierHz:   DefaultCarrierHz,
		Volume:      DefaultVolume,
		Modulation: Modulation{
			Wave:   Sine,
			RateHz: DefaultRateHz,
		},
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sanitizeCarrier(hz float64) float64 {
	if !finite(hz) || hz <= 0 {
		return DefaultCarrierHz
	}
	return clamp(hz, MinCarrierHz, MaxCarrierHz)
}

func sanitizeVolume(percent float64) float64 {
	if !finite(percent) {
		return DefaultVolume
	}
	return clamp(percent, 0, 100)
}

func sanitizeRate(hz float64) float64 {
	if !finite(hz) || hz <= 0 {
		return DefaultRateHz
	}
	return math.Min(hz, MaxRateHz)
}

func sanitizeDepth(hz float64) float64 {
	if !finite(hz) || hz < 0 {
		return 0
	}
	return math.Min(hz, MaxCarrierHz)
}

func sanitizeDrive(drive float64) float64 {
	if !finite(drive) {
		return 0
	}
	return clamp(drive, 0, 1)
}

// Sanitize replaces missing or malformed values with defaults and clamps the
// rest into range.
func (c Config) Sanitize() Config {
	if c.Mode != Tone && c.Mode != FM {
		c.Mode = Tone
	}
	if !c.CarrierWave.valid() {
		c.CarrierWave = Square
	}
	c.CarrierHz = sanitizeCarrier(c.CarrierHz)
	c.Volume = sanitizeVolume(c.Volume)
	if !c.Modulation.Wave.valid() {
		c.Modulation.Wave = Sine
	}
	c.Modulation.RateHz = sanitizeRate(c.Modulation.RateHz)
	c.Modulation.DepthHz = sanitizeDepth(c.Modulation.DepthHz)
	c.Distortion.Drive = sanitizeDrive(c.Distortion.Drive)
	return c
}

// MasterGain maps a volume percentage to amplitude with a squared curve
// capped at MaxGain.
func MasterGain(percent float64) float64 {
	p := sanitizeVolume(percent) / 100
	return p * p * MaxGain
}

func EffectiveDepth(depthHz, carrierHz float64) float64 {
	if depthHz > 0 {
		return depthHz
	}
	return math.Max(MinAutoDepthHz, carrierHz*AutoDepthRatio)
}

// Resolved holds the values actually driven into the graph.
type Resolved struct {
	Mode        Mode
	CarrierWave Waveform
	CarrierHz   float64
	ModWave     Waveform
	RateHz      float64
	DepthHz     float64
	Distortion  bool
	Drive       float64
	Gain        float64
	Debug       bool
}

// Resolve applies the audible debug remap and automatic depth. The receiver
// is never modified, so switching debug off restores the nominal values.
func (c Config) Resolve() Resolved {
	c = c.Sanitize()
	r := Resolved{
		Mode:        c.Mode,
		CarrierWave: c.CarrierWave,
		CarrierHz:   c.CarrierHz,
		ModWave:     c.Modulation.Wave,
		RateHz:      c.Modulation.RateHz,
		DepthHz:     EffectiveDepth(c.Modulation.DepthHz, c.CarrierHz),
		Distortion:  c.Distortion.Enabled,
		Drive:       c.Distortion.Drive,
		Gain:        MasterGain(c.Volume),
	}
	if c.Mode == FM && c.Modulation.AudibleDebug {
		r.Debug = true
		r.CarrierWave = Sine
		r.CarrierHz = DebugCarrierHz
		r.RateHz = DebugRateHz
		r.DepthHz = DebugDepthHz
	}
	if c.Mode != FM {
		r.RateHz = 0
		r.DepthHz = 0
	}
	return r
}

// MaxCarrierFor is the highest carrier frequency a device running at sampleRate
// can reproduce without folding back into the audible band.
func MaxCarrierFor(sampleRate float64) float64 {
	if !finite(sampleRate) || sampleRate <= 0 {
		return MaxCarrierHz
	}
	return math.Min(MaxCarrierHz, sampleRate*NyquistMargin)
}

// Limit clamps r so the carrier, including its FM deviation, stays below
// the Nyquist frequency of sampleRate.
func (r Resolved) Limit(sampleRate float64) Resolved {
	top := MaxCarrierFor(sampleRate)
	if r.Mode == FM {
		r.DepthHz = math.Min(r.DepthHz, top/2)
		r.CarrierHz = math.Min(r.CarrierHz, top-r.DepthHz)
	} else {
		r.CarrierHz = math.Min(r.CarrierHz, top)
	}
	return r
}
