package signal

import (
	"math"
	"strings"
)

type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if !w.valid() {
		return "unknown"
	}
	return waveNames[w]
}

func (w Waveform) valid() bool {
	return w >= Sine && w <= Triangle
}

// Next cycles through the waveforms in declaration order.
func (w Waveform) Next() Waveform {
	return (w + 1) % Waveform(len(waveNames))
}

func ParseWaveform(s string) (Waveform, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "saw":
		return Sawtooth, true
	case "tri":
		return Triangle, true
	}
	for i, n := range waveNames {
		if n == s {
			return Waveform(i), true
		}
	}
	return Sine, false
}

type OscFunc func(phase, dt float64) float64

func sineOsc(phase, _ float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}

func sawOsc(phase, dt float64) float64 {
	return 2*phase - 1 - polyBLEP(phase, dt)
}

func squareOsc(phase, dt float64) float64 {
	v := -1.0
	if phase < 0.5 {
		v = 1
	}
	_, half := math.Modf(phase + 0.5)
	return v + polyBLEP(phase, dt) - polyBLEP(half, dt)
}

func triangleOsc(phase, _ float64) float64 {
	switch {
	case phase < 0.25:
		return 4 * phase
	case phase < 0.75:
		return 2 - 4*phase
	default:
		return 4*phase - 4
	}
}

// polyBLEP smooths the discontinuity at phase 0 over one sample on each side.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

var oscFuncs = [...]OscFunc{sineOsc, squareOsc, sawOsc, triangleOsc}

// Oscillator is a phase accumulating source. Its instantaneous frequency is
// freq plus whatever offset the caller passes to next, which is how the FM
// modulator drives the carrier.
type Oscillator struct {
	sampleRate float64
	wave       Waveform
	freq       *Param
	phase      float64
}

func NewOscillator(sampleRate float64, wave Waveform, hz float64) *Oscillator {
	return &Oscillator{
		sampleRate: sampleRate,
		wave:       wave,
		freq:       NewParam(hz, frequencyTau, sampleRate),
	}
}

func (o *Oscillator) SetWave(w Waveform) {
	if w.valid() {
		o.wave = w
	}
}

func (o *Oscillator) Wave() Waveform {
	return o.wave
}

func (o *Oscillator) next(offsetHz float64) float64 {
	dt := (o.freq.next() + offsetHz) / o.sampleRate
	v := oscFuncs[o.wave](o.phase, math.Abs(dt))
	o.phase += dt
	o.phase -= math.Floor(o.phase)
	return v
}
