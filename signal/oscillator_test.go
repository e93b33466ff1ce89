package signal

import (
	"math"
	"testing"
)

func TestParseWaveform(t *testing.T) {
	cases := map[string]Waveform{
		"sine":     Sine,
		"Square":   Square,
		"saw":      Sawtooth,
		"sawtooth": Sawtooth,
		" tri ":    Triangle,
	}
	for in, want := range cases {
		got, ok := ParseWaveform(in)
		if !ok || got != want {
			t.Errorf("ParseWaveform(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseWaveform("noise"); ok {
		t.Error("noise should not parse")
	}
	if Triangle.Next() != Sine {
		t.Error("Next should wrap")
	}
}

func TestOscillatorBounded(t *testing.T) {
	for w := Sine; w <= Triangle; w++ {
		for _, hz := range []float64{440, 19000, 21000} {
			osc := NewOscillator(float64(testRate), w, hz)
			for i := 0; i < 4800; i++ {
				if v := osc.next(0); math.Abs(v) > 1.5 || math.IsNaN(v) {
					t.Fatalf("%v at %f Hz: sample %d = %f", w, hz, i, v)
				}
			}
		}
	}
}

func TestOscillatorFrequency(t *testing.T) {
	osc := NewOscillator(float64(testRate), Sine, 1000)
	var crossings int
	prev := osc.next(0)
	for i := 1; i < int(testRate); i++ {
		v := osc.next(0)
		if prev < 0 && v >= 0 {
			crossings++
		}
		prev = v
	}
	if crossings < 999 || crossings > 1001 {
		t.Errorf("upward crossings in 1s = %d, want ~1000", crossings)
	}
}

func TestOscillatorOffsetShiftsFrequency(t *testing.T) {
	osc := NewOscillator(float64(testRate), Sine, 1000)
	var crossings int
	prev := osc.next(500)
	for i := 1; i < int(testRate); i++ {
		v := osc.next(500)
		if prev < 0 && v >= 0 {
			crossings++
		}
		prev = v
	}
	if crossings < 1499 || crossings > 1501 {
		t.Errorf("upward crossings = %d, want ~1500", crossings)
	}
}
