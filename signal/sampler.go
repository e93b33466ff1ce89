package signal

import (
	"math"
	"math/cmplx"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/maddyblue/go-dsp/fft"
)

const FrameSize = 2048

// Source is what the sampler reads from. Manager implements it.
type Source interface {
	Audible() bool
	Snapshot(buf []float64) int
}

// Sampler turns one frame of tap data into a display level in [0,1]. It is
// for visualization only and never touches the audio path.
type Sampler struct {
	mu         sync.Mutex
	src        Source
	sampleRate float64
	frame      []float64
	sq         []float64
	window     []float64
}

func NewSampler(src Source, sampleRate float64) *Sampler {
	w := make([]float64, FrameSize)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(FrameSize-1))
	}
	return &Sampler{
		src:        src,
		sampleRate: sampleRate,
		frame:      make([]float64, FrameSize),
		sq:         make([]float64, FrameSize),
		window:     w,
	}
}

func (s *Sampler) read() []float64 {
	if s.src == nil || !s.src.Audible() {
		return nil
	}
	n := s.src.Snapshot(s.frame)
	return s.frame[:n]
}

// Sample returns the normalized level of the newest frame, or 0 when
// nothing is playing.
func (s *Sampler) Sample() float64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.read()
	if len(frame) == 0 {
		return 0
	}
	return Normalize(rms(frame, s.sq[:len(frame)]))
}

func rms(frame, scratch []float64) float64 {
	vecmath.MulBlock(scratch, frame, frame)
	var sum float64
	for _, v := range scratch {
		sum += v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// RMS is the root mean square of frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	return rms(frame, make([]float64, len(frame)))
}

// Normalize is the meter's compressive display curve, boosting small levels
// so high frequency tones at low volume still register.
func Normalize(rms float64) float64 {
	if rms <= 0 || math.IsNaN(rms) {
		return 0
	}
	return math.Min(1, math.Pow(rms*2.5, 0.9))
}

// Spectrum returns the magnitude spectrum of the newest frame up to Nyquist,
// or nil when nothing is playing.
func (s *Sampler) Spectrum() []float64 {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.read()
	if len(frame) < FrameSize {
		return nil
	}
	windowed := make([]float64, len(frame))
	for i, v := range frame {
		windowed[i] = v * s.window[i]
	}

	fftResult := fft.FFTReal(windowed)

	magnitudeSpectrum := make([]float64, len(fftResult)/2+1)
	for i, c := range fftResult[:len(magnitudeSpectrum)] {
		magnitudeSpectrum[i] = cmplx.Abs(c) / float64(len(windowed))
	}
	return magnitudeSpectrum
}

// PeakHz estimates the dominant frequency of the newest frame.
func (s *Sampler) PeakHz() float64 {
	mag := s.Spectrum()
	if len(mag) < 2 {
		return 0
	}
	best := 1
	for i := 2; i < len(mag); i++ {
		if mag[i] > mag[best] {
			best = i
		}
	}
	if mag[best] == 0 {
		return 0
	}
	return float64(best) * s.sampleRate / FrameSize
}
