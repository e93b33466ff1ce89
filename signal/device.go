package signal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

var ErrDeviceUnavailable = errors.New("output device unavailable")

// Device is the audio output the graph renders into. A device may start out
// suspended; Resume must succeed before anything is audible.
type Device interface {
	SampleRate() beep.SampleRate
	Suspended() bool
	Resume() error
	Suspend() error
	Attach(s beep.Streamer)
}

// SpeakerDevice plays through the beep speaker. The speaker is opened lazily
// by the first Resume.
type SpeakerDevice struct {
	mu        sync.Mutex
	sr        beep.SampleRate
	buffer    time.Duration
	opened    bool
	suspended bool
	pending   []beep.Streamer
}

func NewSpeakerDevice(sr beep.SampleRate, buffer time.Duration) *SpeakerDevice {
	return &SpeakerDevice{sr: sr, buffer: buffer}
}

func (d *SpeakerDevice) SampleRate() beep.SampleRate {
	return d.sr
}

func (d *SpeakerDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.opened || d.suspended
}

func (d *SpeakerDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		if err := speaker.Init(d.sr, d.sr.N(d.buffer)); err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		d.opened = true
		d.suspended = false
		if len(d.pending) > 0 {
			speaker.Play(d.pending...)
			d.pending = nil
		}
		return nil
	}

	if !d.suspended {
		return nil
	}
	if err := speaker.Resume(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.suspended = false
	return nil
}

func (d *SpeakerDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened || d.suspended {
		return nil
	}
	if err := speaker.Suspend(); err != nil {
		return err
	}
	d.suspended = true
	return nil
}

func (d *SpeakerDevice) Attach(s beep.Streamer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		d.pending = append(d.pending, s)
		return
	}
	speaker.Play(s)
}

func (d *SpeakerDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		speaker.Clear()
		speaker.Close()
		d.opened = false
	}
}

// MemoryDevice renders on demand instead of in real time. It backs the WAV
// renderer and tests.
type MemoryDevice struct {
	Rate beep.SampleRate
	// ResumeErr, when set, makes every Resume fail.
	ResumeErr error

	suspended bool
	resumes   int
	src       beep.Streamer
}

func NewMemoryDevice(sr beep.SampleRate) *MemoryDevice {
	return &MemoryDevice{Rate: sr, suspended: true}
}

func (d *MemoryDevice) SampleRate() beep.SampleRate { return d.Rate }
func (d *MemoryDevice) Suspended() bool             { return d.suspended }
func (d *MemoryDevice) Resumes() int                { return d.resumes }

func (d *MemoryDevice) Resume() error {
	d.resumes++
	if d.ResumeErr != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, d.ResumeErr)
	}
	d.suspended = false
	return nil
}

func (d *MemoryDevice) Suspend() error {
	d.suspended = true
	return nil
}

func (d *MemoryDevice) Attach(s beep.Streamer) {
	d.src = s
}

// Source returns the attached streamer, or silence if nothing is attached.
func (d *MemoryDevice) Source() beep.Streamer {
	if d.src == nil {
		return beep.Silence(-1)
	}
	return d.src
}

// Pull renders n frames. A suspended device renders silence without
// advancing the graph.
func (d *MemoryDevice) Pull(n int) [][2]float64 {
	out := make([][2]float64, n)
	if d.src == nil || d.suspended {
		return out
	}
	d.src.Stream(out)
	return out
}
