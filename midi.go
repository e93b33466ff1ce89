package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rakyll/portmidi"

	"github.com/whyrusleeping/skeeter/log"
	"github.com/whyrusleeping/skeeter/session"
	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

const (
	midiNoteOn  = 0x90
	midiNoteOff = 0x80
	midiCC      = 0xb0
)

type Setter func(float64)

type knobBind struct {
	mapf func(int64) float64
	sf   Setter
}

func (kb *knobBind) Update(val int64) {
	kb.sf(kb.mapf(val))
}

// linear maps a 0-127 controller value onto [lo, hi].
func linear(lo, hi float64) func(int64) float64 {
	return func(v int64) float64 {
		return lo + (hi-lo)*float64(v)/127
	}
}

// MidiController drives a session from a MIDI controller: knobs set the
// signal parameters and pads toggle playback or vote.
type MidiController struct {
	sess   *session.Session
	stream *portmidi.Stream
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	knobBinds map[int64]*knobBind
	noteBinds map[int64]func()
}

func OpenController(id portmidi.DeviceID, sess *session.Session) (*MidiController, error) {
	in, err := portmidi.NewInputStream(id, 1024)
	if err != nil {
		return nil, fmt.Errorf("opening midi input %d: %w", id, err)
	}

	mc := NewMockController(sess)
	mc.stream = in
	mc.wg.Add(1)
	go mc.run()
	return mc, nil
}

// NewMockController binds the default layout without a device, for feeding
// events by hand.
func NewMockController(sess *session.Session) *MidiController {
	mc := &MidiController{
		sess:      sess,
		done:      make(chan struct{}),
		knobBinds: make(map[int64]*knobBind),
		noteBinds: make(map[int64]func()),
	}

	mc.BindKnob(1, sess.SetFrequency, linear(14000, signal.MaxCarrierHz))
	mc.BindKnob(2, sess.SetVolume, linear(0, 100))
	mc.BindKnob(3, sess.SetRate, linear(1, 200))
	mc.BindKnob(4, sess.SetDepth, linear(0, 2000))
	mc.BindKnob(5, sess.SetDrive, linear(0, 1))

	mc.BindNote(36, func() {
		if err := sess.Toggle(); err != nil {
			log.Warnf("midi toggle: %v", err)
		}
	})
	for note, o := range map[int64]tally.Outcome{37: tally.Worked, 38: tally.NoEffect, 39: tally.Unknown} {
		mc.BindNote(note, func() {
			go sess.Vote(context.Background(), o)
		})
	}
	return mc
}

func (mc *MidiController) Shutdown() {
	close(mc.done)
	mc.wg.Wait()
	if mc.stream != nil {
		mc.stream.Close()
	}
}

func (mc *MidiController) run() {
	defer mc.wg.Done()
	for {
		select {
		case <-mc.done:
			return
		default:
		}

		ready, err := mc.stream.Poll()
		if err != nil {
			log.Errorf("midi poll: %v", err)
			return
		}
		if !ready {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		events, err := mc.stream.Read(1024)
		if err != nil {
			log.Errorf("midi read: %v", err)
			return
		}
		for _, event := range events {
			mc.handle(event)
		}
	}
}

func (mc *MidiController) handle(event portmidi.Event) {
	// channel bits are ignored
	switch event.Status & 0xf0 {
	case midiNoteOn:
		if event.Data2 == 0 {
			return
		}
		mc.mu.Lock()
		fn := mc.noteBinds[event.Data1]
		mc.mu.Unlock()
		if fn != nil {
			fn()
		}
	case midiNoteOff:
	case midiCC:
		mc.mu.Lock()
		kb := mc.knobBinds[event.Data1]
		mc.mu.Unlock()
		if kb != nil {
			kb.Update(event.Data2)
		}
	default:
		log.Infof("unhandled midi event status=%#x data=%d,%d", event.Status, event.Data1, event.Data2)
	}
}

func (mc *MidiController) BindKnob(knobid int64, s Setter, rangeMapFunc func(int64) float64) {
	if s == nil {
		log.Warnf("nil setter passed to bind knob %d", knobid)
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.knobBinds[knobid] = &knobBind{
		mapf: rangeMapFunc,
		sf:   s,
	}
}

func (mc *MidiController) BindNote(note int64, fn func()) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.noteBinds[note] = fn
}
