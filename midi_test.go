package main

import (
	"testing"

	"github.com/gopxl/beep"
	"github.com/rakyll/portmidi"

	"github.com/whyrusleeping/skeeter/session"
	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/share"
)

func newMidiSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New(session.Options{
		Device: signal.NewMemoryDevice(beep.SampleRate(48000)),
		Config: signal.DefaultConfig(),
		Sharer: share.Chain{},
	})
	t.Cleanup(sess.Close)
	return sess
}

func TestLinear(t *testing.T) {
	f := linear(0, 100)
	if f(0) != 0 || f(127) != 100 {
		t.Errorf("ends = %v, %v", f(0), f(127))
	}
}

func TestMidiKnobs(t *testing.T) {
	sess := newMidiSession(t)
	mc := NewMockController(sess)

	mc.handle(portmidi.Event{Status: midiCC, Data1: 1, Data2: 127})
	mc.handle(portmidi.Event{Status: midiCC | 0x3, Data1: 2, Data2: 0})
	mc.handle(portmidi.Event{Status: midiCC, Data1: 5, Data2: 127})
	mc.handle(portmidi.Event{Status: midiCC, Data1: 99, Data2: 64})

	cfg := sess.Snapshot().Config
	if cfg.CarrierHz != signal.MaxCarrierHz {
		t.Errorf("carrier = %v", cfg.CarrierHz)
	}
	if cfg.Volume != 0 {
		t.Errorf("volume = %v", cfg.Volume)
	}
	if cfg.Distortion.Drive != 1 {
		t.Errorf("drive = %v", cfg.Distortion.Drive)
	}
}

func TestMidiPadToggles(t *testing.T) {
	sess := newMidiSession(t)
	mc := NewMockController(sess)

	mc.handle(portmidi.Event{Status: midiNoteOn, Data1: 36, Data2: 100})
	if !sess.Snapshot().Playing {
		t.Fatal("pad did not start playback")
	}
	// velocity zero is a note off
	mc.handle(portmidi.Event{Status: midiNoteOn, Data1: 36, Data2: 0})
	if !sess.Snapshot().Playing {
		t.Error("note off toggled playback")
	}
	mc.handle(portmidi.Event{Status: midiNoteOn, Data1: 36, Data2: 90})
	if sess.Snapshot().Playing {
		t.Error("second press did not stop")
	}
}
