package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/whyrusleeping/skeeter/log"
	"github.com/whyrusleeping/skeeter/session"
	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

const (
	screenWidth  = 1000
	screenHeight = 700
	waveSamples  = 500
	curvePoints  = 256
)

// runScope opens an SDL window showing the live waveform, its spectrum, the
// level meter and the distortion curve. Commands can still be typed on the
// terminal while it runs.
func runScope(sess *session.Session) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("initializing SDL: %w", err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow("skeeter scope", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, screenWidth, screenHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	defer renderer.Destroy()

	go runREPL(sess)

	mgr := sess.Manager()
	sampler := sess.Sampler()
	dataPoints := make([]float64, signal.FrameSize)

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.WindowEvent:
				if event.Event == sdl.WINDOWEVENT_FOCUS_LOST || event.Event == sdl.WINDOWEVENT_MINIMIZED {
					if mgr.Playing() {
						sess.Hide("scope hidden")
					}
				}
			case *sdl.KeyboardEvent:
				if event.Type != sdl.KEYDOWN || event.Repeat != 0 {
					continue
				}
				if !scopeKey(sess, event.Keysym.Sym) {
					running = false
				}
			}
		}

		n := mgr.Snapshot(dataPoints)
		spectrum := sampler.Spectrum()
		st := sess.Snapshot()

		renderer.SetDrawColor(255, 255, 255, 255)
		renderer.Clear()

		if n > waveSamples {
			graphData(renderer, dataPoints[n-waveSamples:n], 50, 50, 600, 200, -signal.MaxGain, signal.MaxGain)
		}
		if len(spectrum) > 0 {
			graphData(renderer, spectrum, 50, 300, 600, 200, 0, 0.05)
			// carrier marker
			bin := st.Effective.CarrierHz / (float64(mgr.SampleRate()) / 2)
			renderer.SetDrawColor(0, 0, 255, 255)
			x := 50 + int32(bin*600)
			renderer.DrawLine(x, 300, x, 500)
		}

		if st.Config.Distortion.Enabled {
			graphData(renderer, signal.MakeCurve(st.Config.Distortion.Drive, curvePoints), 700, 50, 250, 200, -1, 1)
		}

		drawLevel(renderer, st.Level, 50, 550, 600, 30)
		drawTally(renderer, st.Counts, 700, 300, 250, 200)

		renderer.Present()
	}

	sess.Hide("scope closed")
	return nil
}

// scopeKey applies one key press and reports whether the scope keeps running.
func scopeKey(sess *session.Session, key sdl.Keycode) bool {
	cfg := sess.Snapshot().Config
	var err error
	switch key {
	case sdl.K_ESCAPE, sdl.K_q:
		return false
	case sdl.K_SPACE:
		err = sess.Toggle()
	case sdl.K_UP:
		sess.SetFrequency(cfg.CarrierHz + 100)
	case sdl.K_DOWN:
		sess.SetFrequency(cfg.CarrierHz - 100)
	case sdl.K_m:
		mode := signal.FM
		if cfg.Mode == signal.FM {
			mode = signal.Tone
		}
		err = sess.SetMode(mode)
	case sdl.K_d:
		err = sess.SetDistortion(!cfg.Distortion.Enabled)
	case sdl.K_b:
		err = sess.TestBeep()
	case sdl.K_1:
		go sess.Vote(context.Background(), tally.Worked)
	case sdl.K_2:
		go sess.Vote(context.Background(), tally.NoEffect)
	case sdl.K_3:
		go sess.Vote(context.Background(), tally.Unknown)
	}
	if err != nil {
		log.Warnf("scope key %d: %v", key, err)
	}
	return true
}

func graphData(renderer *sdl.Renderer, dataPoints []float64, x, y, width, height int32, minval, maxval float64) {
	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.DrawLine(x, y+height/2, x+width, y+height/2)
	renderer.DrawLine(x, y, x, y+height)

	spread := maxval - minval
	scale := func(v float64) int32 {
		v = min(max(v, minval), maxval)
		return y + height - int32((v-minval)/spread*float64(height))
	}

	renderer.SetDrawColor(255, 0, 0, 255)
	for i := 0; i < len(dataPoints)-1; i++ {
		x1 := x + int32(float64(i)*float64(width)/float64(len(dataPoints)-1))
		x2 := x + int32(float64(i+1)*float64(width)/float64(len(dataPoints)-1))
		renderer.DrawLine(x1, scale(dataPoints[i]), x2, scale(dataPoints[i+1]))
	}
}

func drawLevel(renderer *sdl.Renderer, level float64, x, y, width, height int32) {
	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.DrawRect(&sdl.Rect{X: x, Y: y, W: width, H: height})
	renderer.SetDrawColor(0, 180, 0, 255)
	renderer.FillRect(&sdl.Rect{X: x + 1, Y: y + 1, W: int32(level * float64(width-2)), H: height - 2})
}

func drawTally(renderer *sdl.Renderer, c tally.Counts, x, y, width, height int32) {
	colors := [][3]uint8{{40, 160, 80}, {200, 60, 60}, {90, 120, 200}}
	total := max(c.Worked, c.NoEffect, c.Unknown, 1)
	barW := width / 3
	for i, o := range []tally.Outcome{tally.Worked, tally.NoEffect, tally.Unknown} {
		h := int32(float64(c.Get(o)) / float64(total) * float64(height))
		renderer.SetDrawColor(colors[i][0], colors[i][1], colors[i][2], 255)
		renderer.FillRect(&sdl.Rect{X: x + int32(i)*barW + 4, Y: y + height - h, W: barW - 8, H: h})
	}
}
