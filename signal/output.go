package signal

import (
	"sync"

	"github.com/gopxl/beep"
)

// Output is the single streamer handed to the device. It renders the current
// graph plus any one-shot voices and feeds the tap. Swapping the graph
// happens under its lock, so the audio callback never sees a released graph.
type Output struct {
	lk     sync.Mutex
	graph  *Graph
	voices []beep.Streamer
	tap    *Tap
	mixbuf [][2]float64
}

func newOutput(tap *Tap) *Output {
	return &Output{tap: tap}
}

func (o *Output) swap(g *Graph) *Graph {
	o.lk.Lock()
	defer o.lk.Unlock()
	old := o.graph
	o.graph = g
	return old
}

func (o *Output) do(fn func()) {
	o.lk.Lock()
	defer o.lk.Unlock()
	fn()
}

func (o *Output) addVoice(s beep.Streamer) {
	o.lk.Lock()
	defer o.lk.Unlock()
	o.voices = append(o.voices, s)
}

func (o *Output) busy() bool {
	o.lk.Lock()
	defer o.lk.Unlock()
	return o.graph != nil || len(o.voices) > 0
}

func (o *Output) Stream(samples [][2]float64) (int, bool) {
	o.lk.Lock()
	defer o.lk.Unlock()

	for i := range samples {
		samples[i] = [2]float64{}
	}

	if o.graph != nil {
		o.graph.Stream(samples)
	}

	if len(o.voices) > 0 {
		if cap(o.mixbuf) < len(samples) {
			o.mixbuf = make([][2]float64, len(samples))
		}
		buf := o.mixbuf[:len(samples)]
		live := o.voices[:0]
		for _, v := range o.voices {
			n, ok := v.Stream(buf)
			for i := range buf[:n] {
				samples[i][0] += buf[i][0]
				samples[i][1] += buf[i][1]
			}
			if ok && n == len(buf) {
				live = append(live, v)
			}
		}
		for i := len(live); i < len(o.voices); i++ {
			o.voices[i] = nil
		}
		o.voices = live
	}

	o.tap.write(samples)
	return len(samples), true
}

func (o *Output) Err() error {
	return nil
}
