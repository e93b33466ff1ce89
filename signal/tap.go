package signal

import "sync"

const tapSize = 1 << 13

// Tap keeps the most recent output samples in a ring so the level sampler
// can read a frame without touching the audio callback's buffers.
type Tap struct {
	lk       sync.Mutex
	buf      []float64
	position int
}

func NewTap(size int) *Tap {
	if size <= 0 {
		size = tapSize
	}
	return &Tap{buf: make([]float64, size)}
}

func (t *Tap) write(samples [][2]float64) {
	t.lk.Lock()
	defer t.lk.Unlock()

	for i := range samples {
		t.buf[t.position%len(t.buf)] = samples[i][0]
		t.position++
	}
}

// Snapshot copies the newest len(buf) samples, oldest first, and returns how
// many were copied.
func (t *Tap) Snapshot(buf []float64) int {
	t.lk.Lock()
	defer t.lk.Unlock()

	lim := len(buf)
	if len(t.buf) < lim {
		lim = len(t.buf)
	}
	if t.position < lim {
		lim = t.position
	}

	start := t.position - lim
	for i := 0; i < lim; i++ {
		buf[i] = t.buf[(start+i)%len(t.buf)]
	}

	return lim
}

func (t *Tap) Written() int {
	t.lk.Lock()
	defer t.lk.Unlock()
	return t.position
}
