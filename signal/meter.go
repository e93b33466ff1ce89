package signal

import (
	"sync"
	"time"
)

// FrameScheduler requests a callback on the next display frame and returns a
// function cancelling it.
type FrameScheduler interface {
	RequestFrame(fn func()) (cancel func())
}

// TickerScheduler schedules frames on a fixed interval.
type TickerScheduler struct {
	Interval time.Duration
}

func (ts TickerScheduler) RequestFrame(fn func()) func() {
	iv := ts.Interval
	if iv <= 0 {
		iv = time.Second / 60
	}
	t := time.AfterFunc(iv, fn)
	return func() { t.Stop() }
}

// Meter pulls the sampler once per frame while something is audible. Only one
// frame request is outstanding at a time, and a frame scheduled before Stop
// does nothing when it fires.
type Meter struct {
	mu      sync.Mutex
	sampler *Sampler
	sched   FrameScheduler
	live    func() bool
	sink    func(level float64)

	running bool
	gen     uint64
	cancel  func()
	frames  int
}

func NewMeter(sampler *Sampler, sched FrameScheduler, live func() bool, sink func(float64)) *Meter {
	if sink == nil {
		sink = func(float64) {}
	}
	return &Meter{
		sampler: sampler,
		sched:   sched,
		live:    live,
		sink:    sink,
	}
}

func (m *Meter) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.gen++
	m.schedule(m.gen)
}

func (m *Meter) schedule(gen uint64) {
	m.cancel = m.sched.RequestFrame(func() { m.frame(gen) })
}

func (m *Meter) frame(gen uint64) {
	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.cancel = nil
	if m.live != nil && !m.live() {
		m.running = false
		m.gen++
		m.mu.Unlock()
		m.sink(0)
		return
	}
	m.frames++
	level := m.sampler.Sample()
	m.schedule(gen)
	m.mu.Unlock()

	m.sink(level)
}

// Stop cancels the pending frame and clears the display.
func (m *Meter) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	m.sink(0)
}

func (m *Meter) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Meter) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}
