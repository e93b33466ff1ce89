package signal

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/whyrusleeping/skeeter/log"
)

// Graph is one live set of nodes: carrier, optional modulator with its depth
// scaler, optional shaper, and the master gain feeding the output and tap.
type Graph struct {
	id       uint64
	carrier  *Oscillator
	mod      *Oscillator
	depth    *Param
	shaper   *Shaper
	master   *Param
	released bool
}

func (g *Graph) ID() uint64 {
	return g.id
}

// Nodes lists the live nodes by name. A released graph has none.
func (g *Graph) Nodes() []string {
	if g == nil || g.released {
		return nil
	}
	nodes := []string{"carrier"}
	if g.mod != nil {
		nodes = append(nodes, "modulator", "depth")
	}
	if g.shaper != nil {
		nodes = append(nodes, "shaper")
	}
	return append(nodes, "master", "analyser")
}

func (g *Graph) Stream(samples [][2]float64) (int, bool) {
	if g.released {
		return 0, false
	}
	for i := range samples {
		var dev float64
		if g.mod != nil {
			dev = g.mod.next(0) * g.depth.next()
		}
		v := g.carrier.next(dev)
		if g.shaper != nil {
			v = g.shaper.shape(v)
		}
		v *= g.master.next()
		samples[i][0] = v
		samples[i][1] = v
	}
	return len(samples), true
}

func (g *Graph) Err() error {
	return nil
}

func (g *Graph) release() {
	g.released = true
	g.carrier = nil
	g.mod = nil
	g.depth = nil
	g.shaper = nil
}

func buildGraph(id uint64, sr float64, r Resolved) *Graph {
	g := &Graph{
		id:      id,
		carrier: NewOscillator(sr, r.CarrierWave, r.CarrierHz),
		master:  NewParam(0, gainTau, sr),
	}
	if r.Mode == FM {
		g.mod = NewOscillator(sr, r.ModWave, r.RateHz)
		g.depth = NewParam(r.DepthHz, frequencyTau, sr)
	}
	if r.Distortion {
		g.shaper = NewShaper(r.Drive, sr)
	}
	// ramp in from silence
	g.master.Set(r.Gain)
	return g
}

// Manager owns the signal graph. At most one graph is live; Start always
// tears the previous one down before building the next.
type Manager struct {
	mu       sync.Mutex
	dev      Device
	out      *Output
	tap      *Tap
	sr       float64
	cfg      Config
	graph    *Graph
	gen      uint64
	attached bool
}

func NewManager(dev Device, cfg Config) *Manager {
	tap := NewTap(tapSize)
	return &Manager{
		dev: dev,
		out: newOutput(tap),
		tap: tap,
		sr:  float64(dev.SampleRate()),
		cfg: cfg.Sanitize(),
	}
}

func (m *Manager) SampleRate() beep.SampleRate {
	return m.dev.SampleRate()
}

// Output is the streamer the manager renders into. It is attached to the
// device on the first successful start.
func (m *Manager) Output() beep.Streamer {
	return m.out
}

func (m *Manager) Start(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start(cfg.Sanitize(), "start")
}

func (m *Manager) start(cfg Config, reason string) error {
	if err := m.resume(); err != nil {
		return err
	}

	m.teardown(reason)

	m.cfg = cfg
	m.gen++
	r := m.resolve()
	g := buildGraph(m.gen, m.sr, r)
	m.graph = g
	m.out.swap(g)

	log.GraphStarted(g.id, r.Mode.String(), r.CarrierHz, r.RateHz, r.DepthHz, r.Gain, r.Distortion)
	return nil
}

func (m *Manager) resume() error {
	if m.dev.Suspended() {
		if err := m.dev.Resume(); err != nil {
			log.Warnf("resume output failed, start abandoned: %v", err)
			return fmt.Errorf("resume output: %w", err)
		}
	}
	if !m.attached {
		m.dev.Attach(m.out)
		m.attached = true
	}
	return nil
}

func (m *Manager) teardown(reason string) {
	if m.graph == nil {
		return
	}
	g := m.graph
	m.out.swap(nil)
	m.out.do(g.release)
	m.graph = nil
	log.GraphStopped(g.id, reason)
}

// Stop releases every node. Calling it with nothing playing is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown("stop")
}

// Suspend stops playback and suspends the device, for when the program loses
// the user's attention.
func (m *Manager) Suspend(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown(reason)
	return m.dev.Suspend()
}

// restart rebuilds the topology with the current config if playing.
func (m *Manager) restart(reason string) error {
	if m.graph == nil {
		return nil
	}
	return m.start(m.cfg, reason)
}

// apply pushes the resolved config into the live graph as ramp targets.
func (m *Manager) apply() {
	g := m.graph
	if g == nil {
		return
	}
	r := m.resolve()
	m.out.do(func() {
		if g.released {
			return
		}
		g.carrier.freq.Set(r.CarrierHz)
		g.carrier.SetWave(r.CarrierWave)
		if g.mod != nil {
			g.mod.freq.Set(r.RateHz)
			g.mod.SetWave(r.ModWave)
			g.depth.Set(r.DepthHz)
		}
		if g.shaper != nil {
			g.shaper.drive.Set(r.Drive)
		}
		g.master.Set(r.Gain)
	})
}

func (m *Manager) UpdateFrequency(hz float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.CarrierHz = sanitizeCarrier(hz)
	m.apply()
}

func (m *Manager) UpdateGain(percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Volume = sanitizeVolume(percent)
	m.apply()
}

func (m *Manager) UpdateModulationRate(hz float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Modulation.RateHz = sanitizeRate(hz)
	m.apply()
}

func (m *Manager) UpdateModulationDepth(hz float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Modulation.DepthHz = sanitizeDepth(hz)
	m.apply()
}

func (m *Manager) UpdateWaveforms(carrier, modulator Waveform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if carrier.valid() {
		m.cfg.CarrierWave = carrier
	}
	if modulator.valid() {
		m.cfg.Modulation.Wave = modulator
	}
	m.apply()
}

func (m *Manager) UpdateDistortionDrive(drive float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Distortion.Drive = sanitizeDrive(drive)
	m.apply()
}

func (m *Manager) ToggleDistortion(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.Distortion.Enabled == enabled {
		return nil
	}
	m.cfg.Distortion.Enabled = enabled
	return m.restart("distortion")
}

func (m *Manager) SetMode(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode != Tone && mode != FM {
		mode = Tone
	}
	if m.cfg.Mode == mode {
		return nil
	}
	m.cfg.Mode = mode
	return m.restart("mode")
}

func (m *Manager) SetAudibleDebug(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.Modulation.AudibleDebug == on {
		return nil
	}
	m.cfg.Modulation.AudibleDebug = on
	return m.restart("debug")
}

// TestBeep plays a one second 1 kHz reference tone. It bypasses the master
// gain so it is audible at any volume, still feeds the tap, and leaves the
// playing state alone.
func (m *Manager) TestBeep() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resume(); err != nil {
		return err
	}
	m.out.addVoice(newTestBeep(m.dev.SampleRate()))
	return nil
}

func newTestBeep(sr beep.SampleRate) beep.Streamer {
	const (
		freq   = 1000
		floor  = 0.0001
		peak   = 0.2
		attack = 20 * time.Millisecond
		decay  = time.Second
		length = 1100 * time.Millisecond
	)
	osc := NewOscillator(float64(sr), Sine, freq)
	na, nd, total := sr.N(attack), sr.N(decay), sr.N(length)
	var pos int
	return beep.Take(total, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			// exponential ramps: floor -> peak over attack, peak -> floor by decay
			var env float64
			switch {
			case pos < na:
				env = floor * math.Pow(peak/floor, float64(pos)/float64(na))
			case pos < nd:
				env = peak * math.Pow(floor/peak, float64(pos-na)/float64(nd-na))
			default:
				env = 0
			}
			v := osc.next(0) * env
			samples[i][0] = v
			samples[i][1] = v
			pos++
		}
		return len(samples), true
	}))
}

func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph != nil
}

// Audible reports whether anything is rendering into the tap.
func (m *Manager) Audible() bool {
	return m.out.busy()
}

// Live reports whether gen is still the active graph.
func (m *Manager) Live(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph != nil && m.graph.id == gen
}

func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.graph == nil {
		return 0
	}
	return m.graph.id
}

func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *Manager) Effective() Resolved {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolve()
}

// resolve is the stored config as driven into the graph, limited to what the
// device sample rate can reproduce.
func (m *Manager) resolve() Resolved {
	return m.cfg.Resolve().Limit(m.sr)
}

// MaxCarrierHz is the highest carrier the device can play.
func (m *Manager) MaxCarrierHz() float64 {
	return MaxCarrierFor(m.sr)
}

func (m *Manager) ActiveNodes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.graph.Nodes())
}

// CarrierHz is the carrier's target frequency, or 0 when stopped.
func (m *Manager) CarrierHz() float64 {
	return m.read(func(g *Graph) float64 { return g.carrier.freq.Target() })
}

// MasterGain is the master gain target, or 0 when stopped.
func (m *Manager) MasterGain() float64 {
	return m.read(func(g *Graph) float64 { return g.master.Target() })
}

// DepthHz is the modulation depth target, or 0 without a modulator.
func (m *Manager) DepthHz() float64 {
	return m.read(func(g *Graph) float64 {
		if g.depth == nil {
			return 0
		}
		return g.depth.Target()
	})
}

// RateHz is the modulator's target frequency, or 0 without a modulator.
func (m *Manager) RateHz() float64 {
	return m.read(func(g *Graph) float64 {
		if g.mod == nil {
			return 0
		}
		return g.mod.freq.Target()
	})
}

func (m *Manager) read(fn func(g *Graph) float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.graph
	if g == nil {
		return 0
	}
	var v float64
	m.out.do(func() { v = fn(g) })
	return v
}

// Snapshot copies the newest tap samples into buf.
func (m *Manager) Snapshot(buf []float64) int {
	return m.tap.Snapshot(buf)
}
