package signal

import (
	"errors"
	"math"
	"testing"

	"github.com/gopxl/beep"
)

const testRate = beep.SampleRate(48000)

func newTestManager(t *testing.T) (*Manager, *MemoryDevice) {
	t.Helper()
	dev := NewMemoryDevice(testRate)
	return NewManager(dev, DefaultConfig()), dev
}

func pull(dev *MemoryDevice, seconds float64) [][2]float64 {
	return dev.Pull(int(seconds * float64(testRate)))
}

func maxAbs(samples [][2]float64) float64 {
	var m float64
	for _, s := range samples {
		m = math.Max(m, math.Abs(s[0]))
	}
	return m
}

func toneConfig(hz, volume float64) Config {
	cfg := DefaultConfig()
	cfg.CarrierHz = hz
	cfg.Volume = volume
	return cfg
}

func fmConfig(hz float64) Config {
	cfg := DefaultConfig()
	cfg.Mode = FM
	cfg.CarrierHz = hz
	return cfg
}

func TestStartStopLeavesNoNodes(t *testing.T) {
	dist := toneConfig(19000, 50)
	dist.Distortion = Distortion{Enabled: true, Drive: 0.5}
	fmDist := fmConfig(20000)
	fmDist.Distortion.Enabled = true
	debug := fmConfig(20000)
	debug.Modulation.AudibleDebug = true

	cases := []struct {
		name  string
		cfg   Config
		nodes int
	}{
		{"tone", toneConfig(19000, 20), 3},
		{"tone distortion", dist, 4},
		{"fm", fmConfig(20000), 5},
		{"fm distortion", fmDist, 6},
		{"fm debug", debug, 5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, dev := newTestManager(t)
			if err := m.Start(c.cfg); err != nil {
				t.Fatal(err)
			}
			if got := m.ActiveNodes(); got != c.nodes {
				t.Errorf("active nodes = %d, want %d", got, c.nodes)
			}
			pull(dev, 0.05)

			m.Stop()
			if got := m.ActiveNodes(); got != 0 {
				t.Errorf("active nodes after stop = %d, want 0", got)
			}
			if m.Playing() {
				t.Error("still playing after stop")
			}
			m.Stop()

			if peak := maxAbs(pull(dev, 0.05)); peak != 0 {
				t.Errorf("output after stop has peak %f, want silence", peak)
			}
		})
	}
}

func TestStopWhenIdle(t *testing.T) {
	m, _ := newTestManager(t)
	m.Stop()
	m.Stop()
	if m.Playing() || m.ActiveNodes() != 0 {
		t.Fatal("idle manager reports activity")
	}
}

func TestStartTwiceSupersedes(t *testing.T) {
	m, dev := newTestManager(t)

	first := toneConfig(19000, 100)
	first.CarrierWave = Sine
	if err := m.Start(first); err != nil {
		t.Fatal(err)
	}
	g1 := m.Generation()

	second := first
	second.CarrierHz = 18000
	if err := m.Start(second); err != nil {
		t.Fatal(err)
	}
	if m.Live(g1) {
		t.Error("first graph still live after second start")
	}
	if m.Generation() == g1 {
		t.Error("generation did not change")
	}
	if got := m.ActiveNodes(); got != 3 {
		t.Errorf("active nodes = %d, want 3", got)
	}

	// two sounding graphs would sum above the single graph cap
	pull(dev, 0.1)
	if peak := maxAbs(pull(dev, 0.1)); peak > MaxGain+1e-9 {
		t.Errorf("peak %f exceeds one graph at full volume", peak)
	}
}

func TestToneScenario(t *testing.T) {
	m, dev := newTestManager(t)
	if err := m.Start(toneConfig(19000, 20)); err != nil {
		t.Fatal(err)
	}
	if !m.Playing() {
		t.Fatal("not playing after start")
	}
	if got := m.CarrierHz(); got != 19000 {
		t.Errorf("carrier = %f, want 19000", got)
	}
	want := 0.2 * 0.2 * MaxGain
	if got := m.MasterGain(); math.Abs(got-want) > 1e-12 {
		t.Errorf("master gain = %f, want %f", got, want)
	}

	pull(dev, 0.1)
	s := NewSampler(m, float64(testRate))
	if s.Sample() == 0 {
		t.Error("expected signal while playing")
	}

	m.Stop()
	if m.Playing() {
		t.Error("playing flag still set")
	}
	if got := s.Sample(); got != 0 {
		t.Errorf("sample after stop = %f, want 0", got)
	}
}

func TestAutoDepthScenario(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Start(fmConfig(20000)); err != nil {
		t.Fatal(err)
	}
	if got := m.DepthHz(); got != 1000 {
		t.Errorf("depth = %f, want 1000", got)
	}
	if got := m.RateHz(); got != DefaultRateHz {
		t.Errorf("rate = %f, want %d", got, DefaultRateHz)
	}

	m.UpdateModulationDepth(250)
	if got := m.DepthHz(); got != 250 {
		t.Errorf("depth = %f, want 250", got)
	}
}

func TestAudibleDebugRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := fmConfig(19500)
	cfg.Modulation.RateHz = 40
	cfg.Modulation.DepthHz = 300
	if err := m.Start(cfg); err != nil {
		t.Fatal(err)
	}

	check := func(carrier, rate, depth float64) {
		t.Helper()
		if got := m.CarrierHz(); got != carrier {
			t.Errorf("carrier = %f, want %f", got, carrier)
		}
		if got := m.RateHz(); got != rate {
			t.Errorf("rate = %f, want %f", got, rate)
		}
		if got := m.DepthHz(); got != depth {
			t.Errorf("depth = %f, want %f", got, depth)
		}
	}

	for _, on := range []bool{true, false, true, false} {
		if err := m.SetAudibleDebug(on); err != nil {
			t.Fatal(err)
		}
		if on {
			check(DebugCarrierHz, DebugRateHz, DebugDepthHz)
		} else {
			check(19500, 40, 300)
		}
	}
	if got := m.Config(); got != cfg.Sanitize() {
		t.Errorf("config changed across debug toggles: %+v", got)
	}
}

func TestDebugIgnoresLiveEdits(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := fmConfig(19000)
	cfg.Modulation.AudibleDebug = true
	if err := m.Start(cfg); err != nil {
		t.Fatal(err)
	}

	m.UpdateFrequency(17000)
	m.UpdateModulationRate(80)
	if got := m.CarrierHz(); got != DebugCarrierHz {
		t.Errorf("carrier = %f, want debug carrier", got)
	}

	if err := m.SetAudibleDebug(false); err != nil {
		t.Fatal(err)
	}
	if got := m.CarrierHz(); got != 17000 {
		t.Errorf("carrier = %f, want 17000 after debug off", got)
	}
	if got := m.RateHz(); got != 80 {
		t.Errorf("rate = %f, want 80 after debug off", got)
	}
}

func TestTopologyRebuildPreservesParams(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Start(toneConfig(18500, 50)); err != nil {
		t.Fatal(err)
	}
	m.UpdateFrequency(17000)
	g := m.Generation()

	if err := m.ToggleDistortion(true); err != nil {
		t.Fatal(err)
	}
	if m.Generation() == g {
		t.Error("distortion toggle did not rebuild")
	}
	if got := m.ActiveNodes(); got != 4 {
		t.Errorf("active nodes = %d, want 4", got)
	}
	if got := m.CarrierHz(); got != 17000 {
		t.Errorf("carrier = %f, want 17000", got)
	}
	if got := m.MasterGain(); got != MasterGain(50) {
		t.Errorf("gain = %f, want %f", got, MasterGain(50))
	}

	if err := m.SetMode(FM); err != nil {
		t.Fatal(err)
	}
	if got := m.ActiveNodes(); got != 6 {
		t.Errorf("active nodes = %d, want 6", got)
	}
	if !m.Config().Distortion.Enabled {
		t.Error("distortion lost across mode switch")
	}
}

func TestTopologyChangeWhileStopped(t *testing.T) {
	m, dev := newTestManager(t)
	if err := m.SetMode(FM); err != nil {
		t.Fatal(err)
	}
	if err := m.ToggleDistortion(true); err != nil {
		t.Fatal(err)
	}
	if m.Playing() {
		t.Fatal("topology change started playback")
	}
	if dev.Resumes() != 0 {
		t.Error("device resumed without a start")
	}
	cfg := m.Config()
	if cfg.Mode != FM || !cfg.Distortion.Enabled {
		t.Errorf("config not updated: %+v", cfg)
	}
}

func TestResumeFailureAbandonsStart(t *testing.T) {
	m, dev := newTestManager(t)
	dev.ResumeErr = errors.New("device busy")

	err := m.Start(toneConfig(19000, 20))
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if m.Playing() {
		t.Error("playing after failed resume")
	}
	if m.ActiveNodes() != 0 {
		t.Error("nodes built after failed resume")
	}
}

func TestStartResumesSuspendedDevice(t *testing.T) {
	m, dev := newTestManager(t)
	if !dev.Suspended() {
		t.Fatal("memory device should start suspended")
	}
	if err := m.Start(toneConfig(19000, 20)); err != nil {
		t.Fatal(err)
	}
	if dev.Suspended() || dev.Resumes() != 1 {
		t.Errorf("suspended=%v resumes=%d", dev.Suspended(), dev.Resumes())
	}

	if err := m.Suspend("hidden"); err != nil {
		t.Fatal(err)
	}
	if m.Playing() || !dev.Suspended() {
		t.Error("suspend left playback running")
	}
}

func TestGainRampsInsteadOfJumping(t *testing.T) {
	m, dev := newTestManager(t)
	cfg := toneConfig(1000, 10)
	cfg.CarrierWave = Sine
	if err := m.Start(cfg); err != nil {
		t.Fatal(err)
	}
	pull(dev, 0.2)

	m.UpdateGain(100)
	if peak := maxAbs(dev.Pull(8)); peak > 0.01 {
		t.Errorf("gain jumped: peak %f right after update", peak)
	}
	pull(dev, 0.2)
	if peak := maxAbs(pull(dev, 0.01)); peak < 0.29 {
		t.Errorf("gain never reached target: peak %f", peak)
	}
}

func TestInvalidInputsFallBack(t *testing.T) {
	m, _ := newTestManager(t)
	m.UpdateFrequency(math.NaN())
	m.UpdateGain(math.Inf(1))
	m.UpdateModulationRate(-5)
	m.UpdateModulationDepth(math.NaN())
	m.UpdateDistortionDrive(7)
	m.UpdateWaveforms(Waveform(42), Triangle)

	cfg := m.Config()
	if cfg.CarrierHz != DefaultCarrierHz {
		t.Errorf("carrier = %f", cfg.CarrierHz)
	}
	if cfg.Volume != DefaultVolume {
		t.Errorf("volume = %f", cfg.Volume)
	}
	if cfg.Modulation.RateHz != DefaultRateHz {
		t.Errorf("rate = %f", cfg.Modulation.RateHz)
	}
	if cfg.Modulation.DepthHz != 0 {
		t.Errorf("depth = %f", cfg.Modulation.DepthHz)
	}
	if cfg.Distortion.Drive != 1 {
		t.Errorf("drive = %f", cfg.Distortion.Drive)
	}
	if cfg.CarrierWave != Square || cfg.Modulation.Wave != Triangle {
		t.Errorf("waves = %v/%v", cfg.CarrierWave, cfg.Modulation.Wave)
	}
}

func TestTestBeepLeavesPlayingAlone(t *testing.T) {
	m, dev := newTestManager(t)
	if err := m.TestBeep(); err != nil {
		t.Fatal(err)
	}
	if m.Playing() {
		t.Error("test beep flagged playing")
	}
	if !m.Audible() {
		t.Error("test beep not audible")
	}
	if peak := maxAbs(pull(dev, 0.1)); peak < 0.1 {
		t.Errorf("test beep peak %f too quiet", peak)
	}

	for i := 0; i < 100 && m.Audible(); i++ {
		dev.Pull(1024)
	}
	if m.Audible() {
		t.Error("test beep never finished")
	}
}

func TestCarrierStaysBelowNyquist(t *testing.T) {
	cases := []struct {
		rate beep.SampleRate
		hz   float64
	}{
		{44100, 23000},
		{48000, MaxCarrierHz},
		{48000, 19000},
	}

	for _, c := range cases {
		dev := NewMemoryDevice(c.rate)
		m := NewManager(dev, DefaultConfig())
		cfg := toneConfig(c.hz, 100)
		cfg.CarrierWave = Sine
		if err := m.Start(cfg); err != nil {
			t.Fatal(err)
		}
		dev.Pull(8192)

		applied := m.CarrierHz()
		if applied > float64(c.rate)/2 {
			t.Fatalf("%d Hz: carrier %f above nyquist", c.rate, applied)
		}
		if want := math.Min(c.hz, m.MaxCarrierHz()); applied != want {
			t.Errorf("%d Hz: carrier = %f, want %f", c.rate, applied, want)
		}
		if m.Config().CarrierHz != c.hz {
			t.Errorf("%d Hz: stored carrier changed to %f", c.rate, m.Config().CarrierHz)
		}

		s := NewSampler(m, float64(c.rate))
		bin := float64(c.rate) / FrameSize
		if peak := s.PeakHz(); math.Abs(peak-applied) > 2*bin {
			t.Errorf("%d Hz: peak = %f, want %f", c.rate, peak, applied)
		}
		if s.Sample() < 0.1 {
			t.Errorf("%d Hz: level %f, carrier is silent", c.rate, s.Sample())
		}
	}
}

func TestFMDeviationStaysBelowNyquist(t *testing.T) {
	dev := NewMemoryDevice(44100)
	m := NewManager(dev, DefaultConfig())
	cfg := fmConfig(MaxCarrierHz)
	cfg.Modulation.DepthHz = 1500
	if err := m.Start(cfg); err != nil {
		t.Fatal(err)
	}
	if top := m.CarrierHz() + m.DepthHz(); top > m.MaxCarrierHz() {
		t.Errorf("carrier + depth = %f, limit %f", top, m.MaxCarrierHz())
	}
	if got := m.DepthHz(); got != 1500 {
		t.Errorf("depth = %f, want 1500", got)
	}
}
