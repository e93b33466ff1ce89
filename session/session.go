// Package session is the controller between the frontends and the signal,
// tally and share packages. Every user action is one method call.
package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/whyrusleeping/skeeter/log"
	"github.com/whyrusleeping/skeeter/share"
	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

type Options struct {
	Device signal.Device
	Config signal.Config
	// Remote is the shared tally. Nil keeps the tally local.
	Remote    tally.Remote
	Scheduler signal.FrameScheduler
	Sharer    share.Sharer
	OnLevel   func(level float64)
	OnTally   func(tally.Counts, tally.Status)
	Agent     string
	Now       func() time.Time
}

type Session struct {
	mgr     *signal.Manager
	sampler *signal.Sampler
	meter   *signal.Meter
	board   *tally.Board
	writer  *tally.Writer
	remote  tally.Remote
	sharer  share.Sharer
	agent   string
	now     func() time.Time
	onLevel func(float64)

	mu     sync.Mutex
	level  float64
	last   *tally.Outcome
	votes  int
	unsub  func()
	closed bool
}

func New(opts Options) *Session {
	s := &Session{
		remote:  opts.Remote,
		sharer:  opts.Sharer,
		agent:   opts.Agent,
		now:     opts.Now,
		onLevel: opts.OnLevel,
	}
	if s.sharer == nil {
		s.sharer = share.NewChain(os.Stdout)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.agent == "" {
		s.agent = "skeeter"
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = signal.TickerScheduler{}
	}

	s.mgr = signal.NewManager(opts.Device, opts.Config)
	s.sampler = signal.NewSampler(s.mgr, float64(opts.Device.SampleRate()))
	s.meter = signal.NewMeter(s.sampler, sched, s.mgr.Audible, s.setLevel)
	s.board = tally.NewBoard(opts.OnTally)
	s.writer = tally.NewWriter(opts.Remote, nil, s.board)
	return s
}

func (s *Session) setLevel(l float64) {
	s.mu.Lock()
	s.level = l
	s.mu.Unlock()
	if s.onLevel != nil {
		s.onLevel(l)
	}
}

func (s *Session) Manager() *signal.Manager { return s.mgr }
func (s *Session) Sampler() *signal.Sampler { return s.sampler }
func (s *Session) Board() *tally.Board      { return s.board }

// Connect subscribes the board to the remote aggregate. Without a remote it
// does nothing; a failing remote degrades the board and returns the error.
func (s *Session) Connect(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	s.board.Connecting()
	unsub, err := s.remote.SubscribeAggregate(ctx, s.board.Receive, s.subscriptionLost)
	if err != nil {
		log.Warnf("tally subscription failed: %v", err)
		s.board.MarkFailed()
		return err
	}

	s.mu.Lock()
	old := s.unsub
	s.unsub = unsub
	s.mu.Unlock()
	if old != nil {
		old()
	}
	return nil
}

func (s *Session) subscriptionLost(err error) {
	log.Warnf("tally subscription lost, showing local tally: %v", err)
	s.board.MarkFailed()
}

// Refresh reads the aggregate on demand. A reply overtaken by a pushed
// snapshot is dropped.
func (s *Session) Refresh(ctx context.Context) error {
	rd, ok := s.remote.(tally.Reader)
	if !ok {
		return tally.ErrNotConfigured
	}
	ticket := s.board.Ticket()
	c, err := rd.Aggregate(ctx)
	if err != nil {
		s.board.MarkFailed()
		return err
	}
	s.board.ReceiveReply(ticket, c)
	return nil
}

func (s *Session) Toggle() error {
	if s.mgr.Playing() {
		s.Stop()
		return nil
	}
	return s.Start()
}

// Start plays the current configuration. When the device cannot be resumed
// nothing starts and the session stays stopped.
func (s *Session) Start() error {
	if err := s.mgr.Start(s.mgr.Config()); err != nil {
		return err
	}
	s.meter.Start()
	return nil
}

func (s *Session) Stop() {
	s.mgr.Stop()
	s.meter.Stop()
}

// Hide stops playback and suspends the device, for focus loss and shutdown.
func (s *Session) Hide(reason string) {
	if err := s.mgr.Suspend(reason); err != nil {
		log.Warnf("suspend output: %v", err)
	}
	s.meter.Stop()
}

func (s *Session) SetFrequency(hz float64)   { s.mgr.UpdateFrequency(hz) }
func (s *Session) SetVolume(percent float64) { s.mgr.UpdateGain(percent) }
func (s *Session) SetRate(hz float64)        { s.mgr.UpdateModulationRate(hz) }
func (s *Session) SetDepth(hz float64)       { s.mgr.UpdateModulationDepth(hz) }
func (s *Session) SetDrive(drive float64)    { s.mgr.UpdateDistortionDrive(drive) }

func (s *Session) SetCarrierWave(w signal.Waveform) {
	s.mgr.UpdateWaveforms(w, s.mgr.Config().Modulation.Wave)
}

func (s *Session) SetModWave(w signal.Waveform) {
	s.mgr.UpdateWaveforms(s.mgr.Config().CarrierWave, w)
}

func (s *Session) SetMode(m signal.Mode) error {
	return s.afterRebuild(s.mgr.SetMode(m))
}

func (s *Session) SetAudibleDebug(on bool) error {
	return s.afterRebuild(s.mgr.SetAudibleDebug(on))
}

func (s *Session) SetDistortion(on bool) error {
	return s.afterRebuild(s.mgr.ToggleDistortion(on))
}

// afterRebuild settles the meter after a topology change. A failed rebuild
// leaves nothing playing.
func (s *Session) afterRebuild(err error) error {
	if err != nil {
		s.meter.Stop()
		return err
	}
	if s.mgr.Playing() {
		s.meter.Start()
	}
	return nil
}

func (s *Session) TestBeep() error {
	if err := s.mgr.TestBeep(); err != nil {
		return err
	}
	s.meter.Start()
	return nil
}

// Vote casts one vote for the current carrier and mode. It reports whether
// the shared tally took it; otherwise it was counted locally.
func (s *Session) Vote(ctx context.Context, o tally.Outcome) bool {
	cfg := s.mgr.Config()
	rec := tally.NewRecord(o, cfg.CarrierHz, cfg.Mode.String(), s.now(), s.agent)

	s.mu.Lock()
	s.last = &o
	s.votes++
	s.mu.Unlock()

	return s.writer.Cast(ctx, rec)
}

func (s *Session) lastVote() *tally.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	o := *s.last
	return &o
}

func (s *Session) ShareText() string {
	cfg := s.mgr.Config()
	return share.Text(s.lastVote(), cfg.Mode.String(), cfg.CarrierHz)
}

func (s *Session) TweetURL() string {
	return share.IntentURL(share.TweetText(s.lastVote(), s.mgr.Config().CarrierHz))
}

type deliverer interface {
	Deliver(text string) share.Result
}

// Share hands the result text to the sharer. OK is false when the user has
// to copy it by hand.
func (s *Session) Share() share.Result {
	text := s.ShareText()
	if d, ok := s.sharer.(deliverer); ok {
		return d.Deliver(text)
	}
	err := s.sharer.Share(text)
	if err != nil && !errors.Is(err, share.ErrManual) {
		log.Warnf("share via %s failed: %v", s.sharer.Name(), err)
	}
	return share.Result{Target: s.sharer.Name(), OK: err == nil}
}

// Close stops playback and the tally subscription.
func (s *Session) Close() {
	s.Stop()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.unsub = nil
	votes := s.votes
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	log.SessionEnd(votes)
}

// State is a point in time view of the session for frontends.
type State struct {
	Playing   bool
	Config    signal.Config
	Effective signal.Resolved
	Gain      float64
	Level     float64
	Counts    tally.Counts
	Status    tally.Status
	Last      *tally.Outcome
	Votes     int
}

func (s *Session) Snapshot() State {
	counts, status := s.board.Display()
	st := State{
		Playing:   s.mgr.Playing(),
		Config:    s.mgr.Config(),
		Effective: s.mgr.Effective(),
		Gain:      s.mgr.MasterGain(),
		Counts:    counts,
		Status:    status,
		Last:      s.lastVote(),
	}
	s.mu.Lock()
	st.Level = s.level
	st.Votes = s.votes
	s.mu.Unlock()
	return st
}
