package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/whyrusleeping/skeeter/session"
	"github.com/whyrusleeping/skeeter/share"
	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

type tickMsg time.Time

type voteMsg struct {
	outcome tally.Outcome
	remote  bool
}

type shareMsg struct {
	result share.Result
	text   string
}

type errMsg struct{ err error }

type tuiModel struct {
	sess     *session.Session
	interval time.Duration
	state    session.State
	peakHz   float64
	frame    int
	message  string
	width    int
	height   int
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	playingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("249"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	msgStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)

	meterColors = []string{"46", "82", "118", "154", "190", "226", "220", "214", "208", "202"}
	barStyles   = map[tally.Outcome]lipgloss.Style{
		tally.Worked:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		tally.NoEffect: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		tally.Unknown:  lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
	}
)

func NewTUIProgram(sess *session.Session, fps int) *tea.Program {
	if fps <= 0 {
		fps = 30
	}
	m := tuiModel{
		sess:     sess,
		interval: time.Second / time.Duration(fps),
		state:    sess.Snapshot(),
	}
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
}

// tuiSharer is the share chain without a printing tier; the TUI shows the
// text itself when nothing else took it.
func tuiSharer() share.Sharer {
	return share.Chain{&share.Opener{}, share.Clipboard{}, share.Prompt{W: io.Discard}}
}

func (m tuiModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return m.tick()
}

func (m tuiModel) vote(o tally.Outcome) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		return voteMsg{outcome: o, remote: sess.Vote(context.Background(), o)}
	}
}

func (m tuiModel) share() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		return shareMsg{result: sess.Share(), text: sess.ShareText()}
	}
}

func (m tuiModel) try(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return func() tea.Msg { return errMsg{err} }
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.BlurMsg:
		if m.sess.Snapshot().Playing {
			m.sess.Hide("focus lost")
			m.message = "stopped: terminal lost focus"
		}

	case tea.KeyMsg:
		next, cmd := m.key(msg)
		next.state = next.sess.Snapshot()
		return next, cmd

	case tickMsg:
		m.frame++
		m.state = m.sess.Snapshot()
		// the spectrum is costlier than the level, a few times a second is enough
		if m.frame%8 == 0 {
			m.peakHz = m.sess.Sampler().PeakHz()
		}
		return m, m.tick()

	case voteMsg:
		m.message = "voted " + msg.outcome.String()
		if !msg.remote {
			m.message += " (counted locally)"
		}

	case shareMsg:
		if msg.result.OK {
			m.message = "shared via " + msg.result.Target
		} else {
			m.message = "copy to share: " + strings.ReplaceAll(msg.text, "\n", " | ")
		}

	case errMsg:
		m.message = "error: " + msg.err.Error()
	}
	return m, nil
}

func (m tuiModel) key(msg tea.KeyMsg) (tuiModel, tea.Cmd) {
	s := m.sess
	cfg := s.Snapshot().Config
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case " ", "enter":
		return m, m.try(s.Toggle())
	case "up":
		s.SetFrequency(cfg.CarrierHz + 100)
	case "down":
		s.SetFrequency(cfg.CarrierHz - 100)
	case "right":
		s.SetFrequency(cfg.CarrierHz + 1000)
	case "left":
		s.SetFrequency(cfg.CarrierHz - 1000)
	case "+", "=":
		s.SetVolume(cfg.Volume + 5)
	case "-", "_":
		s.SetVolume(cfg.Volume - 5)
	case "m":
		next := signal.FM
		if cfg.Mode == signal.FM {
			next = signal.Tone
		}
		return m, m.try(s.SetMode(next))
	case "w":
		s.SetCarrierWave(cfg.CarrierWave.Next())
	case "W":
		s.SetModWave(cfg.Modulation.Wave.Next())
	case "]":
		s.SetRate(cfg.Modulation.RateHz + 5)
	case "[":
		s.SetRate(cfg.Modulation.RateHz - 5)
	case "}":
		s.SetDepth(nominalDepth(cfg) + 50)
	case "{":
		s.SetDepth(math.Max(nominalDepth(cfg)-50, 1))
	case "0":
		s.SetDepth(0)
	case "g":
		return m, m.try(s.SetAudibleDebug(!cfg.Modulation.AudibleDebug))
	case "d":
		return m, m.try(s.SetDistortion(!cfg.Distortion.Enabled))
	case ".":
		s.SetDrive(cfg.Distortion.Drive + 0.05)
	case ",":
		s.SetDrive(cfg.Distortion.Drive - 0.05)
	case "b":
		return m, m.try(s.TestBeep())
	case "1":
		return m, m.vote(tally.Worked)
	case "2":
		return m, m.vote(tally.NoEffect)
	case "3":
		return m, m.vote(tally.Unknown)
	case "s":
		return m, m.share()
	case "t":
		m.message = s.TweetURL()
	}
	return m, nil
}

func renderMeter(level float64, width int) string {
	filled := int(level*float64(width) + 0.5)
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			b.WriteString(idleStyle.Render("·"))
			continue
		}
		c := meterColors[i*len(meterColors)/width]
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render("█"))
	}
	return b.String()
}

func renderChart(c tally.Counts, width int) string {
	max := 1
	for _, o := range []tally.Outcome{tally.Worked, tally.NoEffect, tally.Unknown} {
		if n := c.Get(o); n > max {
			max = n
		}
	}
	var lines []string
	for _, o := range []tally.Outcome{tally.Worked, tally.NoEffect, tally.Unknown} {
		n := c.Get(o)
		bar := strings.Repeat("█", n*width/max)
		lines = append(lines, fmt.Sprintf("%-10s %s %d", labelStyle.Render(o.String()), barStyles[o].Render(bar), n))
	}
	return strings.Join(lines, "\n")
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	st := m.state
	cfg := st.Config
	r := st.Effective

	meterWidth := 40
	if m.width-8 < meterWidth {
		meterWidth = max(10, m.width-8)
	}

	status := idleStyle.Render("■ stopped")
	if st.Playing {
		status = playingStyle.Render("● playing")
	}

	sig := fmt.Sprintf("%s  %s %.0f Hz  vol %.0f%%  gain %.4f",
		strings.ToUpper(cfg.Mode.String()), cfg.CarrierWave, cfg.CarrierHz, cfg.Volume, signal.MasterGain(cfg.Volume))
	var fm string
	if cfg.Mode == signal.FM {
		fm = fmt.Sprintf("mod %s  rate %.1f Hz  depth %.0f Hz", cfg.Modulation.Wave, r.RateHz, r.DepthHz)
		if cfg.Modulation.DepthHz == 0 {
			fm += " (auto)"
		}
		if r.Debug {
			fm += fmt.Sprintf("  audible debug: %.0f Hz carrier", r.CarrierHz)
		}
	}
	dist := "distortion off"
	if cfg.Distortion.Enabled {
		dist = fmt.Sprintf("distortion drive %.2f", cfg.Distortion.Drive)
	}

	peak := "-"
	if st.Playing && m.peakHz > 0 {
		peak = fmt.Sprintf("%.0f Hz", m.peakHz)
	}

	sections := []string{
		titleStyle.Render("skeeter") + "  " + status,
		sig,
	}
	if fm != "" {
		sections = append(sections, fm)
	}
	sections = append(sections,
		dist,
		"",
		labelStyle.Render("level ")+renderMeter(st.Level, meterWidth)+"  peak "+peak,
		"",
		boxStyle.Render(renderChart(st.Counts, meterWidth/2)+"\n"+helpStyle.Render(st.Status.String())),
	)
	if m.message != "" {
		sections = append(sections, msgStyle.Render(m.message))
	}
	sections = append(sections, "",
		helpStyle.Render("space start/stop  ↑↓ ±100Hz  ←→ ±1kHz  +/- vol  m mode  w/W wave  [ ] rate  { } depth  0 auto depth"),
		helpStyle.Render("d dist  , . drive  g debug  b beep  1 worked  2 no effect  3 unknown  s share  t tweet  q quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// nominalDepth is the depth the user hears with audible debug off, so depth
// keys step from the stored setting rather than the debug remap.
func nominalDepth(cfg signal.Config) float64 {
	return signal.EffectiveDepth(cfg.Modulation.DepthHz, cfg.CarrierHz)
}
