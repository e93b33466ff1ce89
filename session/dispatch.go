package session

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

type Command struct {
	Name  string
	Usage string
	Help  string
	run   func(ctx context.Context, s *Session, args []string) (string, error)
}

var commands []Command

func init() {
	commands = []Command{
		{"start", "start", "start playing", func(_ context.Context, s *Session, _ []string) (string, error) {
			return "", s.Start()
		}},
		{"stop", "stop", "stop playing", func(_ context.Context, s *Session, _ []string) (string, error) {
			s.Stop()
			return "", nil
		}},
		{"toggle", "toggle", "start or stop", func(_ context.Context, s *Session, _ []string) (string, error) {
			return "", s.Toggle()
		}},
		{"freq", "freq <hz>", "carrier frequency", func(_ context.Context, s *Session, args []string) (string, error) {
			s.SetFrequency(number(args))
			return fmt.Sprintf("carrier %.0f Hz", s.mgr.Config().CarrierHz), nil
		}},
		{"vol", "vol <percent>", "volume 0-100", func(_ context.Context, s *Session, args []string) (string, error) {
			s.SetVolume(number(args))
			return fmt.Sprintf("volume %.0f%%", s.mgr.Config().Volume), nil
		}},
		{"mode", "mode tone|fm", "plain tone or FM carrier", func(_ context.Context, s *Session, args []string) (string, error) {
			m := s.mgr.Config().Mode
			if len(args) == 0 {
				if m == signal.Tone {
					m = signal.FM
				} else {
					m = signal.Tone
				}
			} else {
				m, _ = signal.ParseMode(args[0])
			}
			return "mode " + m.String(), s.SetMode(m)
		}},
		{"wave", "wave sine|square|sawtooth|triangle", "carrier waveform", func(_ context.Context, s *Session, args []string) (string, error) {
			w := waveform(args, s.mgr.Config().CarrierWave)
			s.SetCarrierWave(w)
			return "carrier wave " + w.String(), nil
		}},
		{"modwave", "modwave sine|square|sawtooth|triangle", "modulator waveform", func(_ context.Context, s *Session, args []string) (string, error) {
			w := waveform(args, s.mgr.Config().Modulation.Wave)
			s.SetModWave(w)
			return "modulator wave " + w.String(), nil
		}},
		{"rate", "rate <hz>", "modulation rate", func(_ context.Context, s *Session, args []string) (string, error) {
			s.SetRate(number(args))
			return fmt.Sprintf("rate %.1f Hz", s.mgr.Config().Modulation.RateHz), nil
		}},
		{"depth", "depth <hz>", "modulation depth, 0 for auto", func(_ context.Context, s *Session, args []string) (string, error) {
			s.SetDepth(number(args))
			return fmt.Sprintf("depth %.0f Hz", s.mgr.Effective().DepthHz), nil
		}},
		{"debug", "debug [on|off]", "audible FM debug", func(_ context.Context, s *Session, args []string) (string, error) {
			on := switchArg(args, !s.mgr.Config().Modulation.AudibleDebug)
			return "audible debug " + onOff(on), s.SetAudibleDebug(on)
		}},
		{"dist", "dist [on|off]", "distortion", func(_ context.Context, s *Session, args []string) (string, error) {
			on := switchArg(args, !s.mgr.Config().Distortion.Enabled)
			return "distortion " + onOff(on), s.SetDistortion(on)
		}},
		{"drive", "drive <0-1>", "distortion drive", func(_ context.Context, s *Session, args []string) (string, error) {
			s.SetDrive(number(args))
			return fmt.Sprintf("drive %.2f", s.mgr.Config().Distortion.Drive), nil
		}},
		{"beep", "beep", "1 kHz test beep", func(_ context.Context, s *Session, _ []string) (string, error) {
			return "", s.TestBeep()
		}},
		{"vote", "vote worked|noeffect|unknown", "vote on the current setting", func(ctx context.Context, s *Session, args []string) (string, error) {
			if len(args) == 0 {
				return "", fmt.Errorf("vote needs an outcome")
			}
			o, ok := tally.ParseOutcome(args[0])
			if !ok {
				return "", fmt.Errorf("unknown outcome %q", args[0])
			}
			if s.Vote(ctx, o) {
				return "voted " + o.String(), nil
			}
			return "voted " + o.String() + " (counted locally)", nil
		}},
		{"share", "share", "share the result", func(_ context.Context, s *Session, _ []string) (string, error) {
			r := s.Share()
			if r.OK {
				return "shared via " + r.Target, nil
			}
			return "copy the text above to share", nil
		}},
		{"tweet", "tweet", "print the tweet link", func(_ context.Context, s *Session, _ []string) (string, error) {
			return s.TweetURL(), nil
		}},
		{"status", "status", "show the current state", func(_ context.Context, s *Session, _ []string) (string, error) {
			return s.Snapshot().String(), nil
		}},
	}
}

// Commands lists the known commands in display order.
func Commands() []Command {
	return commands
}

func lookup(name string) (Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Dispatch runs one text command against the session and returns a line to
// show the user.
func Dispatch(ctx context.Context, s *Session, line string) (string, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", nil
	}

	cmd, ok := lookup(strings.ToLower(tokens[0]))
	if !ok {
		return "", fmt.Errorf("unknown command %q", tokens[0])
	}
	return cmd.run(ctx, s, tokens[1:])
}

// number parses the first argument. Anything unparseable comes back as NaN,
// which the signal layer replaces with its default.
func number(args []string) float64 {
	if len(args) == 0 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(args[0]), "hz"), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func waveform(args []string, cur signal.Waveform) signal.Waveform {
	if len(args) == 0 {
		return cur.Next()
	}
	w, _ := signal.ParseWaveform(args[0])
	return w
}

func switchArg(args []string, dflt bool) bool {
	if len(args) == 0 {
		return dflt
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true
	case "off", "false", "no", "0":
		return false
	}
	return dflt
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func tokenize(s string) ([]string, error) {
	var out []string
	var wordstart int
	inword := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch {
		case unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]),
			runes[i] == '.', runes[i] == '-', runes[i] == '+', runes[i] == '_':
			if !inword {
				inword = true
				wordstart = i
			}
		case unicode.IsSpace(runes[i]):
			if inword {
				out = append(out, string(runes[wordstart:i]))
				inword = false
			}
		default:
			return nil, fmt.Errorf("invalid character at index %d: %q", i, runes[i])
		}
	}
	if inword {
		out = append(out, string(runes[wordstart:]))
	}
	return out, nil
}

func (st State) String() string {
	var b strings.Builder
	state := "stopped"
	if st.Playing {
		state = "playing"
	}
	fmt.Fprintf(&b, "%s  %s  %.0f Hz %s  vol %.0f%%", state, st.Config.Mode, st.Config.CarrierHz, st.Config.CarrierWave, st.Config.Volume)
	if st.Config.Mode == signal.FM {
		fmt.Fprintf(&b, "  rate %.1f Hz depth %.0f Hz %s", st.Effective.RateHz, st.Effective.DepthHz, st.Config.Modulation.Wave)
		if st.Effective.Debug {
			b.WriteString(" (audible debug)")
		}
	}
	if st.Config.Distortion.Enabled {
		fmt.Fprintf(&b, "  dist %.2f", st.Config.Distortion.Drive)
	}
	fmt.Fprintf(&b, "\nworked %d  no effect %d  unknown %d  [%s]",
		st.Counts.Worked, st.Counts.NoEffect, st.Counts.Unknown, st.Status)
	return b.String()
}
