package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	voteFile *os.File
	logMu    sync.RWMutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: SKEETER_LOG_PATH environment variable
	envPath := os.Getenv("SKEETER_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	votePath := filepath.Join(dir, "votes_log.txt")
	voteFile, err = os.OpenFile(votePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if voteFile != nil {
		voteFile.Close()
		voteFile = nil
	}
	logReady = false
}

// emit runs fn against the diagnostics logger while holding it open. Writers
// share the read lock; Close waits for them.
func emit(fn func(l *zerolog.Logger)) {
	logMu.RLock()
	defer logMu.RUnlock()
	if !logReady {
		return
	}
	fn(&diagLog)
}

func Info(msg string) {
	emit(func(l *zerolog.Logger) { l.Info().Msg(msg) })
}

func Infof(format string, args ...any) {
	emit(func(l *zerolog.Logger) { l.Info().Msg(fmt.Sprintf(format, args...)) })
}

func Error(msg string) {
	emit(func(l *zerolog.Logger) { l.Error().Msg(msg) })
}

func Errorf(format string, args ...any) {
	emit(func(l *zerolog.Logger) { l.Error().Msg(fmt.Sprintf(format, args...)) })
}

func Warn(msg string) {
	emit(func(l *zerolog.Logger) { l.Warn().Msg(msg) })
}

func Warnf(format string, args ...any) {
	emit(func(l *zerolog.Logger) { l.Warn().Msg(fmt.Sprintf(format, args...)) })
}

func SessionStart(device string, sampleRate int, remote string) {
	emit(func(l *zerolog.Logger) {
		l.Info().
			Str("device", device).
			Int("sample_rate", sampleRate).
			Str("remote", remote).
			Msg("session_start")
	})
}

func SessionEnd(votes int) {
	emit(func(l *zerolog.Logger) {
		l.Info().
			Int("votes", votes).
			Msg("session_end")
	})
}

func GraphStarted(gen uint64, mode string, carrierHz, rateHz, depthHz, gain float64, distortion bool) {
	emit(func(l *zerolog.Logger) {
		ev := l.Info().
			Uint64("gen", gen).
			Str("mode", mode).
			Float64("carrier_hz", carrierHz).
			Float64("gain", gain).
			Bool("distortion", distortion)
		if mode == "fm" {
			ev = ev.Float64("rate_hz", rateHz).Float64("depth_hz", depthHz)
		}
		ev.Msg("graph_start")
	})
}

func GraphStopped(gen uint64, reason string) {
	emit(func(l *zerolog.Logger) {
		l.Info().
			Uint64("gen", gen).
			Str("reason", reason).
			Msg("graph_stop")
	})
}

func VoteCast(outcome string, freq float64, mode string, remote bool) {
	emit(func(l *zerolog.Logger) {
		l.Info().
			Str("outcome", outcome).
			Float64("freq", freq).
			Str("mode", mode).
			Bool("remote", remote).
			Msg("vote")

		line := fmt.Sprintf("%s\t[%d]\t%s\t%.0f\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, outcome, freq, mode)
		voteFile.WriteString(line)
	})
}
