package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gopxl/beep"
	"github.com/rakyll/portmidi"

	"github.com/whyrusleeping/skeeter/log"
	"github.com/whyrusleeping/skeeter/session"
	"github.com/whyrusleeping/skeeter/share"
	"github.com/whyrusleeping/skeeter/signal"
	"github.com/whyrusleeping/skeeter/tally"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, "usage: skeeter [flags] [tui|repl|scope|render]\n\n")
	flag.PrintDefaults()
}

func main() {
	sampleRateFlag := flag.Int("samplerate", 48000, "Output sample rate in Hz")
	bufferFlag := flag.Duration("buffer", 50*time.Millisecond, "Speaker buffer length")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	configFlag := flag.String("config", "", "TOML config file (default: $SKEETER_CONFIG or the user config dir)")
	fpsFlag := flag.Int("fps", 30, "Meter frame rate")
	midiFlag := flag.Int("midi", -1, "portmidi input device id for knob control, -1 disables")
	outFlag := flag.String("o", "skeeter.wav", "Output file for render")
	durationFlag := flag.Duration("duration", 5*time.Second, "Length of the render")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("skeeter %s\n", version)
		return
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *sampleRateFlag < signal.MinSampleRate {
		fmt.Fprintf(os.Stderr, "Error: sample rate %d too low for a %d Hz carrier, need at least %d\n",
			*sampleRateFlag, signal.DefaultCarrierHz, signal.MinSampleRate)
		os.Exit(1)
	}
	sr := beep.SampleRate(*sampleRateFlag)

	mode := "tui"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}

	if mode == "render" {
		if err := renderWAV(*outFlag, cfg.Signal, sr, *durationFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *outFlag)
		return
	}

	var remote tally.Remote
	remoteName := "local"
	if fs, err := tally.NewFirestore(cfg.Firestore, nil); err == nil {
		remote = fs
		remoteName = "firestore:" + cfg.Firestore.ProjectID
	}

	dev := signal.NewSpeakerDevice(sr, *bufferFlag)
	defer dev.Close()

	var sharer share.Sharer
	if mode == "tui" {
		sharer = tuiSharer()
	}

	sess := session.New(session.Options{
		Device:    dev,
		Config:    cfg.Signal,
		Remote:    remote,
		Scheduler: signal.TickerScheduler{Interval: time.Second / time.Duration(max(*fpsFlag, 1))},
		Sharer:    sharer,
		Agent:     fmt.Sprintf("skeeter/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH),
	})
	defer sess.Close()

	log.SessionStart("speaker", int(sr), remoteName)

	// the subscription lives as long as the session; each request has its
	// own client timeout
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := sess.Connect(ctx); err != nil {
			log.Warnf("remote tally unavailable: %v", err)
		}
	}()

	if *midiFlag >= 0 {
		portmidi.Initialize()
		defer portmidi.Terminate()
		mc, err := OpenController(portmidi.DeviceID(*midiFlag), sess)
		if err != nil {
			log.Warnf("midi: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			defer mc.Shutdown()
		}
	}

	sigs := make(chan os.Signal, 1)
	ossignal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		sess.Hide("shutdown")
		sess.Close()
		log.Close()
		os.Exit(0)
	}()

	switch mode {
	case "tui":
		if _, err := NewTUIProgram(sess, *fpsFlag).Run(); err != nil {
			log.Errorf("TUI error: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	case "repl":
		runREPL(sess)
	case "scope":
		if err := runScope(sess); err != nil {
			log.Errorf("scope: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	default:
		usage()
		os.Exit(2)
	}
	sess.Hide("shutdown")
}
