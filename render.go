package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/whyrusleeping/skeeter/log"
	"github.com/whyrusleeping/skeeter/signal"
)

// renderWAV renders d of the configured signal to a 16 bit stereo WAV file
// without touching the speaker.
func renderWAV(path string, cfg signal.Config, sr beep.SampleRate, d time.Duration) error {
	dev := signal.NewMemoryDevice(sr)
	mgr := signal.NewManager(dev, cfg)
	if err := mgr.Start(cfg); err != nil {
		return err
	}
	defer mgr.Stop()

	fi, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fi.Close()

	if err := wav.Encode(fi, beep.Take(sr.N(d), dev.Source()), beep.Format{
		SampleRate:  sr,
		NumChannels: 2,
		Precision:   2,
	}); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	r := mgr.Effective()
	log.Infof("rendered %s: %s %.0f Hz for %s", path, r.Mode, r.CarrierHz, d)
	return nil
}
