package share

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/whyrusleeping/skeeter/log"
)

var (
	ErrUnavailable = errors.New("share target unavailable")
	// ErrManual means the text was shown for the user to copy by hand.
	ErrManual = errors.New("manual copy required")
)

type Sharer interface {
	Name() string
	Share(text string) error
}

// Opener hands the tweet intent URL to the system URL handler.
type Opener struct {
	// Command overrides the platform opener.
	Command string
	run     func(name string, args ...string) error
}

func openerCommand() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

func (o *Opener) Name() string { return "opener" }

func (o *Opener) Share(text string) error {
	name, args := openerCommand()
	if o.Command != "" {
		name, args = o.Command, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnavailable, name)
	}
	args = append(args, IntentURL(text))

	run := o.run
	if run == nil {
		run = func(name string, args ...string) error {
			_, err := startReaped(name, args...)
			return err
		}
	}
	return run(path, args...)
}

// startReaped starts the command without blocking on it and waits for it in
// the background. The channel yields its exit status.
func startReaped(name string, args ...string) (<-chan error, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()
	return done, nil
}

type Clipboard struct{}

func (Clipboard) Name() string { return "clipboard" }

func (Clipboard) Share(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

// Prompt prints the text so it can be copied by hand. It always reports
// ErrManual once the text is written.
type Prompt struct {
	W io.Writer
}

func (p Prompt) Name() string { return "prompt" }

func (p Prompt) Share(text string) error {
	if p.W == nil {
		return ErrUnavailable
	}
	if _, err := fmt.Fprintf(p.W, "Copy this text to share:\n%s\n", text); err != nil {
		return err
	}
	return ErrManual
}

type Result struct {
	Target string
	OK     bool
}

// Chain tries each sharer in order and stops at the first that delivers.
type Chain []Sharer

func NewChain(prompt io.Writer) Chain {
	return Chain{&Opener{}, Clipboard{}, Prompt{W: prompt}}
}

func (c Chain) Name() string { return "chain" }

func (c Chain) Share(text string) error {
	if r := c.Deliver(text); !r.OK {
		return ErrManual
	}
	return nil
}

// Deliver reports the target that took the text. OK is false when nothing
// delivered automatically, including the manual prompt.
func (c Chain) Deliver(text string) Result {
	var last string
	for _, s := range c {
		err := s.Share(text)
		if err == nil {
			return Result{Target: s.Name(), OK: true}
		}
		last = s.Name()
		if errors.Is(err, ErrManual) {
			return Result{Target: last}
		}
		log.Warnf("share via %s failed: %v", s.Name(), err)
	}
	return Result{Target: last}
}
