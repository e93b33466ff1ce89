package share

import (
	"bytes"
	"errors"
	"net/url"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/whyrusleeping/skeeter/tally"
)

func TestText(t *testing.T) {
	got := Text(nil, "fm", 18000)
	want := "Mosquito Repellent Test: Testing\nMode: fm  Frequency: 18000 Hz\n#MosquitoTest2025"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	o := tally.NoEffect
	if got := Text(&o, "tone", 19000.5); !strings.HasPrefix(got, Title+": No Effect\nMode: tone  Frequency: 19000.5 Hz") {
		t.Errorf("got %q", got)
	}
}

func TestTweetText(t *testing.T) {
	w, n := tally.Worked, tally.NoEffect
	tests := []struct {
		last *tally.Outcome
		want string
	}{
		{nil, "Testing 17000 Hz #KGNINJA #FMMoskyt"},
		{&w, "Worked at 17000 Hz #KGNINJA #FMMoskyt"},
		{&n, "Testing 17000 Hz #KGNINJA #FMMoskyt"},
	}
	for _, tt := range tests {
		if got := TweetText(tt.last, 17000); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestIntentURL(t *testing.T) {
	text := "Worked at 18000 Hz #KGNINJA"
	u, err := url.Parse(IntentURL(text))
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "twitter.com" || u.Path != "/intent/tweet" {
		t.Errorf("url = %s", u)
	}
	if u.Query().Get("text") != text {
		t.Errorf("text = %q", u.Query().Get("text"))
	}
}

type fakeSharer struct {
	name  string
	err   error
	calls int
}

func (f *fakeSharer) Name() string { return f.name }

func (f *fakeSharer) Share(string) error {
	f.calls++
	return f.err
}

func TestChainFallsThrough(t *testing.T) {
	native := &fakeSharer{name: "native", err: ErrUnavailable}
	clip := &fakeSharer{name: "clipboard"}
	var buf bytes.Buffer
	c := Chain{native, clip, Prompt{W: &buf}}

	r := c.Deliver("hello")
	if !r.OK || r.Target != "clipboard" {
		t.Errorf("result = %+v", r)
	}
	if native.calls != 1 || buf.Len() != 0 {
		t.Error("chain did not stop at clipboard")
	}
}

func TestChainManualPrompt(t *testing.T) {
	var buf bytes.Buffer
	c := Chain{
		&fakeSharer{name: "native", err: ErrUnavailable},
		&fakeSharer{name: "clipboard", err: errors.New("no display")},
		Prompt{W: &buf},
	}

	r := c.Deliver("text to copy")
	if r.OK || r.Target != "prompt" {
		t.Errorf("result = %+v", r)
	}
	if !strings.Contains(buf.String(), "text to copy") {
		t.Errorf("prompt output = %q", buf.String())
	}
	if err := c.Share("text to copy"); !errors.Is(err, ErrManual) {
		t.Errorf("err = %v", err)
	}
}

func TestChainEmpty(t *testing.T) {
	if r := (Chain{}).Deliver("x"); r.OK {
		t.Error("empty chain reported success")
	}
}

func TestOpenerMissingCommand(t *testing.T) {
	o := &Opener{Command: "skeeter-no-such-opener"}
	if err := o.Share("x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestOpenerRunsIntent(t *testing.T) {
	var gotArgs []string
	o := &Opener{Command: "sh", run: func(name string, args ...string) error {
		gotArgs = args
		return nil
	}}
	if err := o.Share("Testing 18000 Hz"); err != nil {
		t.Fatal(err)
	}
	if len(gotArgs) != 1 || !strings.HasPrefix(gotArgs[0], Intent+"?text=") {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestStartReapedWaits(t *testing.T) {
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true binary")
	}
	done, err := startReaped(path, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("exit = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("opener was never waited on")
	}
}
