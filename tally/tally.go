// Package tally counts effectiveness votes locally and, when a remote store
// is reachable, in a shared aggregate.
package tally

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Outcome int

const (
	Worked Outcome = iota
	NoEffect
	Unknown
)

// keys are the stored field names, labels are for display
var (
	outcomeKeys   = [...]string{"good", "bad", "unknown"}
	outcomeLabels = [...]string{"Worked", "No Effect", "Unknown"}
)

func (o Outcome) Key() string {
	if o < Worked || o > Unknown {
		return "unknown"
	}
	return outcomeKeys[o]
}

func (o Outcome) String() string {
	if o < Worked || o > Unknown {
		return "Unknown"
	}
	return outcomeLabels[o]
}

func ParseOutcome(s string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "worked", "good", "yes":
		return Worked, true
	case "noeffect", "no-effect", "no_effect", "bad", "no":
		return NoEffect, true
	case "unknown", "dunno", "?":
		return Unknown, true
	}
	return Unknown, false
}

type Counts struct {
	Worked   int
	NoEffect int
	Unknown  int
}

func (c Counts) Get(o Outcome) int {
	switch o {
	case Worked:
		return c.Worked
	case NoEffect:
		return c.NoEffect
	default:
		return c.Unknown
	}
}

func (c *Counts) Add(o Outcome, n int) {
	switch o {
	case Worked:
		c.Worked += n
	case NoEffect:
		c.NoEffect += n
	default:
		c.Unknown += n
	}
}

func (c Counts) Total() int {
	return c.Worked + c.NoEffect + c.Unknown
}

// Record is one cast vote. Records are append only.
type Record struct {
	ID          string
	Outcome     Outcome
	FrequencyHz float64
	Mode        string
	Timestamp   time.Time
	// TZOffsetMin is minutes to add to local time to get UTC.
	TZOffsetMin int
	Agent       string
}

func NewRecord(o Outcome, hz float64, mode string, now time.Time, agent string) Record {
	_, offset := now.Zone()
	return Record{
		ID:          uuid.NewString(),
		Outcome:     o,
		FrequencyHz: hz,
		Mode:        mode,
		Timestamp:   now.UTC(),
		TZOffsetMin: -offset / 60,
		Agent:       agent,
	}
}

// Local is the in-process tally used when the remote store is unavailable.
type Local struct {
	mu     sync.Mutex
	counts Counts
}

func (l *Local) Increment(o Outcome) Counts {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts.Add(o, 1)
	return l.counts
}

func (l *Local) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts
}
