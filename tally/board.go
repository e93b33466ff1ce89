package tally

import "sync"

type Status int

const (
	StatusLocal Status = iota
	StatusConnecting
	StatusRealtime
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusRealtime:
		return "realtime tally"
	case StatusDegraded:
		return "local only (sync failed)"
	default:
		return "local only (not configured)"
	}
}

// Board decides which tally is on display. The remote snapshot wins while the
// remote is reachable; otherwise the local tally is shown. Remote snapshots
// are ordered by receipt: whatever arrived last is authoritative.
type Board struct {
	mu       sync.Mutex
	status   Status
	remote   Counts
	local    Counts
	seq      uint64
	onChange func(Counts, Status)
}

func NewBoard(onChange func(Counts, Status)) *Board {
	return &Board{onChange: onChange}
}

func (b *Board) update(fn func()) {
	b.mu.Lock()
	fn()
	counts, status := b.display()
	cb := b.onChange
	b.mu.Unlock()

	if cb != nil {
		cb(counts, status)
	}
}

func (b *Board) Connecting() {
	b.update(func() { b.status = StatusConnecting })
}

// Receive records a pushed snapshot from the remote subscription.
func (b *Board) Receive(c Counts) {
	b.update(func() {
		b.seq++
		b.remote = c
		b.status = StatusRealtime
	})
}

// Ticket marks the start of an on-demand read.
func (b *Board) Ticket() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// ReceiveReply applies the result of a read started at ticket, unless a newer
// snapshot arrived while it was in flight. It reports whether it was applied.
func (b *Board) ReceiveReply(ticket uint64, c Counts) bool {
	b.mu.Lock()
	if b.seq != ticket {
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	applied := false
	b.update(func() {
		if b.seq != ticket {
			return
		}
		b.seq++
		b.remote = c
		b.status = StatusRealtime
		applied = true
	})
	return applied
}

func (b *Board) ApplyLocal(c Counts) {
	b.update(func() { b.local = c })
}

// MarkFailed switches the display to the local tally.
func (b *Board) MarkFailed() {
	b.update(func() { b.status = StatusDegraded })
}

func (b *Board) display() (Counts, Status) {
	if b.status == StatusRealtime {
		return b.remote, b.status
	}
	return b.local, b.status
}

func (b *Board) Display() (Counts, Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.display()
}
