package tally

import (
	"context"
	"time"

	"github.com/whyrusleeping/skeeter/log"
)

const defaultWriteTimeout = 5 * time.Second

// Writer casts votes remote first. Any remote failure counts the vote in the
// local tally instead and degrades the board; it is never returned as an
// error.
type Writer struct {
	remote  Remote
	local   *Local
	board   *Board
	timeout time.Duration
}

func NewWriter(remote Remote, local *Local, board *Board) *Writer {
	if local == nil {
		local = &Local{}
	}
	return &Writer{
		remote:  remote,
		local:   local,
		board:   board,
		timeout: defaultWriteTimeout,
	}
}

func (w *Writer) SetTimeout(d time.Duration) {
	w.timeout = d
}

func (w *Writer) Local() *Local {
	return w.local
}

// Cast records one vote and reports whether the remote write succeeded.
func (w *Writer) Cast(ctx context.Context, rec Record) bool {
	if w.remote != nil {
		err := w.castRemote(ctx, rec)
		if err == nil {
			log.VoteCast(rec.Outcome.Key(), rec.FrequencyHz, rec.Mode, true)
			return true
		}
		log.Warnf("vote send failed, fallback local: %v", err)
		if w.board != nil {
			w.board.MarkFailed()
		}
	}

	counts := w.local.Increment(rec.Outcome)
	if w.board != nil {
		w.board.ApplyLocal(counts)
	}
	log.VoteCast(rec.Outcome.Key(), rec.FrequencyHz, rec.Mode, false)
	return false
}

func (w *Writer) castRemote(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.remote.AppendVoteRecord(ctx, rec); err != nil {
		return err
	}
	return w.remote.IncrementAggregate(ctx, rec.Outcome)
}
