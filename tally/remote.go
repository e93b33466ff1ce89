package tally

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("remote tally not configured")

// Remote is the shared vote store.
type Remote interface {
	AppendVoteRecord(ctx context.Context, rec Record) error
	// IncrementAggregate adds one to the outcome's shared counter atomically.
	IncrementAggregate(ctx context.Context, o Outcome) error
	// SubscribeAggregate pushes aggregate snapshots to fn until the returned
	// function is called. onErr, if set, is told when the subscription stops
	// receiving updates; the next snapshot pushed to fn means it recovered.
	SubscribeAggregate(ctx context.Context, fn func(Counts), onErr func(error)) (unsubscribe func(), err error)
}

// Reader is implemented by remotes that can read the aggregate on demand.
type Reader interface {
	Aggregate(ctx context.Context) (Counts, error)
}
