package tally

import (
	"context"
	"sync"
)

// Memory is an in-process Remote. Setting a failure makes every call fail
// until it is cleared, which models an unreachable backend.
type Memory struct {
	mu      sync.Mutex
	records []Record
	counts  Counts
	subs    map[int]memorySub
	nextSub int
	fail    error
}

type memorySub struct {
	fn    func(Counts)
	onErr func(error)
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]memorySub)}
}

// SetFailure makes the remote unreachable, telling subscribers. Clearing it
// pushes the current snapshot to every subscriber.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	was := m.fail
	m.fail = err
	snap := m.counts
	subs := make([]memorySub, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		switch {
		case err != nil && was == nil:
			if sub.onErr != nil {
				sub.onErr(err)
			}
		case err == nil && was != nil:
			sub.fn(snap)
		}
	}
}

func (m *Memory) AppendVoteRecord(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) IncrementAggregate(ctx context.Context, o Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.fail != nil {
		m.mu.Unlock()
		return m.fail
	}
	m.counts.Add(o, 1)
	snap := m.counts
	subs := make([]memorySub, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
	return nil
}

func (m *Memory) SubscribeAggregate(ctx context.Context, fn func(Counts), onErr func(error)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.fail != nil {
		m.mu.Unlock()
		return nil, m.fail
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = memorySub{fn: fn, onErr: onErr}
	snap := m.counts
	m.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *Memory) Aggregate(ctx context.Context) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return Counts{}, m.fail
	}
	return m.counts, nil
}

func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}
