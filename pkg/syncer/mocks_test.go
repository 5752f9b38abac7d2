package syncer

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsafe/tornado-prover/pkg/cache"
	"github.com/chainsafe/tornado-prover/pkg/events"
)

// MockEventSource is a scripted EventSource
type MockEventSource struct {
	Head uint64
	// Events by kind; PastEvents returns those within the requested range.
	Events map[events.Kind][]events.RawEvent

	BlockNumberFunc func(ctx context.Context) (uint64, error)
	PastEventsFunc  func(ctx context.Context, kind events.Kind, from, to uint64) ([]events.RawEvent, error)

	Calls [][2]uint64
}

func (m *MockEventSource) BlockNumber(ctx context.Context) (uint64, error) {
	if m.BlockNumberFunc != nil {
		return m.BlockNumberFunc(ctx)
	}
	return m.Head, nil
}

func (m *MockEventSource) PastEvents(ctx context.Context, kind events.Kind, from, to uint64) ([]events.RawEvent, error) {
	m.Calls = append(m.Calls, [2]uint64{from, to})
	if m.PastEventsFunc != nil {
		return m.PastEventsFunc(ctx, kind, from, to)
	}
	var out []events.RawEvent
	for _, ev := range m.Events[kind] {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

// failingStore wraps a Store and fails appends after a number of successes
type failingStore struct {
	inner     cache.Store
	okAppends int
	appends   int
}

var errDiskFull = errors.New("no space left on device")

func (f *failingStore) Load(ctx context.Context, key events.CacheKey) ([]events.Record, error) {
	return f.inner.Load(ctx, key)
}

func (f *failingStore) Append(ctx context.Context, key events.CacheKey, records []events.Record) error {
	f.appends++
	if f.appends > f.okAppends {
		return errDiskFull
	}
	return f.inner.Append(ctx, key, records)
}

func (f *failingStore) Cursor(ctx context.Context, key events.CacheKey) (uint64, error) {
	return f.inner.Cursor(ctx, key)
}

func (f *failingStore) Reset(ctx context.Context, key events.CacheKey) error {
	return f.inner.Reset(ctx, key)
}

func depositEvent(block uint64, logIndex uint, leaf uint32) events.RawEvent {
	return events.RawEvent{
		Kind:        events.KindDeposit,
		BlockNumber: block,
		LogIndex:    logIndex,
		TxHash:      common.BigToHash(common.Big1),
		Deposit: &events.DepositLog{
			Commitment: common.BigToHash(common.Big2),
			LeafIndex:  leaf,
		},
	}
}
