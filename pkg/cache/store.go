// Package cache persists the append-only event logs of mixer instances.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainsafe/tornado-prover/pkg/events"
)

var (
	// ErrNonMonotonic is returned when an append would put a record before the log tail.
	ErrNonMonotonic = errors.New("records are not in non-decreasing block order")
	// ErrKindMismatch is returned when a record does not belong to the key's event kind.
	ErrKindMismatch = errors.New("record kind does not match cache key")
)

// Store is a per-key append-only event log.
// A Store does not serialise writers across processes; a single writer per key is assumed.
type Store interface {
	// Load returns the log for key in append order. An absent log is empty.
	Load(ctx context.Context, key events.CacheKey) ([]events.Record, error)
	// Append adds records to the end of the log. Either all records are
	// persisted or none are.
	Append(ctx context.Context, key events.CacheKey, records []events.Record) error
	// Cursor returns the highest block number in the log, 0 when empty.
	Cursor(ctx context.Context, key events.CacheKey) (uint64, error)
	// Reset discards the log for key.
	Reset(ctx context.Context, key events.CacheKey) error
}

// checkAppend validates that records may follow a log whose last block is tail.
func checkAppend(key events.CacheKey, tail uint64, records []events.Record) error {
	prev := tail
	for i, r := range records {
		if r == nil {
			return fmt.Errorf("record %d is nil", i)
		}
		if r.Kind() != key.Kind {
			return fmt.Errorf("%w: record %d is %s, key is %s", ErrKindMismatch, i, r.Kind(), key.Kind)
		}
		if r.Block() < prev {
			return fmt.Errorf("%w: record %d at block %d after block %d", ErrNonMonotonic, i, r.Block(), prev)
		}
		prev = r.Block()
	}
	return nil
}
