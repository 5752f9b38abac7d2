// Package syncer brings the cached event log of a mixer instance up to date
// with the chain, fetching missing block ranges in fixed-size chunks.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/internal/metrics"
	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/cache"
	"github.com/chainsafe/tornado-prover/pkg/events"
)

// DefaultChunkSize is the widest block range requested in one log query.
const DefaultChunkSize uint64 = 300000

// EventSource provides chain head and historical mixer logs.
type EventSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	PastEvents(ctx context.Context, kind events.Kind, from, to uint64) ([]events.RawEvent, error)
}

// Options configures a Syncer.
type Options struct {
	ChunkSize uint64
	// Confirmations is subtracted from the head to choose the sync target.
	Confirmations uint64
}

// Result describes one completed Sync.
type Result struct {
	Key events.CacheKey
	// Records is the full cached log after the sync, in append order.
	Records []events.Record
	// Cursor is the last block covered; equals Target on success.
	Cursor   uint64
	Target   uint64
	Chunks   int
	Appended int
}

// Syncer synchronises cache keys one chunk at a time. Calls for different keys
// may run concurrently; calls for the same key are serialised.
type Syncer struct {
	store  cache.Store
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	cursors map[events.CacheKey]uint64
	keyLock map[events.CacheKey]*sync.Mutex
}

// New creates a Syncer over store.
func New(store cache.Store, opts Options, logger *zap.Logger) *Syncer {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Syncer{
		store:   store,
		opts:    opts,
		logger:  logger,
		cursors: make(map[events.CacheKey]uint64),
		keyLock: make(map[events.CacheKey]*sync.Mutex),
	}
}

// Store returns the underlying event cache.
func (s *Syncer) Store() cache.Store {
	return s.store
}

func (s *Syncer) lockKey(key events.CacheKey) func() {
	s.mu.Lock()
	l, ok := s.keyLock[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLock[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Cursor returns the last block known to be covered for key: the larger of
// the durable cursor derived from the cache and the in-process cursor.
func (s *Syncer) Cursor(ctx context.Context, key events.CacheKey) (uint64, error) {
	durable, err := s.store.Cursor(ctx, key)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(durable, s.cursors[key]), nil
}

func (s *Syncer) advance(key events.CacheKey, block uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if block > s.cursors[key] {
		s.cursors[key] = block
	}
}

// Forget drops the in-process cursor for key, e.g. after the cache was reset.
func (s *Syncer) Forget(key events.CacheKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, key)
}

// Sync fetches every event of key.Kind emitted after the cursor up to the
// current target block and appends them to the cache. Logs before deployBlock
// are never requested.
func (s *Syncer) Sync(ctx context.Context, source EventSource, key events.CacheKey, deployBlock uint64) (res *Result, err error) {
	unlock := s.lockKey(key)
	defer unlock()

	kind := key.Kind.String()
	started := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.SyncErrors.WithLabelValues(kind, apperrors.CategoryOf(err).String()).Inc()
		}
	}()

	cursor, err := s.Cursor(ctx, key)
	if err != nil {
		return nil, err
	}

	head, err := source.BlockNumber(ctx)
	if err != nil {
		return nil, apperrors.SyncError(err, "failed to read chain head")
	}
	var target uint64
	if head > s.opts.Confirmations {
		target = head - s.opts.Confirmations
	}

	start := max(cursor+1, deployBlock)
	res = &Result{Key: key, Target: target, Cursor: cursor}

	log := s.logger.With(
		zap.String("key", key.String()),
		zap.Uint64("start_block", start),
		zap.Uint64("target_block", target))

	if start > target {
		log.Debug("Event cache is up to date")
		res.Cursor = max(cursor, target)
		s.advance(key, res.Cursor)
	} else {
		log.Info("Syncing events", zap.Uint64("chunk_size", s.opts.ChunkSize))
		for _, r := range ChunkRanges(start, target, s.opts.ChunkSize) {
			if err := ctx.Err(); err != nil {
				return nil, apperrors.SyncError(err, "sync interrupted")
			}

			from, to := r[0], r[1]
			n, err := s.syncChunk(ctx, source, key, from, to)
			if err != nil {
				metrics.SyncChunksTotal.WithLabelValues(kind, "failed").Inc()
				return nil, err
			}
			metrics.SyncChunksTotal.WithLabelValues(kind, "ok").Inc()
			metrics.BlocksScanned.WithLabelValues(kind).Add(float64(to - from + 1))

			s.advance(key, to)
			res.Cursor = to
			res.Chunks++
			res.Appended += n

			log.Debug("Synced chunk",
				zap.Uint64("from_block", from),
				zap.Uint64("to_block", to),
				zap.Int("events", n))
		}
		log.Info("Events synced",
			zap.Int("chunks", res.Chunks),
			zap.Int("appended", res.Appended))
	}

	metrics.CacheCursor.WithLabelValues(kind, key.Currency, key.Amount).Set(float64(res.Cursor))

	res.Records, err = s.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// syncChunk fetches, validates, normalises and appends the events of [from, to].
// Nothing is appended unless the whole chunk is valid.
func (s *Syncer) syncChunk(ctx context.Context, source EventSource, key events.CacheKey, from, to uint64) (int, error) {
	raws, err := source.PastEvents(ctx, key.Kind, from, to)
	if err != nil {
		return 0, apperrors.SyncError(err, fmt.Sprintf("failed to fetch %s events [%d, %d]", key.Kind, from, to))
	}

	live := make([]events.RawEvent, 0, len(raws))
	for _, ev := range raws {
		if ev.Removed {
			continue
		}
		if ev.Kind != key.Kind {
			return 0, apperrors.SyncError(
				fmt.Errorf("got %s event, want %s", ev.Kind, key.Kind), "unexpected event kind")
		}
		if ev.BlockNumber < from || ev.BlockNumber > to {
			return 0, apperrors.SyncError(
				fmt.Errorf("event in block %d outside requested range [%d, %d]", ev.BlockNumber, from, to),
				"provider returned out-of-range event")
		}
		live = append(live, ev)
	}

	sort.SliceStable(live, func(i, j int) bool {
		if live[i].BlockNumber != live[j].BlockNumber {
			return live[i].BlockNumber < live[j].BlockNumber
		}
		return live[i].LogIndex < live[j].LogIndex
	})

	records := make([]events.Record, 0, len(live))
	for _, ev := range live {
		rec, err := events.Normalize(ev)
		if err != nil {
			return 0, apperrors.SyncError(err, "failed to normalise event")
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return 0, nil
	}
	if err := s.store.Append(ctx, key, records); err != nil {
		if apperrors.Is(err, apperrors.CategoryStorage) {
			return 0, err
		}
		return 0, apperrors.StorageError(err, "failed to append events")
	}

	metrics.EventsAppended.WithLabelValues(key.Kind.String(), key.Currency, key.Amount).Add(float64(len(records)))
	return len(records), nil
}

// ChunkRanges returns the [from, to] ranges Sync would request for start and target.
func ChunkRanges(start, target, chunkSize uint64) [][2]uint64 {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	var out [][2]uint64
	for from := start; from <= target; {
		to := min(from+chunkSize-1, target)
		out = append(out, [2]uint64{from, to})
		if to == target {
			break
		}
		from = to + 1
	}
	return out
}

