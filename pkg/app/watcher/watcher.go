// Package watcher keeps the event caches of every configured instance warm
// and serves their state over HTTP.
package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/internal/metrics"
	"github.com/chainsafe/tornado-prover/pkg/syncer"
	"github.com/chainsafe/tornado-prover/pkg/withdraw"
)

// Service is the part of withdraw.Service the watcher uses.
type Service interface {
	SyncAll(ctx context.Context) ([]*syncer.Result, error)
	Status(ctx context.Context) ([]withdraw.InstanceStatus, error)
}

// Watcher runs SyncAll on a fixed interval.
type Watcher struct {
	svc      Service
	interval time.Duration
	logger   *zap.Logger

	ready  atomic.Bool
	rounds atomic.Int64
}

// New creates a Watcher. A non-positive interval defaults to one minute.
func New(svc Service, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{svc: svc, interval: interval, logger: logger}
}

// IsReady reports whether a full sync round has completed.
func (w *Watcher) IsReady() bool {
	return w.ready.Load()
}

// Rounds returns the number of completed rounds, failed ones included.
func (w *Watcher) Rounds() int64 {
	return w.rounds.Load()
}

// Run syncs immediately and then on every tick until ctx is done.
// Failed rounds are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.round(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.round(ctx)
		}
	}
}

func (w *Watcher) round(ctx context.Context) {
	defer w.rounds.Add(1)
	started := time.Now()
	results, err := w.svc.SyncAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.WatcherRounds.WithLabelValues("failed").Inc()
		w.logger.Error("Sync round failed", zap.Error(err))
		return
	}

	appended := 0
	for _, r := range results {
		appended += r.Appended
	}
	metrics.WatcherRounds.WithLabelValues("ok").Inc()
	if !w.ready.Swap(true) {
		w.logger.Info("Initial sync complete", zap.Duration("took", time.Since(started)))
	}
	w.logger.Debug("Sync round complete",
		zap.Int("logs", len(results)),
		zap.Int("appended", appended),
		zap.Duration("took", time.Since(started)))
}
