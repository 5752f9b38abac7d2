package withdraw

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/cache"
	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/ethereum"
	"github.com/chainsafe/tornado-prover/pkg/proof"
	"github.com/chainsafe/tornado-prover/pkg/syncer"
)

// Open connects to the configured node and event cache and returns a Service
// over them. The returned func releases both connections.
func Open(ctx context.Context, cfg *config.Config, prover proof.Prover, logger *zap.Logger) (*Service, func(), error) {
	client, err := ethereum.NewClient(ctx, &cfg.Ethereum, logger)
	if err != nil {
		return nil, nil, apperrors.SyncError(err, "failed to connect to ethereum node")
	}

	store, closeStore, err := cache.New(cfg, logger)
	if err != nil {
		client.Close()
		return nil, nil, apperrors.StorageError(err, "failed to open event cache")
	}

	s := syncer.New(store, syncer.Options{
		ChunkSize:     cfg.Sync.ChunkSize,
		Confirmations: cfg.Ethereum.Confirmations,
	}, logger)

	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close event cache", zap.Error(err))
		}
		client.Close()
	}
	return NewService(cfg, NewChain(client), s, prover, logger), cleanup, nil
}
