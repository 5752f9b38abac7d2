package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/pgutil"
)

// New opens the store selected by cfg.Cache.Driver. The returned func releases
// any underlying connection.
func New(cfg *config.Config, logger *zap.Logger) (Store, func() error, error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverFile, "":
		logger.Info("Using file event cache", zap.String("dir", cfg.Cache.Dir))
		return NewFileStore(cfg.Cache.Dir, logger), func() error { return nil }, nil
	case config.CacheDriverPostgres:
		db, err := pgutil.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using postgres event cache",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database))
		return NewPGStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
