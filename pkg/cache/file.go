package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/events"
)

// FileStore keeps one JSON array file per cache key under a root directory:
// <root>/<networkId>/<Kind>s_<currency>_<amount>.json, e.g. 1/Deposits_eth_0.1.json
type FileStore struct {
	root   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{root: dir, logger: logger}
}

// Path returns the file holding the log for key.
func (s *FileStore) Path(key events.CacheKey) string {
	name := fmt.Sprintf("%ss_%s_%s.json", key.Kind, key.Currency, key.Amount)
	return filepath.Join(s.root, strconv.FormatInt(key.NetworkID, 10), name)
}

func (s *FileStore) Load(_ context.Context, key events.CacheKey) ([]events.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key)
}

func (s *FileStore) load(key events.CacheKey) ([]events.Record, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []events.Record{}, nil
		}
		return nil, apperrors.StorageError(err, "failed to read event cache")
	}

	recs, err := events.DecodeRecords(key.Kind, data)
	if err != nil {
		s.logger.Warn("Event cache is unreadable, treating as empty",
			zap.String("path", path),
			zap.Error(err))
		return []events.Record{}, nil
	}
	return recs, nil
}

func (s *FileStore) Append(_ context.Context, key events.CacheKey, records []events.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(key)
	if err != nil {
		return err
	}
	if err := checkAppend(key, events.LastBlock(existing), records); err != nil {
		return apperrors.StorageError(err, "rejected cache append")
	}

	merged := make([]events.Record, 0, len(existing)+len(records))
	merged = append(merged, existing...)
	merged = append(merged, records...)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return apperrors.StorageError(err, "failed to encode event cache")
	}
	if err := writeFileAtomic(s.Path(key), data); err != nil {
		return apperrors.StorageError(err, "failed to write event cache")
	}

	s.logger.Debug("Appended to event cache",
		zap.String("key", key.String()),
		zap.Int("appended", len(records)),
		zap.Int("total", len(merged)))
	return nil
}

func (s *FileStore) Cursor(ctx context.Context, key events.CacheKey) (uint64, error) {
	recs, err := s.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	return events.LastBlock(recs), nil
}

func (s *FileStore) Reset(_ context.Context, key events.CacheKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.StorageError(err, "failed to remove event cache")
	}
	return nil
}

// writeFileAtomic replaces path with data so that readers observe either the
// old or the new content in full.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
