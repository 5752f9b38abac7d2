package cache

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/events"
)

// PGStore is a PostgreSQL-backed Store.
type PGStore struct {
	db *bun.DB
}

// NewPGStore creates a new postgres implementation of the event cache
func NewPGStore(db *bun.DB) *PGStore {
	return &PGStore{db: db}
}

func whereKey(q *bun.SelectQuery, key events.CacheKey) *bun.SelectQuery {
	networkID, kind, currency, amount := keyColumns(key)
	return q.Where("network_id = ?", networkID).
		Where("kind = ?", kind).
		Where("currency = ?", currency).
		Where("amount = ?", amount)
}

func (s *PGStore) Load(ctx context.Context, key events.CacheKey) ([]events.Record, error) {
	var daos []EventRecordDao
	err := whereKey(s.db.NewSelect().Model(&daos), key).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.StorageError(err, "failed to load event records")
	}

	recs := make([]events.Record, 0, len(daos))
	for i := range daos {
		rec, err := fromEventRecordDao(key.Kind, &daos[i])
		if err != nil {
			return nil, apperrors.StorageError(err, "failed to load event records")
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *PGStore) Append(ctx context.Context, key events.CacheKey, records []events.Record) error {
	if len(records) == 0 {
		return nil
	}

	daos := make([]*EventRecordDao, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			return apperrors.StorageError(fmt.Errorf("nil record"), "rejected cache append")
		}
		dao, err := toEventRecordDao(key, rec)
		if err != nil {
			return apperrors.StorageError(err, "rejected cache append")
		}
		daos = append(daos, dao)
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tail, err := cursorQuery(ctx, tx.NewSelect(), key)
		if err != nil {
			return err
		}
		if err := checkAppend(key, tail, records); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&daos).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert event records: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.StorageError(err, "failed to append event records")
	}
	return nil
}

func (s *PGStore) Cursor(ctx context.Context, key events.CacheKey) (uint64, error) {
	tail, err := cursorQuery(ctx, s.db.NewSelect(), key)
	if err != nil {
		return 0, apperrors.StorageError(err, "failed to read cursor")
	}
	return tail, nil
}

func (s *PGStore) Reset(ctx context.Context, key events.CacheKey) error {
	networkID, kind, currency, amount := keyColumns(key)
	_, err := s.db.NewDelete().
		Model((*EventRecordDao)(nil)).
		Where("network_id = ?", networkID).
		Where("kind = ?", kind).
		Where("currency = ?", currency).
		Where("amount = ?", amount).
		Exec(ctx)
	if err != nil {
		return apperrors.StorageError(err, "failed to reset event records")
	}
	return nil
}

func cursorQuery(ctx context.Context, q *bun.SelectQuery, key events.CacheKey) (uint64, error) {
	var tail int64
	err := whereKey(q.Model((*EventRecordDao)(nil)), key).
		ColumnExpr("COALESCE(MAX(block_number), 0)").
		Scan(ctx, &tail)
	if err != nil {
		return 0, fmt.Errorf("failed to query cursor: %w", err)
	}
	return uint64(tail), nil
}
