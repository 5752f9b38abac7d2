package cachedb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/chainsafe/tornado-prover/pkg/cache"
	mghelper "github.com/chainsafe/tornado-prover/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating event_records table...")
		if err := mghelper.CreateSchema(ctx, db, &cache.EventRecordDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndex(ctx, db, &cache.EventRecordDao{}, "key",
			"network_id", "kind", "currency", "amount", "id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping event_records table...")
		if err := mghelper.DropModelIndex(ctx, db, &cache.EventRecordDao{}, "key"); err != nil {
			return err
		}
		return mghelper.DropTables(ctx, db, &cache.EventRecordDao{})
	})
}
