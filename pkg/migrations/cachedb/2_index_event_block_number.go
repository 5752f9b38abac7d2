package cachedb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/chainsafe/tornado-prover/pkg/cache"
	mghelper "github.com/chainsafe/tornado-prover/pkg/pgutil/migrations"
)

// cursor lookups scan MAX(block_number) per key
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating event_records block index...")
		return mghelper.CreateModelIndex(ctx, db, &cache.EventRecordDao{}, "key_block",
			"network_id", "kind", "currency", "amount", "block_number")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping event_records block index...")
		return mghelper.DropModelIndex(ctx, db, &cache.EventRecordDao{}, "key_block")
	})
}
