package cache

import (
	"context"
	"testing"

	"github.com/chainsafe/tornado-prover/pkg/pgutil"
	mghelper "github.com/chainsafe/tornado-prover/pkg/pgutil/migrations"
)

func TestPGStore(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	if err := mghelper.CreateSchema(ctx, db, &EventRecordDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	runStoreContract(t, func(t *testing.T) Store {
		if _, err := db.NewTruncateTable().Model((*EventRecordDao)(nil)).Exec(ctx); err != nil {
			t.Fatalf("failed to truncate event_records: %v", err)
		}
		return NewPGStore(db)
	})
}
