package migrations

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/uptrace/bun"

	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/pgutil"
)

type testDao struct {
	bun.BaseModel `bun:"table:test_table"`
	ID            int64  `bun:",pk,autoincrement"`
	Name          string `bun:",notnull,type:varchar(100)"`
	Age           int    `bun:",nullzero"`
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, cmd := range Commands {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("usage does not mention %q", cmd)
		}
	}
}

func TestRunMigrations_NoCommand(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err == nil {
		t.Error("RunMigrations() should fail without a command")
	}
}

func TestConnectDB_InvalidHost(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	}

	db, err := pgutil.ConnectDB(cfg)
	if err == nil {
		_ = db.Close()
		t.Error("ConnectDB() should fail with invalid host")
	}
}

func TestCreateSchema(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	if err := CreateSchema(ctx, db, &testDao{}); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	pgutil.AssertTableExists(t, db, "test_table")

	// idempotent
	if err := CreateSchema(ctx, db, &testDao{}); err != nil {
		t.Errorf("CreateSchema() second call failed: %v", err)
	}

	if err := CreateModelIndex(ctx, db, &testDao{}, "name_age", "name", "age"); err != nil {
		t.Fatalf("CreateModelIndex() failed: %v", err)
	}
	pgutil.AssertIndexExists(t, db, "idx_test_table_name_age")

	if err := DropModelIndex(ctx, db, &testDao{}, "name_age"); err != nil {
		t.Fatalf("DropModelIndex() failed: %v", err)
	}

	if err := DropTables(ctx, db, &testDao{}); err != nil {
		t.Fatalf("DropTables() failed: %v", err)
	}
	pgutil.AssertTableNotExists(t, db, "test_table")
}
