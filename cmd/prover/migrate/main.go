package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/migrations/cachedb"
	"github.com/chainsafe/tornado-prover/pkg/pgutil"
	mghelper "github.com/chainsafe/tornado-prover/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Usage = func() { mghelper.PrintUsage(os.Stderr) }
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}
	if cfg.Cache.Driver != config.CacheDriverPostgres {
		log.Fatalf("cache driver is %q, migrations only apply to %q", cfg.Cache.Driver, config.CacheDriverPostgres)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for event cache database (%s)...\n", cfg.Database.Database)

	migrator := migrate.NewMigrator(db, cachedb.Migrations)
	if err := mghelper.RunMigrations(context.Background(), migrator, flag.Args()...); err != nil {
		db.Close()
		log.Fatal(err)
	}
}
