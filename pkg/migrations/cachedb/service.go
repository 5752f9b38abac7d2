// Package cachedb holds all the migrations for the event cache database
package cachedb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the event cache database
var Migrations = migrate.NewMigrations()
