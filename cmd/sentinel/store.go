package main

import (
	"errors"
	"fmt"
	"time"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/pkg/database"

	"github.com/fatih/color"
)

var errNoDatabase = errors.New("a database is required: pass --db or set DB_CONNECTION_STRING")

// openStore connects to Postgres, or to a fresh in-memory store when
// allowMemory is set and no DSN was given.
func openStore(allowMemory bool) (unitofwork.RepositoryFactory, error) {
	if dsn == "" {
		if !allowMemory {
			return nil, errNoDatabase
		}
		return unitofwork.NewMemoryRepositoryFactory(nil), nil
	}
	db, err := database.NewGormDBFromDSN(dsn, database.WithLogLevel("warn"), database.WithPool(2, 4, time.Hour))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return unitofwork.NewRepositoryFactory(db), nil
}

func statusLabel(status string) string {
	switch entity.RunState(status) {
	case entity.RunCompleted:
		return color.GreenString(status)
	case entity.RunFailed:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}
