package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"sales_import/internal/config/connections/postgres"
	"sales_import/internal/ports"
	"sales_import/internal/repository/database"
	"sales_import/internal/repository/memory"
	"sales_import/internal/repository/sqlite"
)

type FactoryConfig struct {
	Backend    string
	SQLitePath string
	Postgres   postgres.ConnectionInfo
}

type FactoryResult struct {
	Store    ports.TxRunner
	Backend  string
	Postgres *postgres.Postgres // only set for postgres
}

// NewStore opens the constraint backend named by cfg.Backend and applies its
// schema.
func NewStore(ctx context.Context, cfg FactoryConfig) (FactoryResult, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return FactoryResult{Store: memory.New(), Backend: backend}, nil

	case "sqlite":
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return FactoryResult{}, errors.New("SQLITE_PATH is required when STORE_BACKEND=sqlite")
		}
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Store: st, Backend: backend}, nil

	case "postgres":
		c, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pg, err := postgres.NewConnection(c, cfg.Postgres)
		if err != nil {
			return FactoryResult{}, err
		}
		if err := database.Migrate(c, pg); err != nil {
			pg.Close()
			return FactoryResult{}, err
		}
		return FactoryResult{
			Store:    database.NewStore(pg),
			Backend:  backend,
			Postgres: pg,
		}, nil

	default:
		return FactoryResult{}, errors.New("unknown STORE_BACKEND (use memory, sqlite or postgres)")
	}
}
