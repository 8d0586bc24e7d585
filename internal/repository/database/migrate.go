package database

import (
	"context"
	_ "embed"
	"fmt"

	"sales_import/internal/config/connections/postgres"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. Every statement is idempotent, so it runs on
// each start.
func Migrate(ctx context.Context, pg *postgres.Postgres) error {
	if _, err := pg.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
