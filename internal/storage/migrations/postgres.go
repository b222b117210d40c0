package migrations

import (
	"context"
	"fmt"

	"energy-tariffs/internal/storage/postgres"
)

// RunPostgresMigrations applies every postgres script in one round trip each.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	list, err := Scripts(DialectPostgres)
	if err != nil {
		return err
	}
	for _, s := range list {
		if _, err := pool.Exec(ctx, s.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.Name, err)
		}
	}
	return nil
}
