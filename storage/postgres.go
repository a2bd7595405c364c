package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:       "postgres",
	lockClause: " FOR UPDATE",
	numbered:   true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
			id            BIGSERIAL PRIMARY KEY,
			url           TEXT          UNIQUE NOT NULL,
			current_price NUMERIC(12,2) NOT NULL,
			initial_price NUMERIC(12,2) NOT NULL,
			last_checked  TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id          BIGSERIAL PRIMARY KEY,
			vehicle_id  BIGINT        NOT NULL REFERENCES vehicles(id),
			price       NUMERIC(12,2) NOT NULL,
			observed_at TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_vehicle ON price_history(vehicle_id, observed_at)`,
	},
}

// OpenPostgres connects to PostgreSQL, waiting for the server to accept
// connections. It does not create the schema; call Migrate for that.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return &SQLStore{db: db, d: postgresDialect}, nil
}
