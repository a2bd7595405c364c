package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite keeps prices as TEXT so decimal amounts round-trip exactly.
var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			url           TEXT      UNIQUE NOT NULL,
			current_price TEXT      NOT NULL,
			initial_price TEXT      NOT NULL,
			last_checked  TIMESTAMP NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			vehicle_id  INTEGER   NOT NULL REFERENCES vehicles(id),
			price       TEXT      NOT NULL,
			observed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_vehicle ON price_history(vehicle_id, observed_at)`,
	},
}

// OpenSQLite opens (or creates) an SQLite database file. The pool is limited
// to one connection, which serialises reconciliations the way row locks do
// on Postgres.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %q: %w", path, err)
	}

	return &SQLStore{db: db, d: sqliteDialect}, nil
}
