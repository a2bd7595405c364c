package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vehicle-price-tracker/models"
)

// dialect captures the few places where Postgres and SQLite SQL differ.
type dialect struct {
	name string
	// lockClause is appended to row lookups that must serialise writers.
	lockClause string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	schema   []string
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on database/sql for either supported dialect.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

const vehicleColumns = `id, url, current_price, initial_price, last_checked, created_at`

func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate %s: %w", s.d.name, err)
		}
	}
	return nil
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("storage: rollback: %w", rbErr))
			}
			return
		}
		if cErr := sqlTx.Commit(); cErr != nil {
			err = fmt.Errorf("storage: commit: %w", cErr)
		}
	}()

	return fn(&sqlTxn{q: sqlTx, d: s.d})
}

func (s *SQLStore) GetVehicle(ctx context.Context, url string) (*models.Vehicle, error) {
	return findVehicle(ctx, s.db, s.d, `WHERE url = ?`, "", url)
}

func (s *SQLStore) ListVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list vehicles: %w", err)
	}
	defer rows.Close()

	var out []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) History(ctx context.Context, vehicleID int64) ([]models.PriceObservation, error) {
	return listObservations(ctx, s.db, s.d, vehicleID)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// sqlTxn is the Tx handed to WithTx callbacks.
type sqlTxn struct {
	q queryer
	d dialect
}

func (t *sqlTxn) FindVehicleByURL(ctx context.Context, url string) (*models.Vehicle, error) {
	return findVehicle(ctx, t.q, t.d, `WHERE url = ?`, t.d.lockClause, url)
}

func (t *sqlTxn) InsertVehicle(ctx context.Context, v *models.Vehicle) (bool, error) {
	err := t.q.QueryRowContext(ctx, t.d.rebind(`
		INSERT INTO vehicles (url, current_price, initial_price, last_checked, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`),
		v.URL, v.CurrentPrice, v.InitialPrice, v.LastChecked.UTC(), v.CreatedAt.UTC(),
	).Scan(&v.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: insert vehicle %q: %w", v.URL, err)
	}
	return true, nil
}

func (t *sqlTxn) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		UPDATE vehicles SET current_price = ?, last_checked = ? WHERE id = ?`),
		v.CurrentPrice, v.LastChecked.UTC(), v.ID,
	)
	if err != nil {
		return fmt.Errorf("storage: update vehicle %d: %w", v.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update vehicle %d: %w", v.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("storage: update vehicle %d: %w", v.ID, ErrNotFound)
	}
	return nil
}

func (t *sqlTxn) AppendObservation(ctx context.Context, o *models.PriceObservation) error {
	err := t.q.QueryRowContext(ctx, t.d.rebind(`
		INSERT INTO price_history (vehicle_id, price, observed_at)
		VALUES (?, ?, ?)
		RETURNING id`),
		o.VehicleID, o.Price, o.ObservedAt.UTC(),
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("storage: append observation for vehicle %d: %w", o.VehicleID, err)
	}
	return nil
}

func (t *sqlTxn) ListObservations(ctx context.Context, vehicleID int64) ([]models.PriceObservation, error) {
	return listObservations(ctx, t.q, t.d, vehicleID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(r rowScanner) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	if err := r.Scan(&v.ID, &v.URL, &v.CurrentPrice, &v.InitialPrice, &v.LastChecked, &v.CreatedAt); err != nil {
		return nil, err
	}
	return v, nil
}

func findVehicle(ctx context.Context, q queryer, d dialect, where, lock string, args ...any) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ` + where + lock
	v, err := scanVehicle(q.QueryRowContext(ctx, d.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: find vehicle: %w", err)
	}
	return v, nil
}

func listObservations(ctx context.Context, q queryer, d dialect, vehicleID int64) ([]models.PriceObservation, error) {
	rows, err := q.QueryContext(ctx, d.rebind(`
		SELECT id, vehicle_id, price, observed_at
		FROM price_history
		WHERE vehicle_id = ?
		ORDER BY observed_at ASC, id ASC`), vehicleID)
	if err != nil {
		return nil, fmt.Errorf("storage: list observations for vehicle %d: %w", vehicleID, err)
	}
	defer rows.Close()

	out := make([]models.PriceObservation, 0)
	for rows.Next() {
		var o models.PriceObservation
		if err := rows.Scan(&o.ID, &o.VehicleID, &o.Price, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("storage: scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
