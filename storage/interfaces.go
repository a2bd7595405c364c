package storage

import (
	"context"
	"errors"

	"vehicle-price-tracker/models"
)

// ErrNotFound is returned when no vehicle is stored for a URL or ID.
var ErrNotFound = errors.New("storage: not found")

// Tx is the query surface available inside one reconciliation.
// Every call participates in the same database transaction.
type Tx interface {
	// FindVehicleByURL returns the vehicle for url, locking its row until the
	// transaction ends. It returns ErrNotFound when the URL is not tracked.
	FindVehicleByURL(ctx context.Context, url string) (*models.Vehicle, error)
	// InsertVehicle stores a new vehicle and sets v.ID. It reports false, and
	// writes nothing, when another transaction already owns the URL.
	InsertVehicle(ctx context.Context, v *models.Vehicle) (bool, error)
	// UpdateVehicle persists CurrentPrice and LastChecked.
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	AppendObservation(ctx context.Context, o *models.PriceObservation) error
	ListObservations(ctx context.Context, vehicleID int64) ([]models.PriceObservation, error)
}

// Store is a durable vehicle/price store.
type Store interface {
	// WithTx runs fn in a single transaction. It commits when fn returns nil
	// and rolls back on error or panic; the connection is released either way.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetVehicle(ctx context.Context, url string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]*models.Vehicle, error)
	History(ctx context.Context, vehicleID int64) ([]models.PriceObservation, error)

	// Migrate creates the schema. It is a one-time step run at startup or
	// deployment, never on the reconciliation path.
	Migrate(ctx context.Context) error
	Close() error
}

// HistoryWriter exports a vehicle's retained price history.
type HistoryWriter interface {
	WriteHistory(v *models.Vehicle, history []models.PriceObservation) error
	Close() error
}
