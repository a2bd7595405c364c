package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vehicle-price-tracker/models"
	"vehicle-price-tracker/storage"
	"vehicle-price-tracker/utils"
)

// Tracker reconciles freshly observed prices against stored vehicles.
//
// History keeps only boundary points: the first observation of a URL and
// every later strict drop below the tracked price. Equal or higher prices
// just move LastChecked forward.
type Tracker struct {
	store  storage.Store
	logger *utils.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker backed by store.
func NewTracker(store storage.Store, logger *utils.Logger) *Tracker {
	return &Tracker{store: store, logger: logger, now: time.Now}
}

// Reconcile records observed for url and reports what changed. The lookup,
// the vehicle write, the optional history append and the history read-back
// run in one transaction, so a failure leaves no partial state.
func (t *Tracker) Reconcile(ctx context.Context, url string, observed decimal.Decimal) (*models.Reconciliation, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, validationError(url, &observed, "url is required")
	}
	if observed.IsNegative() {
		return nil, validationError(url, &observed, "price must not be negative")
	}

	var res *models.Reconciliation
	err := t.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		res, err = t.apply(ctx, tx, url, observed)
		return err
	})
	if err != nil {
		t.logger.Error("[tracker] Reconcile %s at %s failed: %v", url, observed.String(), err)
		return nil, &CheckError{Kind: ErrStore, URL: url, Price: &observed, Err: err}
	}
	return res, nil
}

func (t *Tracker) apply(ctx context.Context, tx storage.Tx, url string, observed decimal.Decimal) (*models.Reconciliation, error) {
	v, created, err := t.findOrCreate(ctx, tx, url, observed)
	if err != nil {
		return nil, err
	}

	res := &models.Reconciliation{Vehicle: v, Created: created, CurrentPrice: observed}

	if created {
		t.logger.Info("[tracker] Tracking new vehicle %d at %s: %s", v.ID, observed.String(), url)
		if err := appendObservation(ctx, tx, v.ID, observed, v.CreatedAt); err != nil {
			return nil, err
		}
	} else {
		now := t.stamp(v)
		previous := v.CurrentPrice
		res.PreviousPrice = &previous
		v.LastChecked = now

		if observed.LessThan(previous) {
			res.PriceDecreased = true
			v.CurrentPrice = observed
			t.logger.Info("[tracker] Vehicle %d price decreased from %s to %s", v.ID, previous.String(), observed.String())
		} else {
			t.logger.Debug("[tracker] Vehicle %d price unchanged or increased: %s (tracked %s)", v.ID, observed.String(), previous.String())
		}

		if err := tx.UpdateVehicle(ctx, v); err != nil {
			return nil, err
		}
		if res.PriceDecreased {
			if err := appendObservation(ctx, tx, v.ID, observed, now); err != nil {
				return nil, err
			}
		}
	}

	history, err := tx.ListObservations(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	res.History = history
	return res, nil
}

// stamp reads the clock for a vehicle already held under lock. It never
// returns a time before the vehicle's last check, so history stays ordered
// even when another writer committed while this one waited.
func (t *Tracker) stamp(v *models.Vehicle) time.Time {
	now := t.now().UTC()
	if now.Before(v.LastChecked) {
		return v.LastChecked.UTC()
	}
	return now
}

// findOrCreate returns the locked vehicle for url, inserting it when absent.
// If a concurrent reconciliation inserts the URL first, its row is used and
// created is false.
func (t *Tracker) findOrCreate(ctx context.Context, tx storage.Tx, url string, observed decimal.Decimal) (*models.Vehicle, bool, error) {
	v, err := tx.FindVehicleByURL(ctx, url)
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	now := t.now().UTC()
	v = &models.Vehicle{
		URL:          url,
		CurrentPrice: observed,
		InitialPrice: observed,
		LastChecked:  now,
		CreatedAt:    now,
	}
	created, err := tx.InsertVehicle(ctx, v)
	if err != nil {
		return nil, false, err
	}
	if created {
		return v, true, nil
	}

	t.logger.Debug("[tracker] %s was created concurrently, reconciling against it", url)
	v, err = tx.FindVehicleByURL(ctx, url)
	if err != nil {
		return nil, false, fmt.Errorf("re-read %q after insert conflict: %w", url, err)
	}
	return v, false, nil
}

func appendObservation(ctx context.Context, tx storage.Tx, vehicleID int64, price decimal.Decimal, at time.Time) error {
	return tx.AppendObservation(ctx, &models.PriceObservation{
		VehicleID:  vehicleID,
		Price:      price,
		ObservedAt: at,
	})
}
