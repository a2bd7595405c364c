package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is a tracked listing, unique by URL. InitialPrice is captured on the
// first observation and never changes; CurrentPrice only ever moves down.
type Vehicle struct {
	ID           int64           `json:"id"`
	URL          string          `json:"url"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	InitialPrice decimal.Decimal `json:"initialPrice"`
	LastChecked  time.Time       `json:"lastChecked"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// PriceObservation is one retained price point: the first reading of a
// vehicle or a strict decrease. Rows are append-only.
type PriceObservation struct {
	ID         int64           `json:"id"`
	VehicleID  int64           `json:"vehicleId"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"timestamp"`
}

// Reconciliation is the outcome of comparing a fresh price against stored state.
//
// CurrentPrice is the price that was just observed, which may be above the
// vehicle's tracked price when the listing went up. PreviousPrice is nil for a
// vehicle seen for the first time.
type Reconciliation struct {
	Vehicle        *Vehicle           `json:"vehicle"`
	Created        bool               `json:"-"`
	PriceDecreased bool               `json:"priceDecreased"`
	PreviousPrice  *decimal.Decimal   `json:"previousPrice"`
	CurrentPrice   decimal.Decimal    `json:"currentPrice"`
	History        []PriceObservation `json:"history"`
	CheckID        string             `json:"-"`
}

// HistoryRow is one line of a history report, newest first.
type HistoryRow struct {
	Observation PriceObservation
	// Change is the difference from the next-older observation; zero for the oldest.
	Change decimal.Decimal
}

// HistoryReport summarises a vehicle's retained price history.
type HistoryReport struct {
	Vehicle       *Vehicle
	Rows          []HistoryRow
	TotalChange   decimal.Decimal
	ChangePercent decimal.Decimal
	Drops         int
}
