package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"vehicle-price-tracker/models"
)

// Wire shapes for the JSON API. Prices are rendered as JSON numbers
// regardless of how decimal is configured process-wide.

type vehiclePayload struct {
	ID           int64       `json:"id"`
	URL          string      `json:"url"`
	CurrentPrice json.Number `json:"currentPrice"`
	InitialPrice json.Number `json:"initialPrice"`
	LastChecked  time.Time   `json:"lastChecked"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type observationPayload struct {
	ID        int64       `json:"id"`
	VehicleID int64       `json:"vehicleId"`
	Price     json.Number `json:"price"`
	Timestamp time.Time   `json:"timestamp"`
}

type checkPricePayload struct {
	Vehicle        vehiclePayload       `json:"vehicle"`
	PriceDecreased bool                 `json:"priceDecreased"`
	PreviousPrice  *json.Number         `json:"previousPrice"`
	CurrentPrice   json.Number          `json:"currentPrice"`
	History        []observationPayload `json:"history"`
}

type historyPayload struct {
	Vehicle vehiclePayload       `json:"vehicle"`
	History []observationPayload `json:"history"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newVehiclePayload(v *models.Vehicle) vehiclePayload {
	return vehiclePayload{
		ID:           v.ID,
		URL:          v.URL,
		CurrentPrice: number(v.CurrentPrice),
		InitialPrice: number(v.InitialPrice),
		LastChecked:  v.LastChecked,
		CreatedAt:    v.CreatedAt,
	}
}

func newObservationPayloads(history []models.PriceObservation) []observationPayload {
	out := make([]observationPayload, 0, len(history))
	for _, o := range history {
		out = append(out, observationPayload{
			ID:        o.ID,
			VehicleID: o.VehicleID,
			Price:     number(o.Price),
			Timestamp: o.ObservedAt,
		})
	}
	return out
}

func newCheckPricePayload(res *models.Reconciliation) checkPricePayload {
	p := checkPricePayload{
		Vehicle:        newVehiclePayload(res.Vehicle),
		PriceDecreased: res.PriceDecreased,
		CurrentPrice:   number(res.CurrentPrice),
		History:        newObservationPayloads(res.History),
	}
	if res.PreviousPrice != nil {
		prev := number(*res.PreviousPrice)
		p.PreviousPrice = &prev
	}
	return p
}
