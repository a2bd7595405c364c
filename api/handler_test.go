package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"vehicle-price-tracker/models"
	"vehicle-price-tracker/scraper"
	"vehicle-price-tracker/services"
	"vehicle-price-tracker/storage"
	"vehicle-price-tracker/utils"
)

const listingURL = "https://dealer.example/used/19174395"

type stubFetcher struct {
	price decimal.Decimal
	err   error
}

func (f *stubFetcher) FetchPrice(context.Context, string) (decimal.Decimal, error) {
	return f.price, f.err
}

func newTestRouter(t *testing.T, f *stubFetcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := utils.NewDiscardLogger()
	checker := services.NewChecker(f, services.NewTracker(store, logger), logger)
	return NewHandler(checker, store, logger).Router()
}

func postCheck(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/check-price", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckPriceFlow(t *testing.T) {
	f := &stubFetcher{price: decimal.NewFromInt(24995)}
	r := newTestRouter(t, f)

	w := postCheck(r, fmt.Sprintf(`{"url":%q}`, listingURL))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Check-ID") == "" {
		t.Error("X-Check-ID header missing")
	}

	var first models.Reconciliation
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.PriceDecreased || first.PreviousPrice != nil {
		t.Errorf("first check: decreased=%v previous=%v", first.PriceDecreased, first.PreviousPrice)
	}
	if first.Vehicle == nil || !first.Vehicle.InitialPrice.Equal(decimal.NewFromInt(24995)) {
		t.Errorf("first check vehicle: %+v", first.Vehicle)
	}

	f.price = decimal.NewFromInt(23500)
	w = postCheck(r, fmt.Sprintf(`{"url":%q}`, listingURL))
	var second models.Reconciliation
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !second.PriceDecreased || second.PreviousPrice == nil || !second.PreviousPrice.Equal(decimal.NewFromInt(24995)) {
		t.Errorf("second check: decreased=%v previous=%v", second.PriceDecreased, second.PreviousPrice)
	}
	if len(second.History) != 2 {
		t.Errorf("history len: got %d, want 2", len(second.History))
	}
}

func TestCheckPriceClientErrors(t *testing.T) {
	r := newTestRouter(t, &stubFetcher{price: decimal.NewFromInt(1)})

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"empty url", `{"url":""}`},
		{"malformed url", `{"url":"dealer dot example"}`},
		{"bad json", `{"url":`},
	}
	for _, tt := range tests {
		w := postCheck(r, tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want 400", tt.name, w.Code)
		}
	}
}

func TestCheckPriceFetchFailure(t *testing.T) {
	r := newTestRouter(t, &stubFetcher{err: fmt.Errorf("extract: %w", scraper.ErrPriceNotFound)})

	w := postCheck(r, fmt.Sprintf(`{"url":%q}`, listingURL))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["kind"] != "fetch" {
		t.Errorf("kind: got %q, want fetch", body["kind"])
	}
}

func TestCheckPriceMethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, &stubFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/check-price", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", w.Code)
	}
}

func TestHistoryAndListEndpoints(t *testing.T) {
	r := newTestRouter(t, &stubFetcher{price: decimal.NewFromInt(18000)})

	historyPath := "/api/vehicles/history?url=" + url.QueryEscape(listingURL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, historyPath, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown vehicle: status got %d, want 404", w.Code)
	}

	postCheck(r, fmt.Sprintf(`{"url":%q}`, listingURL))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, historyPath, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history: status got %d, want 200", w.Code)
	}
	var hist struct {
		Vehicle models.Vehicle            `json:"vehicle"`
		History []models.PriceObservation `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if hist.Vehicle.URL != listingURL || len(hist.History) != 1 {
		t.Errorf("history: vehicle=%q rows=%d", hist.Vehicle.URL, len(hist.History))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vehicles", nil))
	var list []models.Vehicle
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("vehicles: got %d, want 1", len(list))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vehicles/history", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("history without url: status got %d, want 400", w.Code)
	}
}

func isJSONNumber(raw json.RawMessage) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}
	n, ok := v.(json.Number)
	return ok && n != ""
}

func TestCheckPriceRendersPricesAsNumbers(t *testing.T) {
	f := &stubFetcher{price: decimal.RequireFromString("24995.50")}
	r := newTestRouter(t, f)

	first := postCheck(r, fmt.Sprintf(`{"url":%q}`, listingURL))
	if first.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", first.Code, first.Body.String())
	}
	var initial map[string]json.RawMessage
	if err := json.Unmarshal(first.Body.Bytes(), &initial); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(initial["previousPrice"]) != "null" {
		t.Errorf("previousPrice on first check: got %s, want null", initial["previousPrice"])
	}

	f.price = decimal.NewFromInt(23500)
	w := postCheck(r, fmt.Sprintf(`{"url":%q}`, listingURL))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}

	var body struct {
		PreviousPrice json.RawMessage              `json:"previousPrice"`
		CurrentPrice  json.RawMessage              `json:"currentPrice"`
		Vehicle       map[string]json.RawMessage   `json:"vehicle"`
		History       []map[string]json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	fields := map[string]json.RawMessage{
		"previousPrice":        body.PreviousPrice,
		"currentPrice":         body.CurrentPrice,
		"vehicle.currentPrice": body.Vehicle["currentPrice"],
		"vehicle.initialPrice": body.Vehicle["initialPrice"],
	}
	for i, h := range body.History {
		fields[fmt.Sprintf("history[%d].price", i)] = h["price"]
	}
	for name, raw := range fields {
		if !isJSONNumber(raw) {
			t.Errorf("%s: got %s, want a JSON number", name, raw)
		}
	}
	if string(body.CurrentPrice) != "23500" {
		t.Errorf("currentPrice: got %s, want 23500", body.CurrentPrice)
	}
	if string(body.PreviousPrice) != "24995.5" {
		t.Errorf("previousPrice: got %s, want 24995.5", body.PreviousPrice)
	}
}
