package scraper

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRegexExtractorPounds(t *testing.T) {
	e := NewRegexExtractor("£")

	tests := []struct {
		content string
		want    string
	}{
		{`<span class="price">£24,995</span>`, "24995"},
		{`Price: £24995 (was £26,000)`, "24995"},
		{`<b>£ 23,500.50</b>`, "23500.5"},
		{`<td>&pound;18,750</td>`, "18750"},
		{`<td>&#163;9,999</td>`, "9999"},
		{`£, then £12,000`, "12000"},
	}

	for _, tt := range tests {
		got, err := e.Extract([]byte(tt.content))
		if err != nil {
			t.Errorf("Extract(%q): unexpected error %v", tt.content, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Extract(%q) = %s; want %s", tt.content, got, tt.want)
		}
	}
}

func TestRegexExtractorNotFound(t *testing.T) {
	e := NewRegexExtractor("£")

	for _, content := range []string{"", "POA", "$24,995", "£ call us"} {
		if _, err := e.Extract([]byte(content)); !errors.Is(err, ErrPriceNotFound) {
			t.Errorf("Extract(%q): got %v, want ErrPriceNotFound", content, err)
		}
	}
}

func TestRegexExtractorOtherSymbol(t *testing.T) {
	e := NewRegexExtractor("€")
	got, err := e.Extract([]byte(`<p>&euro;31.990,00</p>`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Thousands dots are not understood; the first amount run is 31.990.
	if !got.Equal(decimal.RequireFromString("31.990")) {
		t.Errorf("Extract: got %s", got)
	}
}

func TestPatternExtractor(t *testing.T) {
	e, err := NewPatternExtractor(`data-price="([\d.]+)"`)
	if err != nil {
		t.Fatalf("NewPatternExtractor: %v", err)
	}
	got, err := e.Extract([]byte(`<div data-price="21450.00">£21,450</div>`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(21450)) {
		t.Errorf("Extract: got %s, want 21450", got)
	}

	if _, err := NewPatternExtractor(`data-price="[\d.]+"`); err == nil {
		t.Error("pattern without capture group should be rejected")
	}
	if _, err := NewPatternExtractor(`(`); err == nil {
		t.Error("invalid pattern should be rejected")
	}
}
