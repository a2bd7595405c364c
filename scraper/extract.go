package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches "24,995", "24995" or "23,500.50".
const amountPattern = `(\d[\d,]*(?:\.\d+)?)`

// currencyForms lists the literal and HTML-entity spellings of a symbol.
var currencyForms = map[string][]string{
	"£": {"£", "&pound;", "&#163;", "&#xa3;"},
	"€": {"€", "&euro;", "&#8364;"},
	"$": {"$"},
}

// RegexExtractor returns the first amount captured by its pattern.
type RegexExtractor struct {
	re *regexp.Regexp
}

// NewRegexExtractor matches an amount directly preceded by the currency
// symbol, e.g. "£24,995".
func NewRegexExtractor(symbol string) *RegexExtractor {
	forms, ok := currencyForms[symbol]
	if !ok {
		forms = []string{symbol}
	}
	quoted := make([]string, len(forms))
	for i, f := range forms {
		quoted[i] = regexp.QuoteMeta(f)
	}
	re := regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)\s*` + amountPattern)
	return &RegexExtractor{re: re}
}

// NewPatternExtractor builds an extractor from a site-specific pattern whose
// first capture group is the amount.
func NewPatternExtractor(pattern string) (*RegexExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile price pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("price pattern %q has no capture group", pattern)
	}
	return &RegexExtractor{re: re}, nil
}

func (e *RegexExtractor) Extract(content []byte) (decimal.Decimal, error) {
	for _, m := range e.re.FindAllSubmatch(content, -1) {
		if price, ok := parseAmount(string(m[1])); ok {
			return price, nil
		}
	}
	return decimal.Zero, ErrPriceNotFound
}

// parseAmount strips thousands separators and parses the remaining number.
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
