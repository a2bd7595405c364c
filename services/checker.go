package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vehicle-price-tracker/models"
	"vehicle-price-tracker/utils"
)

// PriceFetcher returns the advertised price of the listing at pageURL.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, pageURL string) (decimal.Decimal, error)
}

// Checker is the inbound operation: validate a URL, fetch its price, and
// reconcile it. No transaction is held while the page is fetched.
type Checker struct {
	fetcher PriceFetcher
	tracker *Tracker
	logger  *utils.Logger
}

// NewChecker creates a Checker that fetches with fetcher and records through tracker.
func NewChecker(fetcher PriceFetcher, tracker *Tracker, logger *utils.Logger) *Checker {
	return &Checker{fetcher: fetcher, tracker: tracker, logger: logger}
}

// Check runs one price check. Every returned error is a *CheckError.
func (c *Checker) Check(ctx context.Context, rawURL string) (*models.Reconciliation, error) {
	checkID := uuid.NewString()

	pageURL, err := ValidateURL(rawURL)
	if err != nil {
		c.logger.Warn("[checker] %s rejected %q: %v", checkID, rawURL, err)
		return nil, err
	}

	c.logger.Info("[checker] %s Processing price check for: %s", checkID, pageURL)

	price, err := c.fetcher.FetchPrice(ctx, pageURL)
	if err != nil {
		c.logger.Error("[checker] %s fetch failed for %s: %v", checkID, pageURL, err)
		return nil, &CheckError{Kind: ErrFetchFailed, URL: pageURL, Err: err}
	}

	res, err := c.tracker.Reconcile(ctx, pageURL, price)
	if err != nil {
		return nil, err
	}
	res.CheckID = checkID

	c.logger.Info("[checker] %s done: price=%s decreased=%v history=%d",
		checkID, price.String(), res.PriceDecreased, len(res.History))
	return res, nil
}

// ValidateURL trims raw and requires an absolute http(s) URL with a host.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", validationError(trimmed, nil, "url is required")
	}
	u, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return "", validationError(trimmed, nil, "url is malformed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", validationError(trimmed, nil, "url must use http or https")
	}
	if u.Host == "" {
		return "", validationError(trimmed, nil, "url has no host")
	}
	return trimmed, nil
}
