// Package scraper retrieves listing pages and extracts the advertised price.
//
// Loading a page and finding the price in it are separate strategies: a
// Loader returns raw page content and an Extractor turns content into an
// amount. Extractors can be registered per host, so a dealer site with an
// unusual layout gets its own pattern without touching anything else.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"vehicle-price-tracker/utils"
)

var (
	// ErrUnreachable means the page could not be retrieved. Worth retrying.
	ErrUnreachable = errors.New("page unreachable")
	// ErrPriceNotFound means the page loaded but no price matched.
	ErrPriceNotFound = errors.New("price not found")
)

// Loader retrieves the raw content of a listing page.
type Loader interface {
	Load(ctx context.Context, pageURL string) ([]byte, error)
	Name() string
}

// Extractor finds a price in page content or returns ErrPriceNotFound.
type Extractor interface {
	Extract(content []byte) (decimal.Decimal, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(content []byte) (decimal.Decimal, error)

func (f ExtractorFunc) Extract(content []byte) (decimal.Decimal, error) { return f(content) }

// PageFetcher combines a Loader with per-host Extractors.
type PageFetcher struct {
	loader   Loader
	fallback Extractor
	retry    *utils.RetryConfig
	logger   *utils.Logger

	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewPageFetcher builds a fetcher. fallback is used for hosts with no
// registered extractor. Only ErrUnreachable failures are retried.
func NewPageFetcher(loader Loader, fallback Extractor, retry *utils.RetryConfig, logger *utils.Logger) *PageFetcher {
	r := *retry
	r.Retryable = func(err error) bool { return errors.Is(err, ErrUnreachable) }
	if r.Logger == nil {
		r.Logger = logger
	}
	return &PageFetcher{
		loader:     loader,
		fallback:   fallback,
		retry:      &r,
		logger:     logger,
		extractors: make(map[string]Extractor),
	}
}

// RegisterExtractor sets the extractor used for pages on host
// (compared case-insensitively, without port).
func (f *PageFetcher) RegisterExtractor(host string, e Extractor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractors[strings.ToLower(host)] = e
}

func (f *PageFetcher) extractorFor(host string) Extractor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if e, ok := f.extractors[strings.ToLower(host)]; ok {
		return e
	}
	return f.fallback
}

// FetchPrice loads pageURL and extracts its advertised price.
func (f *PageFetcher) FetchPrice(ctx context.Context, pageURL string) (decimal.Decimal, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: parse %q: %v", ErrUnreachable, pageURL, err)
	}
	extractor := f.extractorFor(u.Hostname())

	var content []byte
	err = f.retry.Do(ctx, "load "+pageURL, func(ctx context.Context) error {
		var loadErr error
		content, loadErr = f.loader.Load(ctx, pageURL)
		return loadErr
	})
	if err != nil {
		return decimal.Zero, err
	}
	f.logger.Debug("[fetcher] %s loaded %s (%d bytes)", f.loader.Name(), pageURL, len(content))

	price, err := extractor.Extract(content)
	if err != nil {
		return decimal.Zero, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	f.logger.Info("[fetcher] Found price %s at %s", price.String(), pageURL)
	return price, nil
}
