package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserLoader renders pages in headless Chrome, for dealer sites that
// inject the price with JavaScript.
type BrowserLoader struct {
	chromeBin string
	userAgent string
	timeout   time.Duration
	settle    time.Duration
}

// NewBrowserLoader creates a loader. chromeBin may be empty, in which case
// common install locations are searched.
func NewBrowserLoader(chromeBin, userAgent string, timeout time.Duration) *BrowserLoader {
	return &BrowserLoader{
		chromeBin: chromeBin,
		userAgent: userAgent,
		timeout:   timeout,
		settle:    3 * time.Second,
	}
}

func (l *BrowserLoader) Name() string { return "browser" }

// Load starts a browser for the duration of the call and returns the
// rendered document HTML.
func (l *BrowserLoader) Load(ctx context.Context, pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(l.userAgent),
	)
	if bin := findChromeBinary(l.chromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, l.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(l.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: chromedp: %v", ErrUnreachable, pageURL, err)
	}
	return []byte(html), nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring configured.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
