package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly"
)

// HTTPLoader fetches static pages with a colly collector.
type HTTPLoader struct {
	userAgent string
	timeout   time.Duration
}

// NewHTTPLoader creates a loader that gives up on a page after timeout.
func NewHTTPLoader(userAgent string, timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{userAgent: userAgent, timeout: timeout}
}

func (l *HTTPLoader) Name() string { return "http" }

// Load performs one GET. A fresh collector is used per call so no cookies or
// visit history leak between checks. Non-2xx responses are failures.
//
// colly cannot cancel a request in flight, so ctx only bounds it through its
// deadline: the request timeout is capped at whatever time ctx has left.
// Cancelling ctx without a deadline does not interrupt a running request.
func (l *HTTPLoader) Load(ctx context.Context, pageURL string) ([]byte, error) {
	timeout, err := l.requestTimeout(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, pageURL, err)
	}

	c := colly.NewCollector(
		colly.UserAgent(l.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, pageURL, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s: empty response", ErrUnreachable, pageURL)
	}
	return body, nil
}

func (l *HTTPLoader) requestTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := l.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout, nil
}
