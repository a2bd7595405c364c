// Package scheduler triggers price checks for a watch list on a cron
// schedule. It only decides when to check; what a check does is up to the
// PriceChecker it is given.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vehicle-price-tracker/models"
	"vehicle-price-tracker/utils"
)

// PriceChecker runs one price check for a URL.
type PriceChecker interface {
	Check(ctx context.Context, url string) (*models.Reconciliation, error)
}

// Summary counts the outcome of one pass over the watch list.
type Summary struct {
	Checked   int
	Decreased int
	Failed    int
}

// Scheduler checks every watched URL each time its cron schedule fires.
type Scheduler struct {
	cron    *cron.Cron
	checker PriceChecker
	urls    []string
	workers int
	rate    time.Duration
	logger  *utils.Logger
	ctx     context.Context
}

// New creates a Scheduler. Overlapping runs are skipped rather than queued.
func New(ctx context.Context, checker PriceChecker, urls []string, workers int, rateLimit time.Duration, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger{logger}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		),
		checker: checker,
		urls:    urls,
		workers: workers,
		rate:    rateLimit,
		logger:  logger,
		ctx:     ctx,
	}
}

// Register adds the watch task under spec (six fields, or a descriptor
// such as "@every 6h").
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("register watch task %q: %w", spec, err)
	}
	s.logger.Info("[scheduler] Watching %d URLs on %q", len(s.urls), spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("[scheduler] started")
}

// Stop stops the cron and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("[scheduler] stopped")
}

// RunOnce checks every watched URL through a bounded, rate-limited pool.
func (s *Scheduler) RunOnce() Summary {
	pool := utils.NewWorkerPool(s.workers, s.rate)

	var mu sync.Mutex
	var sum Summary

	for _, u := range s.urls {
		if s.ctx.Err() != nil {
			s.logger.Warn("[scheduler] context cancelled, skipping remaining URLs")
			break
		}
		pageURL := u
		pool.Submit(func() {
			res, err := s.checker.Check(s.ctx, pageURL)

			mu.Lock()
			defer mu.Unlock()
			sum.Checked++
			if err != nil {
				sum.Failed++
				s.logger.Error("[scheduler] check %s failed: %v", pageURL, err)
				return
			}
			if res.PriceDecreased && res.PreviousPrice != nil {
				sum.Decreased++
				s.logger.Info("[scheduler] Price drop on %s: %s -> %s",
					pageURL, res.PreviousPrice.String(), res.CurrentPrice.String())
			}
		})
	}
	pool.Wait()

	s.logger.Info("[scheduler] pass complete: %d checked, %d decreased, %d failed",
		sum.Checked, sum.Decreased, sum.Failed)
	return sum
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct {
	l *utils.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("[scheduler] cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("[scheduler] cron: %s: %v %v", msg, err, keysAndValues)
}
