package services

import (
	"context"
	"fmt"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/scraper"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

// Fetched is one value of a fetch stream: either a raw record or, when Err is
// set, a marker for a page that failed after exhausting its retries.
type Fetched struct {
	Record scraper.RawRecord
	Page   int
	Err    error
}

// CoordinatorOptions bound how a Coordinator pages through a source.
type CoordinatorOptions struct {
	PageSize     int
	FailureLimit int
	Retry        utils.RetryConfig
}

// Coordinator pulls pages from a Source, spacing calls with a shared Pacer and
// retrying each page with back-off. It holds no per-query state, so one
// Coordinator serves every scrape in the process.
type Coordinator struct {
	source scraper.Source
	pacer  *utils.Pacer
	opts   CoordinatorOptions
	logger *utils.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(source scraper.Source, pacer *utils.Pacer, opts CoordinatorOptions, logger *utils.Logger) *Coordinator {
	if opts.PageSize < 1 {
		opts.PageSize = 10
	}
	if opts.FailureLimit < 1 {
		opts.FailureLimit = 1
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	return &Coordinator{source: source, pacer: pacer, opts: opts, logger: logger}
}

// Stream returns a finite, single-use sequence of raw records for the query.
//
// Pages are requested in order until the records emitted reach maxResults, the
// source returns an empty page, or FailureLimit consecutive pages fail. The last
// page is passed through whole. The channel is closed when the stream ends;
// callers distinguish cancellation by checking ctx.Err afterwards.
func (c *Coordinator) Stream(ctx context.Context, query, location string, maxResults int) <-chan Fetched {
	out := make(chan Fetched)

	go func() {
		defer close(out)

		emit := func(f Fetched) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		emitted, consecutiveFailures := 0, 0
		for page := 0; emitted < maxResults; page++ {
			var err error
			if page == 0 {
				err = c.pacer.Admit(ctx)
			} else {
				err = c.pacer.Wait(ctx)
			}
			if err != nil {
				return
			}

			req := scraper.Request{Query: query, Location: location, Page: page, PageSize: c.opts.PageSize}
			var records []scraper.RawRecord
			err = c.opts.Retry.Do(ctx, fmt.Sprintf("fetch page %d", page), func(ctx context.Context) error {
				var ferr error
				records, ferr = c.source.Fetch(ctx, req)
				return ferr
			})
			if ctx.Err() != nil {
				return
			}

			if err != nil {
				consecutiveFailures++
				c.logger.Warn("[fetcher] Page %d failed (%d/%d consecutive): %v",
					page, consecutiveFailures, c.opts.FailureLimit, err)
				if !emit(Fetched{Page: page, Err: fmt.Errorf("page %d: %w: %v", page, models.ErrUpstreamUnavailable, err)}) {
					return
				}
				if consecutiveFailures >= c.opts.FailureLimit {
					c.logger.Error("[fetcher] Giving up after %d consecutive page failures", consecutiveFailures)
					return
				}
				continue
			}
			consecutiveFailures = 0

			if len(records) == 0 {
				c.logger.Debug("[fetcher] Page %d empty, source exhausted", page)
				return
			}

			for _, r := range records {
				if !emit(Fetched{Record: r, Page: page}) {
					return
				}
			}
			emitted += len(records)
			c.logger.Debug("[fetcher] Page %d: %d records (%d total)", page, len(records), emitted)
		}
	}()

	return out
}
