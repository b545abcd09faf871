// Package gmaps implements scraper.Source on top of Google Maps search results,
// rendered with headless Chrome and parsed with goquery.
package gmaps

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jordanjoelson/ai-lead-gen/scraper"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

const (
	searchBaseURL = "https://www.google.com/maps/search/"

	feedSelector = `div[role="feed"]`
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// stale scroll rounds tolerated before the feed is considered exhausted
	maxStaleScrolls = 3
)

// Options tune the browser session.
type Options struct {
	ChromeBin    string
	Headless     bool
	PageTimeout  time.Duration
	ScrollPause  time.Duration
	VisitDetails bool
}

// Scraper renders Maps search pages in a shared headless browser.
type Scraper struct {
	opts   Options
	logger *utils.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelRoot  context.CancelFunc
}

var _ scraper.Source = (*Scraper)(nil)

// New creates a Scraper. The browser starts on the first Fetch.
func New(opts Options, logger *utils.Logger) *Scraper {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 60 * time.Second
	}
	if opts.ScrollPause <= 0 {
		opts.ScrollPause = 1500 * time.Millisecond
	}
	return &Scraper{opts: opts, logger: logger}
}

// Fetch loads the search results for req and returns the records of page req.Page.
// Every call opens a fresh tab, so pages are independent of each other.
func (s *Scraper) Fetch(ctx context.Context, req scraper.Request) ([]scraper.RawRecord, error) {
	alloc, err := s.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(alloc)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.opts.PageTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	want := (req.Page + 1) * req.PageSize
	searchURL := SearchURL(req.Query, req.Location)
	s.logger.Debug("[gmaps] Loading page %d (%d cards wanted): %s", req.Page, want, searchURL)

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible(feedSelector, chromedp.ByQuery),
		s.scrollFeed(want),
		chromedp.OuterHTML(feedSelector, &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("gmaps: render %q: %w", searchURL, err)
	}

	records, err := ParseFeed(html)
	if err != nil {
		return nil, err
	}

	start := req.Page * req.PageSize
	if start >= len(records) {
		return nil, nil
	}
	page := records[start:min(start+req.PageSize, len(records))]

	if s.opts.VisitDetails {
		for i := range page {
			if page[i].Phone != "" && page[i].Website != "" {
				continue
			}
			if err := s.fillDetails(tabCtx, &page[i]); err != nil {
				s.logger.Warn("[gmaps] Detail page failed for %s: %v", page[i].Name, err)
			}
		}
	}

	s.logger.Debug("[gmaps] Page %d yielded %d records", req.Page, len(page))
	return page, nil
}

// scrollFeed scrolls the results panel until it holds want cards or stops growing.
func (s *Scraper) scrollFeed(want int) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		stale, last := 0, -1
		for {
			var count int
			if err := chromedp.Evaluate(
				`document.querySelectorAll('div[role="feed"] a[href*="/maps/place/"]').length`, &count,
			).Do(ctx); err != nil {
				return err
			}

			var atEnd bool
			if err := chromedp.Evaluate(
				`document.querySelector('div[role="feed"] span.HlvSq') !== null`, &atEnd,
			).Do(ctx); err != nil {
				return err
			}

			if count >= want || atEnd {
				return nil
			}
			if count == last {
				stale++
				if stale >= maxStaleScrolls {
					return nil
				}
			} else {
				stale = 0
			}
			last = count

			if err := chromedp.Evaluate(
				`(function(){var f=document.querySelector('div[role="feed"]'); if (f) { f.scrollTop = f.scrollHeight; } return true;})()`, nil,
			).Do(ctx); err != nil {
				return err
			}
			if err := utils.Sleep(ctx, s.opts.ScrollPause); err != nil {
				return err
			}
		}
	}
}

// fillDetails opens a place page and copies phone, website and address when the
// card lacked them.
func (s *Scraper) fillDetails(ctx context.Context, rec *scraper.RawRecord) error {
	if rec.SourceURL == "" {
		return nil
	}
	var html string
	if err := chromedp.Run(ctx,
		chromedp.Navigate(rec.SourceURL),
		chromedp.WaitVisible(`h1`, chromedp.ByQuery),
		chromedp.OuterHTML(`div[role="main"]`, &html, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("gmaps: detail %q: %w", rec.SourceURL, err)
	}

	d, err := ParseDetail(html)
	if err != nil {
		return err
	}
	if rec.Phone == "" {
		rec.Phone = d.Phone
	}
	if rec.Website == "" {
		rec.Website = d.Website
	}
	if rec.Address == "" {
		rec.Address = d.Address
	}
	return nil
}

// browser starts the shared Chrome process on first use.
func (s *Scraper) browser() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocCtx != nil {
		return s.allocCtx, nil
	}

	chromeBin := s.opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[gmaps] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	if err := chromedp.Run(rootCtx); err != nil {
		cancelRoot()
		cancelAlloc()
		return nil, fmt.Errorf("gmaps: start browser: %w", err)
	}

	s.allocCtx, s.cancelAlloc, s.cancelRoot = rootCtx, cancelAlloc, cancelRoot
	return s.allocCtx, nil
}

// Close shuts the browser down.
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRoot != nil {
		s.cancelRoot()
		s.cancelAlloc()
		s.allocCtx, s.cancelAlloc, s.cancelRoot = nil, nil, nil
	}
	return nil
}

// SearchURL builds the Maps search URL for a query in a location.
func SearchURL(query, location string) string {
	return searchBaseURL + url.QueryEscape(query+" "+location)
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
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
