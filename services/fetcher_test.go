package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/scraper"
)

func pagedSource(pages int, perPage int) scraper.SourceFunc {
	return func(_ context.Context, req scraper.Request) ([]scraper.RawRecord, error) {
		if req.Page >= pages {
			return nil, nil
		}
		out := make([]scraper.RawRecord, perPage)
		for i := range out {
			out[i] = scraper.RawRecord{Name: fmt.Sprintf("Biz %d-%d", req.Page, i), SourceID: fmt.Sprintf("p%d-%d", req.Page, i)}
		}
		return out, nil
	}
}

func drain(ch <-chan Fetched) (records []scraper.RawRecord, failures []error) {
	for f := range ch {
		if f.Err != nil {
			failures = append(failures, f.Err)
			continue
		}
		records = append(records, f.Record)
	}
	return records, failures
}

func TestStreamStopsAtMaxResults(t *testing.T) {
	var calls atomic.Int32
	src := pagedSource(100, 10)
	counting := scraper.SourceFunc(func(ctx context.Context, req scraper.Request) ([]scraper.RawRecord, error) {
		calls.Add(1)
		assert.Equal(t, 10, req.PageSize)
		return src(ctx, req)
	})

	records, failures := drain(newTestCoordinator(counting, 10, 3).Stream(context.Background(), "q", "l", 25))

	assert.Empty(t, failures)
	assert.Len(t, records, 30, "final page is passed through whole")
	assert.Equal(t, int32(3), calls.Load())
}

func TestStreamStopsOnEmptyPage(t *testing.T) {
	records, failures := drain(newTestCoordinator(pagedSource(2, 4), 4, 3).Stream(context.Background(), "q", "l", 100))
	assert.Empty(t, failures)
	assert.Len(t, records, 8)
}

func TestStreamGivesUpAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	src := scraper.SourceFunc(func(context.Context, scraper.Request) ([]scraper.RawRecord, error) {
		calls.Add(1)
		return nil, errors.New("connection reset")
	})

	records, failures := drain(newTestCoordinator(src, 10, 2).Stream(context.Background(), "q", "l", 50))

	assert.Empty(t, records)
	require.Len(t, failures, 2)
	assert.True(t, errors.Is(failures[0], models.ErrUpstreamUnavailable))
	assert.Equal(t, int32(6), calls.Load(), "two pages, three attempts each")
}

func TestStreamSkipsFailedPageAndContinues(t *testing.T) {
	good := pagedSource(3, 2)
	src := scraper.SourceFunc(func(ctx context.Context, req scraper.Request) ([]scraper.RawRecord, error) {
		if req.Page == 1 {
			return nil, errors.New("HTTP 503")
		}
		return good(ctx, req)
	})

	records, failures := drain(newTestCoordinator(src, 2, 3).Stream(context.Background(), "q", "l", 100))

	assert.Len(t, records, 4)
	assert.Len(t, failures, 1)
}

func TestStreamEndsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := scraper.SourceFunc(func(ctx context.Context, req scraper.Request) ([]scraper.RawRecord, error) {
		if req.Page == 1 {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []scraper.RawRecord{{Name: "A", SourceID: fmt.Sprint(req.Page)}}, nil
	})

	done := make(chan struct{})
	var records []scraper.RawRecord
	go func() {
		defer close(done)
		records, _ = drain(newTestCoordinator(src, 1, 3).Stream(ctx, "q", "l", 10))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
	assert.Len(t, records, 1)
}
