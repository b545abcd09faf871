package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordanjoelson/ai-lead-gen/metrics"
	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/storage"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

// ScrapeRequest is the validated input of one scrape.
type ScrapeRequest struct {
	Query      string
	Location   string
	MaxResults int
}

// PipelineOptions bound scrape requests.
type PipelineOptions struct {
	MaxResultsCap     int
	DefaultMaxResults int
}

// Pipeline runs a scrape end to end: fetch, normalize, dedup, validate, store.
type Pipeline struct {
	store   storage.SessionStore
	fetcher *Coordinator
	cleaner *Cleaner
	opts    PipelineOptions
	logger  *utils.Logger
	metrics *metrics.Manager

	now   func() time.Time
	newID func() string
}

// NewPipeline creates a Pipeline. m may be nil.
func NewPipeline(store storage.SessionStore, fetcher *Coordinator, cleaner *Cleaner,
	opts PipelineOptions, logger *utils.Logger, m *metrics.Manager) *Pipeline {
	return &Pipeline{
		store:   store,
		fetcher: fetcher,
		cleaner: cleaner,
		opts:    opts,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

func (p *Pipeline) validate(req ScrapeRequest) (ScrapeRequest, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Location = strings.TrimSpace(req.Location)
	switch {
	case req.Query == "":
		return req, fmt.Errorf("%w: query is required", models.ErrInvalidInput)
	case req.Location == "":
		return req, fmt.Errorf("%w: location is required", models.ErrInvalidInput)
	}
	if req.MaxResults == 0 {
		req.MaxResults = p.opts.DefaultMaxResults
	}
	if req.MaxResults < 1 || req.MaxResults > p.opts.MaxResultsCap {
		return req, fmt.Errorf("%w: max_results must be within 1..%d", models.ErrInvalidInput, p.opts.MaxResultsCap)
	}
	return req, nil
}

// StartScrape creates a session and fills it with the leads the source yields.
//
// The returned session reflects the stored state. It is nil only when the
// request is rejected before a session exists. When every fetch failed and no
// record arrived, the session is stored as failed and the error wraps
// models.ErrUpstreamUnavailable. On cancellation the leads gathered so far are
// stored as failed and the context error is returned.
func (p *Pipeline) StartScrape(ctx context.Context, req ScrapeRequest) (*models.Session, error) {
	req, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	start := p.now()
	sess := &models.Session{
		ID:                  p.newID(),
		Query:               req.Query,
		Location:            req.Location,
		RequestedMaxResults: req.MaxResults,
		Leads:               []models.Lead{},
		Status:              models.StatusScraping,
		CreatedAt:           start,
		UpdatedAt:           start,
	}
	if err := p.store.Create(sess); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.metrics.SetSessionsStored(p.store.Count())
	p.logger.Info("[pipeline] Session %s: scraping %q in %q (max %d)",
		sess.ID, req.Query, req.Location, req.MaxResults)

	var (
		stats models.ScrapeStats
		leads = make([]models.Lead, 0, req.MaxResults)
		keys  = utils.NewKeySet()
	)
	for f := range p.fetcher.Stream(ctx, req.Query, req.Location, req.MaxResults) {
		if f.Err != nil {
			stats.FailedFetches++
			continue
		}
		stats.RawRecords++

		lead, ok := p.cleaner.Normalize(f.Record)
		if !ok {
			stats.Dropped++
			continue
		}
		if !keys.Add(lead.SourceID) {
			stats.Duplicates++
			p.logger.Debug("[pipeline] Duplicate %s skipped: %s", lead.SourceID, lead.Name)
			continue
		}
		leads = append(leads, lead)
	}
	flagged := Annotate(leads)

	status, failure := models.StatusReady, error(nil)
	switch {
	case ctx.Err() != nil:
		status, failure = models.StatusFailed, ctx.Err()
	case stats.RawRecords == 0 && stats.FailedFetches > 0:
		status = models.StatusFailed
		failure = fmt.Errorf("pipeline: %w: %d page fetches failed, no records received",
			models.ErrUpstreamUnavailable, stats.FailedFetches)
	}

	stored, err := p.store.Update(sess.ID, func(s *models.Session) error {
		s.Leads = leads
		s.Status = status
		s.ScrapeStats = stats
		s.UpdatedAt = p.now()
		if failure != nil {
			s.Error = failure.Error()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: store results: %w", err)
	}

	p.metrics.ScrapeCounts(stats.RawRecords, stats.Duplicates, stats.Dropped, stats.FailedFetches)
	p.metrics.SessionFinished(string(status))
	p.metrics.ObserveStage("scrape", p.now().Sub(start))

	if failure != nil {
		p.logger.Error("[pipeline] Session %s failed after %d leads: %v", sess.ID, len(leads), failure)
		return stored, failure
	}

	p.logger.Info("[pipeline] Session %s ready: %d leads (%d raw, %d duplicates, %d dropped, %d flagged, %d failed pages)",
		sess.ID, len(leads), stats.RawRecords, stats.Duplicates, stats.Dropped, flagged, stats.FailedFetches)
	return stored, nil
}
