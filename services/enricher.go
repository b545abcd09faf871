package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jordanjoelson/ai-lead-gen/enrichment"
	"github.com/jordanjoelson/ai-lead-gen/metrics"
	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/storage"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

// EnrichmentSummary reports the outcome of one enrichment run.
type EnrichmentSummary struct {
	SessionID       string                 `json:"session_id"`
	EnrichmentCount int                    `json:"enrichment_count"`
	Status          models.Status          `json:"status"`
	Stats           models.EnrichmentStats `json:"stats"`
	Warning         string                 `json:"warning,omitempty"`
}

// EnricherOptions configure provider credentials and candidate acceptance.
type EnricherOptions struct {
	DefaultAPIKey       string
	ConfidenceThreshold float64
}

// Enricher fills in lead emails from an email-finder provider.
type Enricher struct {
	store   storage.SessionStore
	finder  enrichment.Finder
	pacer   *utils.Pacer
	opts    EnricherOptions
	logger  *utils.Logger
	metrics *metrics.Manager

	now func() time.Time
}

// NewEnricher creates an Enricher. Provider calls share pacer with every other
// outbound caller holding it. m may be nil.
func NewEnricher(store storage.SessionStore, finder enrichment.Finder, pacer *utils.Pacer,
	opts EnricherOptions, logger *utils.Logger, m *metrics.Manager) *Enricher {
	return &Enricher{
		store:   store,
		finder:  finder,
		pacer:   pacer,
		opts:    opts,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type lookup struct {
	email string
	err   error
}

// Enrich looks up emails for every lead that has a website and no email yet.
//
// Only one run per session may be in flight; a concurrent call fails with
// models.ErrBusy. Per-lead failures are counted, never fatal. On cancellation
// the session returns to its previous status with its leads untouched.
func (e *Enricher) Enrich(ctx context.Context, sessionID, apiKey string) (*EnrichmentSummary, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = e.opts.DefaultAPIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: provider credentials are required", models.ErrInvalidInput)
	}

	var prior models.Status
	snapshot, err := e.store.Update(sessionID, func(s *models.Session) error {
		switch {
		case s.Status == models.StatusEnriching:
			return models.ErrBusy
		case !s.Status.Enrichable():
			return fmt.Errorf("%w: session is %s", models.ErrInvalidState, s.Status)
		}
		prior = s.Status
		s.Status = models.StatusEnriching
		s.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", sessionID, err)
	}

	start := e.now()
	e.logger.Info("[enricher] Session %s: enriching %d leads", sessionID, len(snapshot.Leads))

	var (
		stats        models.EnrichmentStats
		found        = make(map[string]string)
		memo         = make(map[string]lookup)
		calls        int
		callFailures int
	)

	for i := range snapshot.Leads {
		l := &snapshot.Leads[i]
		if l.Website == "" || l.Email != "" {
			continue
		}
		stats.Attempted++

		domain, err := WebsiteDomain(l.Website)
		if err != nil {
			stats.Failed++
			e.metrics.Lookup("failed")
			e.logger.Debug("[enricher] %s: unusable website %q", l.Name, l.Website)
			continue
		}

		res, seen := memo[domain]
		if !seen {
			res = e.findEmail(ctx, calls, domain, apiKey)
			if ctx.Err() != nil {
				return nil, e.abort(sessionID, prior, ctx.Err())
			}
			memo[domain] = res
			calls++
			if res.err != nil {
				callFailures++
			}
		}

		switch {
		case res.err != nil:
			stats.Failed++
			e.metrics.Lookup("failed")
		case res.email == "":
			stats.Failed++
			e.metrics.Lookup("unmatched")
		default:
			stats.Matched++
			found[l.SourceID] = res.email
			e.metrics.Lookup("matched")
		}
	}

	count := 0
	committed, err := e.store.Update(sessionID, func(s *models.Session) error {
		for i := range s.Leads {
			l := &s.Leads[i]
			if email, ok := found[l.SourceID]; ok && l.Email == "" {
				l.Email = email
				l.ValidationFlags = Flags(l)
			}
			if l.Email != "" {
				count++
			}
		}
		s.Status = models.StatusEnriched
		s.EnrichmentStats = stats
		s.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enrich %s: commit: %w", sessionID, err)
	}

	summary := &EnrichmentSummary{
		SessionID:       sessionID,
		EnrichmentCount: count,
		Status:          committed.Status,
		Stats:           stats,
	}
	if calls > 0 && callFailures == calls {
		summary.Warning = fmt.Sprintf("%v: all %d provider lookups failed", models.ErrUpstreamUnavailable, calls)
		e.logger.Warn("[enricher] Session %s: %s", sessionID, summary.Warning)
	}

	e.metrics.SessionFinished(string(committed.Status))
	e.metrics.ObserveStage("enrich", e.now().Sub(start))
	e.logger.Info("[enricher] Session %s enriched: attempted=%d matched=%d failed=%d (%d provider calls)",
		sessionID, stats.Attempted, stats.Matched, stats.Failed, calls)
	return summary, nil
}

// findEmail performs one paced provider call and picks the best candidate.
func (e *Enricher) findEmail(ctx context.Context, n int, domain, apiKey string) lookup {
	var err error
	if n == 0 {
		err = e.pacer.Admit(ctx)
	} else {
		err = e.pacer.Wait(ctx)
	}
	if err != nil {
		return lookup{err: err}
	}

	candidates, err := e.finder.FindEmails(ctx, domain, apiKey)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("[enricher] Lookup for %s failed: %v", domain, err)
		}
		return lookup{err: err}
	}
	return lookup{email: bestCandidate(candidates, e.opts.ConfidenceThreshold)}
}

// abort restores the status the session had before the run.
func (e *Enricher) abort(sessionID string, prior models.Status, cause error) error {
	_, err := e.store.Update(sessionID, func(s *models.Session) error {
		if s.Status == models.StatusEnriching {
			s.Status = prior
			s.UpdatedAt = e.now()
		}
		return nil
	})
	if err != nil {
		e.logger.Error("[enricher] Session %s: restoring status after cancel: %v", sessionID, err)
	}
	e.logger.Warn("[enricher] Session %s: enrichment cancelled: %v", sessionID, cause)
	return cause
}

// bestCandidate returns the highest-confidence valid address at or above the
// threshold. Ties keep the provider's order.
func bestCandidate(candidates []enrichment.Candidate, threshold float64) string {
	best, bestConf := "", -1.0
	for _, c := range candidates {
		email := strings.TrimSpace(c.Email)
		if c.Confidence < threshold || !ValidEmail(email) {
			continue
		}
		if c.Confidence > bestConf {
			best, bestConf = email, c.Confidence
		}
	}
	return best
}
