package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanjoelson/ai-lead-gen/enrichment"
	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/storage"
)

func newTestEnricher(store storage.SessionStore, finder enrichment.Finder) *Enricher {
	return NewEnricher(store, finder, noDelayPacer(),
		EnricherOptions{DefaultAPIKey: "default-key", ConfidenceThreshold: 0.5}, newTestLogger(), nil)
}

func staticFinder(byDomain map[string][]enrichment.Candidate) enrichment.FinderFunc {
	return func(_ context.Context, domain, _ string) ([]enrichment.Candidate, error) {
		return byDomain[domain], nil
	}
}

func TestEnrichSetsBestEmail(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady, models.Lead{Name: "Acme", SourceID: "a", Website: "https://acme.biz"})

	sum, err := newTestEnricher(store, staticFinder(map[string][]enrichment.Candidate{
		"acme.biz": {{Email: "info@acme.biz", Confidence: 0.9}},
	})).Enrich(context.Background(), "s1", "")
	require.NoError(t, err)

	assert.Equal(t, models.EnrichmentStats{Attempted: 1, Matched: 1, Failed: 0}, sum.Stats)
	assert.Equal(t, 1, sum.EnrichmentCount)
	assert.Equal(t, models.StatusEnriched, sum.Status)
	assert.Empty(t, sum.Warning)

	sess, _ := store.Get("s1")
	assert.Equal(t, "info@acme.biz", sess.Leads[0].Email)
	assert.False(t, sess.Leads[0].HasFlag(models.FlagMissingEmail))
	assert.Equal(t, sum.Stats, sess.EnrichmentStats)
}

func TestBestCandidate(t *testing.T) {
	cands := []enrichment.Candidate{
		{Email: "low@acme.biz", Confidence: 0.3},
		{Email: "not-an-email", Confidence: 0.99},
		{Email: "sales@acme.biz", Confidence: 0.7},
		{Email: "ceo@acme.biz", Confidence: 0.8},
		{Email: "also@acme.biz", Confidence: 0.8},
	}
	assert.Equal(t, "ceo@acme.biz", bestCandidate(cands, 0.5))
	assert.Equal(t, "", bestCandidate(cands, 0.95))
	assert.Equal(t, "", bestCandidate(nil, 0))
}

func TestEnrichSkipsIneligibleAndCountsFailures(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady,
		models.Lead{Name: "No site", SourceID: "a"},
		models.Lead{Name: "Has email", SourceID: "b", Website: "b.example", Email: "x@b.example"},
		models.Lead{Name: "Bad site", SourceID: "c", Website: "localhost"},
		models.Lead{Name: "Flaky", SourceID: "d", Website: "flaky.example"},
		models.Lead{Name: "Nothing", SourceID: "e", Website: "quiet.example"},
	)

	finder := enrichment.FinderFunc(func(_ context.Context, domain, _ string) ([]enrichment.Candidate, error) {
		if domain == "flaky.example" {
			return nil, errors.New("HTTP 500")
		}
		return nil, nil
	})

	sum, err := newTestEnricher(store, finder).Enrich(context.Background(), "s1", "key")
	require.NoError(t, err)

	assert.Equal(t, models.EnrichmentStats{Attempted: 3, Matched: 0, Failed: 3}, sum.Stats)
	assert.Equal(t, 1, sum.EnrichmentCount, "pre-existing email still counts")
	assert.Empty(t, sum.Warning, "one provider call succeeded")
}

func TestEnrichBelowThresholdCountsAsFailed(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady, models.Lead{Name: "Quiet", SourceID: "q", Website: "https://quiet.example"})

	sum, err := newTestEnricher(store, staticFinder(map[string][]enrichment.Candidate{
		"quiet.example": {{Email: "low@quiet.example", Confidence: 0.2}},
	})).Enrich(context.Background(), "s1", "")
	require.NoError(t, err)

	assert.Equal(t, models.EnrichmentStats{Attempted: 1, Matched: 0, Failed: 1}, sum.Stats)
	assert.Empty(t, sum.Warning, "the provider call itself succeeded")

	sess, _ := store.Get("s1")
	assert.Empty(t, sess.Leads[0].Email)
	assert.Equal(t, sum.Stats, sess.EnrichmentStats)
}

func TestEnrichMemoisesDomains(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady,
		models.Lead{Name: "Branch 1", SourceID: "a", Website: "https://www.chain.example/a"},
		models.Lead{Name: "Branch 2", SourceID: "b", Website: "http://chain.example/b"},
	)

	var calls atomic.Int32
	finder := enrichment.FinderFunc(func(_ context.Context, domain, _ string) ([]enrichment.Candidate, error) {
		calls.Add(1)
		return []enrichment.Candidate{{Email: "hq@chain.example", Confidence: 0.8}}, nil
	})

	sum, err := newTestEnricher(store, finder).Enrich(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 2, sum.Stats.Matched)
}

func TestEnrichAllCallsFailingIsAWarning(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady, models.Lead{Name: "A", SourceID: "a", Website: "a.example"})

	finder := enrichment.FinderFunc(func(context.Context, string, string) ([]enrichment.Candidate, error) {
		return nil, errors.New("quota exceeded")
	})

	sum, err := newTestEnricher(store, finder).Enrich(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Contains(t, sum.Warning, models.ErrUpstreamUnavailable.Error())
	assert.Equal(t, models.StatusEnriched, sum.Status)
}

func TestEnrichRerunDoesNotRegressEmails(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady,
		models.Lead{Name: "A", SourceID: "a", Website: "a.example"},
		models.Lead{Name: "B", SourceID: "b", Website: "b.example"},
	)

	first := staticFinder(map[string][]enrichment.Candidate{"a.example": {{Email: "hi@a.example", Confidence: 0.9}}})
	sum1, err := newTestEnricher(store, first).Enrich(context.Background(), "s1", "")
	require.NoError(t, err)

	var asked []string
	second := enrichment.FinderFunc(func(_ context.Context, domain, _ string) ([]enrichment.Candidate, error) {
		asked = append(asked, domain)
		return nil, errors.New("provider down")
	})
	sum2, err := newTestEnricher(store, second).Enrich(context.Background(), "s1", "")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, sum2.EnrichmentCount, sum1.EnrichmentCount)
	assert.Equal(t, []string{"b.example"}, asked, "leads with an email are not looked up again")
	assert.Equal(t, models.EnrichmentStats{Attempted: 1, Failed: 1}, sum2.Stats, "stats describe the latest run only")

	sess, _ := store.Get("s1")
	assert.Equal(t, "hi@a.example", sess.Leads[0].Email)
}

func TestEnrichErrors(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "scraping", models.StatusScraping)
	seedSession(t, store, "failed", models.StatusFailed)
	seedSession(t, store, "ready", models.StatusReady)

	e := newTestEnricher(store, staticFinder(nil))

	_, err := e.Enrich(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	for _, id := range []string{"scraping", "failed"} {
		_, err = e.Enrich(context.Background(), id, "")
		assert.True(t, errors.Is(err, models.ErrInvalidState), "%s: %v", id, err)
	}

	noKey := NewEnricher(store, staticFinder(nil), noDelayPacer(), EnricherOptions{ConfidenceThreshold: 0.5}, newTestLogger(), nil)
	_, err = noKey.Enrich(context.Background(), "ready", " ")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestEnrichPassesCredentials(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady, models.Lead{Name: "A", SourceID: "a", Website: "a.example"})

	var gotKey string
	finder := enrichment.FinderFunc(func(_ context.Context, _, apiKey string) ([]enrichment.Candidate, error) {
		gotKey = apiKey
		return nil, nil
	})
	_, err := newTestEnricher(store, finder).Enrich(context.Background(), "s1", "request-key")
	require.NoError(t, err)
	assert.Equal(t, "request-key", gotKey)
}

func TestEnrichConcurrentCallsOneWins(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady, models.Lead{Name: "A", SourceID: "a", Website: "a.example"})

	release := make(chan struct{})
	finder := enrichment.FinderFunc(func(ctx context.Context, _, _ string) ([]enrichment.Candidate, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []enrichment.Candidate{{Email: "a@a.example", Confidence: 1}}, nil
	})
	e := newTestEnricher(store, finder)

	start := make(chan struct{})
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.Enrich(context.Background(), "s1", "")
			results <- err
		}()
	}
	close(start)

	var loser error
	select {
	case loser = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("neither call returned")
	}
	assert.True(t, errors.Is(loser, models.ErrInvalidState), "loser should see invalid state, got %v", loser)
	assert.True(t, errors.Is(loser, models.ErrBusy))

	close(release)
	wg.Wait()
	assert.NoError(t, <-results)

	sess, _ := store.Get("s1")
	assert.Equal(t, models.StatusEnriched, sess.Status)
}

func TestEnrichCancelRestoresStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady, models.Lead{Name: "A", SourceID: "a", Website: "a.example"})

	ctx, cancel := context.WithCancel(context.Background())
	finder := enrichment.FinderFunc(func(ctx context.Context, _, _ string) ([]enrichment.Candidate, error) {
		cancel()
		return nil, ctx.Err()
	})

	_, err := newTestEnricher(store, finder).Enrich(ctx, "s1", "")
	assert.True(t, errors.Is(err, context.Canceled))

	sess, _ := store.Get("s1")
	assert.Equal(t, models.StatusReady, sess.Status)
	assert.Empty(t, sess.Leads[0].Email)
	assert.Equal(t, models.EnrichmentStats{}, sess.EnrichmentStats)
}
