package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/scraper"
	"github.com/jordanjoelson/ai-lead-gen/storage"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(&bytes.Buffer{}, utils.LevelError) }

func ptr[T any](v T) *T { return &v }

func noDelayPacer() *utils.Pacer { return utils.NewPacer(0, 0, 0) }

func newTestCoordinator(src scraper.Source, pageSize, failureLimit int) *Coordinator {
	return NewCoordinator(src, noDelayPacer(), CoordinatorOptions{
		PageSize:     pageSize,
		FailureLimit: failureLimit,
		Retry:        utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, newTestLogger())
}

func newTestPipeline(store storage.SessionStore, src scraper.Source) *Pipeline {
	return NewPipeline(store, newTestCoordinator(src, 10, 3), NewCleaner(newTestLogger()),
		PipelineOptions{MaxResultsCap: 200, DefaultMaxResults: 50}, newTestLogger(), nil)
}

// seedSession stores a session with the given leads, annotated, in status.
func seedSession(t *testing.T, store storage.SessionStore, id string, status models.Status, leads ...models.Lead) {
	t.Helper()
	Annotate(leads)
	if err := store.Create(&models.Session{
		ID:        id,
		Query:     "dentists",
		Location:  "Los Angeles, CA",
		Status:    status,
		Leads:     leads,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}
