package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Manager) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestManagerExposesRecordedValues(t *testing.T) {
	m := NewManager()
	m.SessionFinished("ready")
	m.ScrapeCounts(35, 3, 0, 1)
	m.Retry("fetch page")
	m.Lookup("matched")
	m.Export("csv")
	m.SetSessionsStored(2)
	m.ObserveStage("scrape", time.Second)
	m.HTTPRequest(http.MethodPost, "/scrape", http.StatusOK, 10*time.Millisecond)

	out := scrape(t, m)
	for _, want := range []string{
		`leadgen_sessions_total{status="ready"} 1`,
		`leadgen_raw_records_total 35`,
		`leadgen_duplicate_records_total 3`,
		`leadgen_fetch_failures_total 1`,
		`leadgen_retries_total{operation="fetch page"} 1`,
		`leadgen_enrichment_lookups_total{result="matched"} 1`,
		`leadgen_exports_total{format="csv"} 1`,
		`leadgen_sessions_stored 2`,
		`leadgen_http_requests_total{code="200",method="POST",route="/scrape"} 1`,
	} {
		assert.True(t, strings.Contains(out, want), "missing %q", want)
	}
	assert.NotContains(t, out, "go_goroutines", "private registry must not carry runtime collectors")
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.SessionFinished("ready")
		m.ScrapeCounts(1, 1, 1, 1)
		m.Retry("x")
		m.ObserveStage("x", time.Second)
		m.SetSessionsStored(1)
		m.Lookup("failed")
		m.Export("json")
		m.HTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
