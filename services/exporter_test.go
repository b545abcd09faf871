package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/storage"
)

type recordingArchive struct {
	sessions []*models.Session
	err      error
}

func (r *recordingArchive) Archive(_ context.Context, s *models.Session) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.sessions = append(r.sessions, s)
	return len(s.Leads), nil
}

func (r *recordingArchive) Close() error { return nil }

func newTestExporter(t *testing.T, store storage.SessionStore, archive storage.LeadArchive) *Exporter {
	t.Helper()
	e := NewExporter(store, archive, t.TempDir(), newTestLogger(), nil)
	e.now = func() time.Time { return time.Date(2026, 10, 14, 8, 30, 15, 0, time.UTC) }
	return e
}

func exportFixture(t *testing.T) storage.SessionStore {
	t.Helper()
	store := storage.NewMemoryStore()
	seedSession(t, store, "s1", models.StatusReady,
		models.Lead{
			Name: "Bright Smile", Address: "120 S Main St", Phone: "2135550101", Website: "https://brightsmile.example",
			Category: "dentist", Rating: ptr(4.8), ReviewsCount: ptr(312), SourceID: "p1",
			Coordinates: &models.Coordinates{Lat: 34.05, Lng: -118.24},
		},
		models.Lead{Name: "No Phone Dental", Website: "nophone.example", SourceID: "p2"},
	)
	return store
}

func TestExportJSONOmitsAbsentFields(t *testing.T) {
	e := newTestExporter(t, exportFixture(t), nil)

	a, err := e.Export(context.Background(), "s1", "JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, a.Format)
	assert.Equal(t, 2, a.LeadCount)

	var objs []map[string]any
	require.NoError(t, json.Unmarshal(a.Data, &objs))
	require.Len(t, objs, 2)

	second := objs[1]
	assert.NotContains(t, second, "phone")
	assert.NotContains(t, second, "rating")
	assert.NotContains(t, second, "email")
	assert.Equal(t, "No Phone Dental", second["name"])
	assert.Equal(t, []any{"missing_email"}, second["validation_flags"])
	assert.NotContains(t, string(a.Data), "null")
}

func TestExportCSV(t *testing.T) {
	e := newTestExporter(t, exportFixture(t), nil)

	a, err := e.Export(context.Background(), "s1", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(a.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(storage.LeadCSVHeader, ","), lines[0])
	assert.Equal(t,
		`Bright Smile,120 S Main St,2135550101,,https://brightsmile.example,dentist,4.8,312,,p1,"34.05,-118.24",missing_email`,
		lines[1])
	assert.Equal(t, "No Phone Dental,,,,nophone.example,,,,,p2,,missing_email", lines[2])
}

func TestExportIsIdempotent(t *testing.T) {
	e := newTestExporter(t, exportFixture(t), nil)
	for _, f := range []string{"csv", "json"} {
		a, err := e.Export(context.Background(), "s1", f)
		require.NoError(t, err)
		b, err := e.Export(context.Background(), "s1", f)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a.Data, b.Data), "%s export not byte-identical", f)
	}
}

func TestExportErrors(t *testing.T) {
	e := newTestExporter(t, exportFixture(t), nil)

	_, err := e.Export(context.Background(), "s1", "xlsx")
	assert.True(t, errors.Is(err, models.ErrUnsupportedFormat))

	_, err = e.Export(context.Background(), "missing", "csv")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestExportEmptySession(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "empty", models.StatusReady)
	e := newTestExporter(t, store, nil)

	a, err := e.Export(context.Background(), "empty", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(a.Data))
}

func TestMaterialize(t *testing.T) {
	e := newTestExporter(t, exportFixture(t), nil)
	a, err := e.Export(context.Background(), "s1", "csv")
	require.NoError(t, err)

	path, err := e.Materialize(a, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.outputDir, "leads_20261014_083015.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.Data, data)

	path, err = e.Materialize(a, "../../etc/dentists")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.outputDir, "dentists.csv"), path)

	path, err = e.Materialize(a, "report.CSV")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.outputDir, "report.CSV"), path)
}

func TestListAndCleanupExports(t *testing.T) {
	e := newTestExporter(t, exportFixture(t), nil)

	files, err := e.ListExports()
	require.NoError(t, err)
	assert.Empty(t, files)

	a, _ := e.Export(context.Background(), "s1", "json")
	oldPath, err := e.Materialize(a, "old")
	require.NoError(t, err)
	_, err = e.Materialize(a, "new")
	require.NoError(t, err)

	stale := e.now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))
	fresh := e.now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(e.outputDir, "new.json"), fresh, fresh))

	files, err = e.ListExports()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "new.json", files[0].Name, "newest first")
	assert.Equal(t, int64(len(a.Data)), files[0].Size)

	removed, err := e.CleanupExports(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	files, _ = e.ListExports()
	require.Len(t, files, 1)
	assert.Equal(t, "new.json", files[0].Name)
}

func TestListExportsMissingDir(t *testing.T) {
	e := NewExporter(storage.NewMemoryStore(), nil, filepath.Join(t.TempDir(), "nope"), newTestLogger(), nil)
	files, err := e.ListExports()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestArchive(t *testing.T) {
	store := exportFixture(t)

	_, err := newTestExporter(t, store, nil).Archive(context.Background(), "s1")
	assert.True(t, errors.Is(err, models.ErrArchiveDisabled))

	arch := &recordingArchive{}
	e := newTestExporter(t, store, arch)
	n, err := e.Archive(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, arch.sessions, 1)
	assert.Equal(t, "s1", arch.sessions[0].ID)

	_, err = e.Archive(context.Background(), "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	arch.err = errors.New("connection refused")
	_, err = e.Archive(context.Background(), "s1")
	assert.ErrorContains(t, err, "connection refused")
}
