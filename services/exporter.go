package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jordanjoelson/ai-lead-gen/metrics"
	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/storage"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

// Format is an export serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json in any letter case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (want csv or json)", models.ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Artifact is a serialized snapshot of a session's leads.
type Artifact struct {
	SessionID string
	Format    Format
	LeadCount int
	Data      []byte
}

// ExportFile describes one materialized export in the output directory.
type ExportFile struct {
	Name     string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Exporter serializes sessions and manages the export directory.
type Exporter struct {
	store     storage.SessionStore
	archive   storage.LeadArchive
	outputDir string
	logger    *utils.Logger
	metrics   *metrics.Manager

	now func() time.Time
}

// NewExporter creates an Exporter. archive and m may be nil; without an
// archive, Archive fails with models.ErrArchiveDisabled.
func NewExporter(store storage.SessionStore, archive storage.LeadArchive, outputDir string,
	logger *utils.Logger, m *metrics.Manager) *Exporter {
	return &Exporter{
		store:     store,
		archive:   archive,
		outputDir: outputDir,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Export serializes a point-in-time snapshot of the session. The output for an
// unchanged session is byte-identical across calls.
func (e *Exporter) Export(ctx context.Context, sessionID, format string) (*Artifact, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		err = writeCSV(&buf, sess.Leads)
	case FormatJSON:
		err = writeJSON(&buf, sess.Leads)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s as %s: %w", sessionID, f, err)
	}

	e.metrics.Export(string(f))
	e.metrics.ObserveStage("export", time.Since(start))
	e.logger.Debug("[exporter] Session %s: %d leads as %s (%d bytes)", sessionID, len(sess.Leads), f, buf.Len())

	return &Artifact{SessionID: sessionID, Format: f, LeadCount: len(sess.Leads), Data: buf.Bytes()}, nil
}

func writeCSV(buf *bytes.Buffer, leads []models.Lead) error {
	w, err := storage.NewCSVWriter(buf)
	if err != nil {
		return err
	}
	if err := w.Write(leads); err != nil {
		return err
	}
	return w.Close()
}

func writeJSON(buf *bytes.Buffer, leads []models.Lead) error {
	if leads == nil {
		leads = []models.Lead{}
	}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(leads)
}

// Materialize writes the artifact into the output directory and returns its
// path. Only the base of filename is used and the format's extension is
// enforced; an empty name becomes leads_YYYYMMDD_HHMMSS.<ext>.
func (e *Exporter) Materialize(a *Artifact, filename string) (string, error) {
	name := e.fileName(a.Format, filename)
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}

	path := filepath.Join(e.outputDir, name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %q: %w", path, err)
	}
	e.logger.Info("[exporter] Exported %d leads to %s", a.LeadCount, path)
	return path, nil
}

func (e *Exporter) fileName(f Format, requested string) string {
	ext := "." + string(f)
	name := strings.TrimSpace(requested)
	if name != "" {
		name = filepath.Base(filepath.Clean("/" + name))
	}
	if name == "" || name == "/" || name == "." {
		name = "leads_" + e.now().Format("20060102_150405")
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	return name
}

// ListExports returns the files in the output directory, newest first.
func (e *Exporter) ListExports() ([]ExportFile, error) {
	entries, err := os.ReadDir(e.outputDir)
	if errors.Is(err, os.ErrNotExist) {
		return []ExportFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("export: list %q: %w", e.outputDir, err)
	}

	files := make([]ExportFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ExportFile{Name: entry.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name < files[j].Name
		}
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// CleanupExports removes export files last modified more than olderThan ago
// and returns how many were deleted.
func (e *Exporter) CleanupExports(olderThan time.Duration) (int, error) {
	files, err := e.ListExports()
	if err != nil {
		return 0, err
	}

	cutoff := e.now().Add(-olderThan)
	removed := 0
	for _, f := range files {
		if !f.Modified.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(e.outputDir, f.Name)); err != nil {
			e.logger.Warn("[exporter] Could not delete old export %s: %v", f.Name, err)
			continue
		}
		removed++
		e.logger.Info("[exporter] Deleted old export: %s", f.Name)
	}
	return removed, nil
}

// Archive copies the session's current leads into the configured lead archive.
func (e *Exporter) Archive(ctx context.Context, sessionID string) (int, error) {
	if e.archive == nil {
		return 0, models.ErrArchiveDisabled
	}
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	n, err := e.archive.Archive(ctx, sess)
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", sessionID, err)
	}
	e.metrics.Export("archive")
	e.logger.Info("[exporter] Archived %d leads of session %s", n, sessionID)
	return n, nil
}
