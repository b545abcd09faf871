package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

const (
	archiveBatchSize = 50
	leadColumns      = 14
)

// PostgresWriter archives session leads to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

var _ LeadArchive = (*PostgresWriter)(nil)

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := ping.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS leads (
			session_id       TEXT          NOT NULL,
			source_id        TEXT          NOT NULL,
			name             TEXT          NOT NULL,
			address          TEXT          NOT NULL DEFAULT '',
			phone            TEXT          NOT NULL DEFAULT '',
			email            TEXT          NOT NULL DEFAULT '',
			website          TEXT          NOT NULL DEFAULT '',
			category         TEXT          NOT NULL DEFAULT '',
			rating           NUMERIC(3,2),
			reviews_count    INTEGER,
			source_url       TEXT          NOT NULL DEFAULT '',
			latitude         DOUBLE PRECISION,
			longitude        DOUBLE PRECISION,
			validation_flags TEXT          NOT NULL DEFAULT '',
			archived_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			PRIMARY KEY (session_id, source_id)
		);

		CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
		CREATE INDEX IF NOT EXISTS idx_leads_email    ON leads(email);
	`)
	return err
}

// Archive upserts every lead of the session and returns how many rows were written.
func (pw *PostgresWriter) Archive(ctx context.Context, s *models.Session) (int, error) {
	if len(s.Leads) == 0 {
		return 0, nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < len(s.Leads); i += archiveBatchSize {
		end := min(i+archiveBatchSize, len(s.Leads))
		query, args := buildInsert(s.ID, s.Leads[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("postgres: insert batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return len(s.Leads), nil
}

func buildInsert(sessionID string, batch []models.Lead) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*leadColumns)

	for idx := range batch {
		l := &batch[idx]
		base := idx * leadColumns
		ph := make([]string, leadColumns)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		var lat, lng *float64
		if l.Coordinates != nil {
			lat, lng = &l.Coordinates.Lat, &l.Coordinates.Lng
		}
		flags := make([]string, len(l.ValidationFlags))
		for i, f := range l.ValidationFlags {
			flags[i] = string(f)
		}

		valueArgs = append(valueArgs,
			sessionID, l.SourceID, l.Name, l.Address, l.Phone, l.Email, l.Website,
			l.Category, nullable(l.Rating), nullable(l.ReviewsCount), l.SourceURL,
			nullable(lat), nullable(lng), strings.Join(flags, ";"))
	}

	query := fmt.Sprintf(`
		INSERT INTO leads (session_id, source_id, name, address, phone, email, website,
			category, rating, reviews_count, source_url, latitude, longitude, validation_flags)
		VALUES %s
		ON CONFLICT (session_id, source_id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			category = EXCLUDED.category,
			rating = EXCLUDED.rating,
			reviews_count = EXCLUDED.reviews_count,
			source_url = EXCLUDED.source_url,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			validation_flags = EXCLUDED.validation_flags,
			archived_at = NOW()
	`, strings.Join(valueStrings, ","))

	return query, valueArgs
}

// nullable turns a nil pointer into a SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
