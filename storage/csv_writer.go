package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

// LeadCSVHeader is the fixed column order of lead CSV exports.
var LeadCSVHeader = []string{
	"name", "address", "phone", "email", "website", "category", "rating",
	"reviews_count", "source_url", "source_id", "coordinates", "validation_flags",
}

// CSVWriter writes leads as CSV rows to an underlying writer.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	writer *csv.Writer
}

// NewCSVWriter wraps w and writes the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(LeadCSVHeader); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{writer: cw}, nil
}

// Write appends one row per lead, in order.
func (c *CSVWriter) Write(leads []models.Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range leads {
		if err := c.writer.Write(leadRow(&leads[i])); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes buffered rows. The underlying writer stays open.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.writer.Error()
}

func leadRow(l *models.Lead) []string {
	var rating, reviews, coords string
	if l.Rating != nil {
		rating = strconv.FormatFloat(*l.Rating, 'f', -1, 64)
	}
	if l.ReviewsCount != nil {
		reviews = strconv.Itoa(*l.ReviewsCount)
	}
	if l.Coordinates != nil {
		coords = strconv.FormatFloat(l.Coordinates.Lat, 'f', -1, 64) + "," +
			strconv.FormatFloat(l.Coordinates.Lng, 'f', -1, 64)
	}

	flags := make([]string, len(l.ValidationFlags))
	for i, f := range l.ValidationFlags {
		flags[i] = string(f)
	}

	return []string{
		l.Name,
		l.Address,
		l.Phone,
		l.Email,
		l.Website,
		l.Category,
		rating,
		reviews,
		l.SourceURL,
		l.SourceID,
		coords,
		strings.Join(flags, ";"),
	}
}
