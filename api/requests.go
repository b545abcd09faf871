package api

import (
	"fmt"
	"strings"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	Query      string `json:"query"`
	Location   string `json:"location"`
	MaxResults int    `json:"max_results,omitempty"`
}

func (r *ScrapeRequest) validate() error {
	r.Query = strings.TrimSpace(r.Query)
	r.Location = strings.TrimSpace(r.Location)
	switch {
	case r.Query == "":
		return fmt.Errorf("%w: query is required", models.ErrInvalidInput)
	case r.Location == "":
		return fmt.Errorf("%w: location is required", models.ErrInvalidInput)
	case r.MaxResults < 0:
		return fmt.Errorf("%w: max_results must not be negative", models.ErrInvalidInput)
	}
	return nil
}

// EnrichRequest is the body of POST /enrich.
type EnrichRequest struct {
	SessionID           string `json:"session_id"`
	ProviderCredentials string `json:"provider_credentials,omitempty"`
}

func (r *EnrichRequest) validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", models.ErrInvalidInput)
	}
	return nil
}

// ExportRequest is the body of POST /export. Inline returns the payload in the
// response instead of writing a file.
type ExportRequest struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Filename  string `json:"filename,omitempty"`
	Inline    bool   `json:"inline,omitempty"`
}

func (r *ExportRequest) validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	switch {
	case r.SessionID == "":
		return fmt.Errorf("%w: session_id is required", models.ErrInvalidInput)
	case strings.TrimSpace(r.Format) == "":
		return fmt.Errorf("%w: format is required", models.ErrInvalidInput)
	}
	return nil
}
