package models

import "time"

// Status is the lifecycle state of a scrape session.
type Status string

const (
	StatusScraping  Status = "scraping"
	StatusReady     Status = "ready"
	StatusEnriching Status = "enriching"
	StatusEnriched  Status = "enriched"
	StatusFailed    Status = "failed"
)

// Enrichable reports whether an enrichment run may start from this status.
func (s Status) Enrichable() bool {
	return s == StatusReady || s == StatusEnriched
}

// EnrichmentStats counts the outcome of the latest enrichment run.
type EnrichmentStats struct {
	Attempted int `json:"attempted"`
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
}

// ScrapeStats counts what happened to raw records while building the lead list.
type ScrapeStats struct {
	RawRecords    int `json:"raw_records"`
	Duplicates    int `json:"duplicates"`
	Dropped       int `json:"dropped"`
	FailedFetches int `json:"failed_fetches"`
}

// Session binds one scrape's query, results and status under an opaque id.
type Session struct {
	ID                  string          `json:"session_id"`
	Query               string          `json:"query"`
	Location            string          `json:"location"`
	RequestedMaxResults int             `json:"requested_max_results"`
	Leads               []Lead          `json:"leads"`
	Status              Status          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	EnrichmentStats     EnrichmentStats `json:"enrichment_stats"`
	ScrapeStats         ScrapeStats     `json:"scrape_stats"`
	Error               string          `json:"error,omitempty"`
}

// LeadSummary holds aggregate coverage and quality figures over a lead list.
type LeadSummary struct {
	TotalLeads       int            `json:"total_leads"`
	WithEmail        int            `json:"leads_with_email"`
	WithPhone        int            `json:"leads_with_phone"`
	WithWebsite      int            `json:"leads_with_website"`
	EmailCoverage    float64        `json:"email_coverage"`
	PhoneCoverage    float64        `json:"phone_coverage"`
	WebsiteCoverage  float64        `json:"website_coverage"`
	AverageRating    float64        `json:"average_rating"`
	Categories       map[string]int `json:"categories"`
	TopRated         []Lead         `json:"top_rated"`
	LeadsWithIssues  int            `json:"leads_with_issues"`
	DataQualityScore float64        `json:"data_quality_score"`
}
