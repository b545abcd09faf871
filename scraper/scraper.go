// Package scraper declares the scrape capability: given a query and a location,
// produce raw business records one page at a time.
package scraper

import "context"

// RawRecord is one business exactly as the source rendered it. Numeric fields
// stay textual; the cleaner parses them.
type RawRecord struct {
	Name         string
	Address      string
	Phone        string
	Website      string
	Category     string
	Rating       string
	ReviewsCount string
	SourceURL    string
	SourceID     string
	Latitude     string
	Longitude    string
}

// Request selects one page of results.
type Request struct {
	Query    string
	Location string
	Page     int
	PageSize int
}

// Source fetches raw records. An empty page with a nil error means the source
// has nothing more for the query.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]RawRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) ([]RawRecord, error)

func (f SourceFunc) Fetch(ctx context.Context, req Request) ([]RawRecord, error) {
	return f(ctx, req)
}
