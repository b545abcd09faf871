// Package enrichment declares the email lookup capability: given a domain name,
// return candidate addresses with confidence scores.
package enrichment

import "context"

// Candidate is one address the provider associates with a domain.
// Confidence is normalised to [0, 1].
type Candidate struct {
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
}

// Finder looks up candidate emails for a domain using the caller's credentials.
type Finder interface {
	FindEmails(ctx context.Context, domain, apiKey string) ([]Candidate, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, domain, apiKey string) ([]Candidate, error)

func (f FinderFunc) FindEmails(ctx context.Context, domain, apiKey string) ([]Candidate, error) {
	return f(ctx, domain, apiKey)
}
