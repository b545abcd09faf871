// Package hunter is a client for the Hunter.io domain search API.
package hunter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jordanjoelson/ai-lead-gen/enrichment"
)

const (
	DefaultBaseURL = "https://api.hunter.io/v2"

	// Hunter reports confidence as a 0-100 score.
	confidenceScale = 100.0
	maxBodyBytes    = 1 << 20
)

// ErrUnauthorized reports a rejected API key.
var ErrUnauthorized = errors.New("hunter: unauthorized")

// Client calls the domain-search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ enrichment.Finder = (*Client)(nil)

// New creates a Client. An empty baseURL selects the public API.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type domainSearchResponse struct {
	Data struct {
		Domain string `json:"domain"`
		Emails []struct {
			Value      string  `json:"value"`
			Confidence float64 `json:"confidence"`
		} `json:"emails"`
	} `json:"data"`
	Errors []struct {
		ID      string `json:"id"`
		Details string `json:"details"`
	} `json:"errors"`
}

// FindEmails returns the addresses Hunter knows for domain.
func (c *Client) FindEmails(ctx context.Context, domain, apiKey string) ([]enrichment.Candidate, error) {
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("api_key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domain-search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("hunter: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hunter: domain search %s: %w", domain, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("hunter: read body: %w", err)
	}

	var payload domainSearchResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil && resp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("hunter: decode response: %w", err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		detail := http.StatusText(resp.StatusCode)
		if len(payload.Errors) > 0 && payload.Errors[0].Details != "" {
			detail = payload.Errors[0].Details
		}
		return nil, fmt.Errorf("hunter: HTTP %d for %s: %s", resp.StatusCode, domain, detail)
	}

	candidates := make([]enrichment.Candidate, 0, len(payload.Data.Emails))
	for _, e := range payload.Data.Emails {
		if e.Value == "" {
			continue
		}
		candidates = append(candidates, enrichment.Candidate{
			Email:      e.Value,
			Confidence: e.Confidence / confidenceScale,
		})
	}
	return candidates, nil
}
