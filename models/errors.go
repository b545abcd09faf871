package models

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by the pipeline stages. Callers match with errors.Is.
var (
	ErrNotFound            = errors.New("session not found")
	ErrInvalidState        = errors.New("invalid session state")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrArchiveDisabled     = errors.New("lead archive not configured")

	// ErrBusy reports a second enrichment on a session that is already enriching.
	ErrBusy = fmt.Errorf("%w: enrichment already in progress", ErrInvalidState)
)
