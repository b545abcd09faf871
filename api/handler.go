// Package api provides the HTTP surface of the lead pipeline.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanjoelson/ai-lead-gen/metrics"
	"github.com/jordanjoelson/ai-lead-gen/services"
	"github.com/jordanjoelson/ai-lead-gen/storage"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

const serviceName = "ai-lead-gen"

// Handler handles HTTP requests.
type Handler struct {
	store    storage.SessionStore
	pipeline *services.Pipeline
	enricher *services.Enricher
	exporter *services.Exporter
	summary  *services.SummaryService
	metrics  *metrics.Manager
	logger   *utils.Logger
}

// Deps are the components a Handler maps requests onto.
type Deps struct {
	Store    storage.SessionStore
	Pipeline *services.Pipeline
	Enricher *services.Enricher
	Exporter *services.Exporter
	Summary  *services.SummaryService
	Metrics  *metrics.Manager
	Logger   *utils.Logger
}

// NewHandler creates a new handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:    d.Store,
		pipeline: d.Pipeline,
		enricher: d.Enricher,
		exporter: d.Exporter,
		summary:  d.Summary,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}
}

// RegisterRoutes registers routes and middleware with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Use(h.observe)

	e.POST("/scrape", h.Scrape)
	e.POST("/enrich", h.Enrich)
	e.POST("/export", h.Export)

	e.GET("/sessions/:id", h.GetSession)
	e.GET("/sessions/:id/summary", h.GetSummary)
	e.DELETE("/sessions/:id", h.DeleteSession)
	e.POST("/sessions/:id/archive", h.ArchiveSession)

	e.GET("/exports", h.ListExports)

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  serviceName,
		"sessions": h.store.Count(),
	})
}
