package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/services"
)

// ScrapeResponse is the body of a successful POST /scrape.
type ScrapeResponse struct {
	SessionID  string        `json:"session_id"`
	Leads      []models.Lead `json:"leads"`
	TotalFound int           `json:"total_found"`
	Status     models.Status `json:"status"`
}

// Scrape runs a scrape and returns the resulting session.
// POST /scrape
func (h *Handler) Scrape(c echo.Context) error {
	var req ScrapeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return h.fail(c, err, "")
	}

	sess, err := h.pipeline.StartScrape(c.Request().Context(), services.ScrapeRequest{
		Query:      req.Query,
		Location:   req.Location,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		id := ""
		if sess != nil {
			id = sess.ID
		}
		return h.fail(c, err, id)
	}

	return c.JSON(http.StatusOK, ScrapeResponse{
		SessionID:  sess.ID,
		Leads:      sess.Leads,
		TotalFound: len(sess.Leads),
		Status:     sess.Status,
	})
}
