package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Enrich runs email enrichment over a session.
// POST /enrich
func (h *Handler) Enrich(c echo.Context) error {
	var req EnrichRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return h.fail(c, err, "")
	}

	summary, err := h.enricher.Enrich(c.Request().Context(), req.SessionID, req.ProviderCredentials)
	if err != nil {
		return h.fail(c, err, req.SessionID)
	}
	return c.JSON(http.StatusOK, summary)
}
