package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetSession returns the stored session.
// GET /sessions/:id
func (h *Handler) GetSession(c echo.Context) error {
	id := c.Param("id")
	sess, err := h.store.Get(id)
	if err != nil {
		return h.fail(c, err, id)
	}
	return c.JSON(http.StatusOK, sess)
}

// GetSummary returns coverage and quality figures for a session's leads.
// GET /sessions/:id/summary
func (h *Handler) GetSummary(c echo.Context) error {
	id := c.Param("id")
	sess, err := h.store.Get(id)
	if err != nil {
		return h.fail(c, err, id)
	}
	return c.JSON(http.StatusOK, h.summary.Generate(sess.Leads))
}

// DeleteSession removes a session.
// DELETE /sessions/:id
func (h *Handler) DeleteSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.Delete(id); err != nil {
		return h.fail(c, err, id)
	}
	h.metrics.SetSessionsStored(h.store.Count())
	return c.JSON(http.StatusOK, map[string]string{"message": "session deleted"})
}

// ArchiveSession copies a session's leads into the lead archive.
// POST /sessions/:id/archive
func (h *Handler) ArchiveSession(c echo.Context) error {
	id := c.Param("id")
	n, err := h.exporter.Archive(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err, id)
	}
	return c.JSON(http.StatusOK, map[string]any{"session_id": id, "archived": n})
}
