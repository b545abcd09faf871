package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ExportResponse is the body of POST /export when the artifact is written to disk.
type ExportResponse struct {
	FilePath  string `json:"file_path"`
	Format    string `json:"format"`
	LeadCount int    `json:"lead_count"`
}

// Export serializes a session, either to a file in the output directory or,
// with inline set, straight into the response.
// POST /export
func (h *Handler) Export(c echo.Context) error {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return h.fail(c, err, "")
	}

	artifact, err := h.exporter.Export(c.Request().Context(), req.SessionID, req.Format)
	if err != nil {
		return h.fail(c, err, req.SessionID)
	}

	if req.Inline {
		return c.Blob(http.StatusOK, artifact.Format.ContentType(), artifact.Data)
	}

	path, err := h.exporter.Materialize(artifact, req.Filename)
	if err != nil {
		return h.fail(c, err, req.SessionID)
	}
	return c.JSON(http.StatusOK, ExportResponse{
		FilePath:  path,
		Format:    string(artifact.Format),
		LeadCount: artifact.LeadCount,
	})
}

// ListExports lists materialized export files, newest first.
// GET /exports
func (h *Handler) ListExports(c echo.Context) error {
	files, err := h.exporter.ListExports()
	if err != nil {
		return h.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, files)
}
