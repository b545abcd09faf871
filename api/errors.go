package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

// statusClientClosedRequest reports a request abandoned by the caller before it finished.
const statusClientClosedRequest = 499

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, models.ErrArchiveDisabled):
		return http.StatusServiceUnavailable, "archive_disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusClientClosedRequest, "cancelled"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) fail(c echo.Context, err error, sessionID string) error {
	status, code := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("[api] %s %s: %v", c.Request().Method, c.Path(), err)
		msg = "internal error"
	case statusClientClosedRequest:
		h.logger.Debug("[api] %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, ErrorResponse{Code: code, Message: msg, SessionID: sessionID})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: msg})
}
