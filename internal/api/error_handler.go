package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// Checked first: its cause may itself match a sentinel below.
	var pf *domain.PartialFailureError
	if errors.As(err, &pf) {
		reqID := requestID(c)
		log.Error().
			Err(pf.Cause).
			Str("operation", pf.Operation).
			Str("user_id", pf.UserID).
			Str("client_id", pf.ClientID).
			Bool("compensated", pf.Compensated).
			Str("request_id", reqID).
			Msg("partial failure")
		msg := "account created but could not be linked to the client; it has been removed, please retry"
		if !pf.Compensated {
			msg = "account created but could not be linked to the client; contact support"
		}
		return http.StatusInternalServerError, errorResponse{Error: msg, RequestID: reqID}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		log.Debug().Interface("fields", ve.Fields).Str("path", c.Path()).Msg("validation failed")
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: ve.Fields}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "authentication required"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "resource not found"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, errorResponse{Error: "operation timed out", RequestID: requestID(c)}
	}

	// Unexpected error: log the real cause, return a generic message.
	reqID := requestID(c)
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", reqID).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", RequestID: reqID}
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
