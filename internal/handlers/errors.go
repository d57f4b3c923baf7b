// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"github.com/labstack/echo/v4"
)

const tokenErrorMessage = "invalid or expired token"

type errorEnvelope struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ErrorHandler renders every error returned by handlers and middleware as
// a JSON error envelope. It is installed as Echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	respondError(c, err)
}

func respondError(c echo.Context, err error) {
	code, message := Status(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if writeErr := c.JSON(code, errorEnvelope{Status: code, Error: message}); writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}

// Status maps an error to its HTTP status code and client-safe message.
func Status(err error) (int, string) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindValidation:
			return http.StatusBadRequest, appErr.Message
		case apperr.KindToken:
			return http.StatusBadRequest, tokenErrorMessage
		case apperr.KindAuthentication:
			return http.StatusUnauthorized, appErr.Message
		case apperr.KindAuthorization:
			return http.StatusForbidden, appErr.Message
		case apperr.KindNotFound:
			return http.StatusNotFound, appErr.Message
		case apperr.KindInternal:
			return http.StatusInternalServerError, apperr.MessageOf(err)
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, apperr.MessageOf(err)
		}
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	}

	return http.StatusInternalServerError, apperr.MessageOf(err)
}
