// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/handlers"
	"codeberg.org/oliverandrich/account-service/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", apperr.Validation("username is required"), http.StatusBadRequest, "username is required"},
		{"token expired", apperr.ErrTokenExpired, http.StatusBadRequest, "invalid or expired token"},
		{"token type mismatch", fmt.Errorf("redeem: %w", apperr.ErrTokenTypeMismatch), http.StatusBadRequest, "invalid or expired token"},
		{"authentication", apperr.Authentication("invalid token"), http.StatusUnauthorized, "invalid token"},
		{"authorization", apperr.Authorization("insufficient permissions"), http.StatusForbidden, "insufficient permissions"},
		{"not found", apperr.NotFound("user not found"), http.StatusNotFound, "user not found"},
		{"internal", apperr.Internal("failed to hash", errors.New("oom")), http.StatusInternalServerError, "internal server error"},
		{"plain error", errors.New("database is locked"), http.StatusInternalServerError, "internal server error"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"echo body limit", echo.ErrStatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge, "Request Entity Too Large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := handlers.Status(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestErrorHandler_Envelope(t *testing.T) {
	c, rec := testutil.NewEchoContext(echo.New(), http.MethodGet, "/users", nil)

	handlers.ErrorHandler(apperr.Authorization("administrator role required"), c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"status":403,"error":"administrator role required"}`, rec.Body.String())
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	c, rec := testutil.NewEchoContext(echo.New(), http.MethodGet, "/users", nil)

	handlers.ErrorHandler(apperr.Internal("query failed", errors.New("no such table: accounts")), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "accounts")
}

func TestErrorHandler_CommittedResponse(t *testing.T) {
	c, rec := testutil.NewEchoContext(echo.New(), http.MethodDelete, "/users/x", nil)
	assert.NoError(t, c.NoContent(http.StatusNoContent))

	handlers.ErrorHandler(apperr.Validation("late"), c)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrorHandler_Head(t *testing.T) {
	c, rec := testutil.NewEchoContext(echo.New(), http.MethodHead, "/users/me", nil)

	handlers.ErrorHandler(apperr.Authentication("missing bearer token"), c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String())
}
