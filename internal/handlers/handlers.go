// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/services/account"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	accounts         *account.Service
	openRegistration bool
}

// New creates a new Handlers instance.
func New(accounts *account.Service, openRegistration bool) *Handlers {
	return &Handlers{accounts: accounts, openRegistration: openRegistration}
}

// envelope wraps every successful response body.
type envelope struct {
	Data   any `json:"data"`
	Status int `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respond(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope{Status: code, Data: data})
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid user id")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name + " must be a number")
	}
	return n, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
