// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	"codeberg.org/oliverandrich/account-service/internal/config"
	"codeberg.org/oliverandrich/account-service/internal/handlers"
	"codeberg.org/oliverandrich/account-service/internal/metrics"
	appmw "codeberg.org/oliverandrich/account-service/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.Pre(appmw.StripTrailingSlash)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	// Outside the request logger so it sees the status written by the
	// error handler.
	e.Use(metrics.Middleware())
	e.Use(appmw.RequestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(appmw.Locale)
}
