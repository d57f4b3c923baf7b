// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"log/slog"

	"codeberg.org/oliverandrich/account-service/internal/appcontext"
	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/auth"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/labstack/echo/v4"
)

// Verifier turns a bearer token into an actor.
type Verifier interface {
	Verify(raw string) (policy.Actor, error)
}

// Authenticate requires a valid bearer token and stores its actor on the
// context.
func Authenticate(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperr.Authentication("missing bearer token")
			}

			actor, err := v.Verify(raw)
			if err != nil {
				slog.Warn("auth_failed", "path", c.Path(), "error", err)
				return err
			}

			appcontext.SetActor(c, actor)
			return next(c)
		}
	}
}

// RequireAdmin ensures the actor is an administrator.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := appcontext.MustActor(c)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return apperr.Authorization("administrator role required")
		}
		return next(c)
	}
}
