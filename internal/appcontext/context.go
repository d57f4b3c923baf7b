// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext carries the authenticated actor through a request.
package appcontext

import (
	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/labstack/echo/v4"
)

const actorKey = "actor"

// SetActor stores the actor on the Echo context.
func SetActor(c echo.Context, actor policy.Actor) {
	c.Set(actorKey, actor)
}

// Actor returns the authenticated actor, if any.
func Actor(c echo.Context) (policy.Actor, bool) {
	actor, ok := c.Get(actorKey).(policy.Actor)
	return actor, ok
}

// MustActor returns the authenticated actor or an authentication error.
func MustActor(c echo.Context) (policy.Actor, error) {
	actor, ok := Actor(c)
	if !ok {
		return policy.Actor{}, apperr.Authentication("authentication required")
	}
	return actor, nil
}
