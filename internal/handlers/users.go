// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/account-service/internal/appcontext"
	"codeberg.org/oliverandrich/account-service/internal/services/account"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PasswordRequest is the body of the password change endpoints.
type PasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ListUsers returns a page of accounts.
func (h *Handlers) ListUsers(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return err
	}

	result, err := h.accounts.List(c.Request().Context(), actor, page, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, result)
}

// GetMe returns the authenticated account.
func (h *Handlers) GetMe(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}

	acc, err := h.accounts.Get(c.Request().Context(), actor, actor.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// GetUser returns an account by id.
func (h *Handlers) GetUser(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}

	acc, err := h.accounts.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// CreateUser creates an account on behalf of an administrator.
func (h *Handlers) CreateUser(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	var in account.CreateInput
	if err := bind(c, &in); err != nil {
		return err
	}

	acc, err := h.accounts.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, acc)
}

// UpdateMe updates the authenticated account. The active flag is ignored
// unless the actor is an administrator.
func (h *Handlers) UpdateMe(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	var in account.UpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		in.IsActive = nil
	}

	acc, err := h.accounts.Update(c.Request().Context(), actor, actor.ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// UpdateUser updates an account by id.
func (h *Handlers) UpdateUser(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in account.UpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}

	acc, err := h.accounts.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// DeleteUser soft-deletes an account.
func (h *Handlers) DeleteUser(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.accounts.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangeMyPassword changes the password of the authenticated account.
func (h *Handlers) ChangeMyPassword(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	return h.changePassword(c, actor, actor.ID)
}

// ChangePassword changes the password of an account by id. Administrators
// may omit the current password when the target is another account.
func (h *Handlers) ChangePassword(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	return h.changePassword(c, actor, id)
}

func (h *Handlers) changePassword(c echo.Context, actor policy.Actor, target uuid.UUID) error {
	var req PasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ChangePassword(c.Request().Context(), actor, target, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, messageResponse{Message: "password updated"})
}

// ResendVerification schedules a new verification email for the
// authenticated account.
func (h *Handlers) ResendVerification(c echo.Context) error {
	actor, err := appcontext.MustActor(c)
	if err != nil {
		return err
	}

	if err := h.accounts.ResendVerification(c.Request().Context(), actor.ID); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, messageResponse{Message: "verification email scheduled"})
}
