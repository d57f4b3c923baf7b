// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/services/account"
	"github.com/labstack/echo/v4"
)

// ForgotPasswordRequest is the request body for starting a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// Register creates a self-service account. Only available when
// registration is open.
func (h *Handlers) Register(c echo.Context) error {
	if !h.openRegistration {
		return apperr.Authorization("registration is closed")
	}
	var in account.CreateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	// Self-registered accounts are always plain users.
	in.Role = ""

	acc, err := h.accounts.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, acc)
}

// VerifyEmail redeems an email verification token.
func (h *Handlers) VerifyEmail(c echo.Context) error {
	acc, err := h.accounts.VerifyEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// ForgotPassword schedules a password reset email. The response is the
// same whether or not the address belongs to an account.
func (h *Handlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Email == "" {
		return apperr.Validation("email is required")
	}

	if err := h.accounts.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, messageResponse{
		Message: "if the address belongs to an account, a reset link has been sent",
	})
}

// ResetPassword redeems a password reset token and sets a new password.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ResetPassword(c.Request().Context(), c.Param("token"), req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, messageResponse{Message: "password updated"})
}
