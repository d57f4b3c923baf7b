// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package account

import (
	"context"
	"errors"
	"log/slog"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/google/uuid"
)

// ChangeOwnPassword changes a password when the current one is known.
func (s *Service) ChangeOwnPassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	account, err := s.LookupByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.creds.Verify(ctx, currentPassword, account.PasswordHash); err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			slog.Warn("password_change_failed", "user_id", id, "reason", "invalid_current_password")
			return apperr.Authentication("current password is incorrect")
		}
		return err
	}

	return s.setPassword(ctx, account, newPassword)
}

// ForcePasswordChange sets a new password without the current one.
func (s *Service) ForcePasswordChange(ctx context.Context, id uuid.UUID, newPassword string) error {
	account, err := s.LookupByID(ctx, id)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, account, newPassword)
}

// ChangePassword changes the password of target. Actors changing their own
// password must supply the current one; administrators may reset any other
// account without it.
func (s *Service) ChangePassword(ctx context.Context, actor policy.Actor, target uuid.UUID, currentPassword, newPassword string) error {
	if actor.ID == target {
		if err := policy.Require(actor, policy.ChangeOwnPassword, target); err != nil {
			return err
		}
		if currentPassword == "" {
			return apperr.Validation("current_password is required")
		}
		return s.ChangeOwnPassword(ctx, target, currentPassword, newPassword)
	}

	if err := policy.Require(actor, policy.ChangeAnyPassword, target); err != nil {
		return err
	}
	if err := s.ForcePasswordChange(ctx, target, newPassword); err != nil {
		return err
	}
	slog.Info("password_forced", "user_id", target, "actor_id", actor.ID)
	return nil
}

// RequestPasswordReset sends a reset link if an active account exists for
// email. The result never reveals whether it does.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.dir.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("password_reset_requested", "outcome", "unknown_email")
			return nil
		}
		return apperr.Internal("failed to load user", err)
	}
	if !account.IsActive {
		slog.Info("password_reset_requested", "user_id", account.ID, "outcome", "inactive")
		return nil
	}

	token, err := s.tokens.Issue(ctx, &account.ID, models.TokenPasswordReset, s.resetTTL)
	if err != nil {
		return err
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, account.Email, account.Username, token); err != nil {
		slog.Error("password_reset_email_failed", "user_id", account.ID, "error", err)
		return nil
	}

	slog.Info("password_reset_requested", "user_id", account.ID, "outcome", "sent")
	return nil
}

// ResetPassword redeems a password reset token and sets the new password.
// The full password policy is checked before the token is consumed, so a
// rejected password leaves the link usable.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	id, err := s.tokens.Peek(ctx, rawToken, models.TokenPasswordReset)
	if err != nil {
		return err
	}

	account, err := s.LookupByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.creds.CheckStrength(newPassword, account.Email, account.Username); err != nil {
		return err
	}

	consumed, err := s.tokens.ValidateAndConsume(ctx, rawToken, models.TokenPasswordReset)
	if err != nil {
		return err
	}
	if consumed != account.ID {
		return apperr.Internal("reset token changed owner", nil)
	}

	if err := s.setPassword(ctx, account, newPassword); err != nil {
		return err
	}
	slog.Info("password_reset", "user_id", id)
	return nil
}

func (s *Service) setPassword(ctx context.Context, account *models.Account, newPassword string) error {
	if err := s.creds.CheckStrength(newPassword, account.Email, account.Username); err != nil {
		return err
	}

	hash, err := s.creds.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	if err := s.dir.UpdateAccountPassword(ctx, account.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to update password", err)
	}

	slog.Info("password_changed", "user_id", account.ID)
	return nil
}
