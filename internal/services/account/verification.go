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
	"github.com/google/uuid"
)

// MarkEmailVerified marks the email of a live account as verified.
// Marking it again succeeds.
func (s *Service) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	if err := s.dir.SetEmailVerified(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to verify email", err)
	}
	return nil
}

// VerifyEmail redeems an email verification token.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (*models.Account, error) {
	id, err := s.tokens.ValidateAndConsume(ctx, rawToken, models.TokenEmailVerification)
	if err != nil {
		return nil, err
	}
	if err := s.MarkEmailVerified(ctx, id); err != nil {
		return nil, err
	}

	slog.Info("email_verified", "user_id", id)
	return s.LookupByID(ctx, id)
}

// ResendVerification schedules a new verification email unless the
// account is already verified.
func (s *Service) ResendVerification(ctx context.Context, id uuid.UUID) error {
	account, err := s.LookupByID(ctx, id)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return nil
	}

	if err := s.notifier.SendVerificationEmail(ctx, account.ID, account.Email, account.Username); err != nil {
		return apperr.Internal("failed to schedule verification email", err)
	}
	return nil
}

// sendVerification schedules a verification email. Failures are logged and
// never reach the caller.
func (s *Service) sendVerification(ctx context.Context, account *models.Account) {
	if err := s.notifier.SendVerificationEmail(ctx, account.ID, account.Email, account.Username); err != nil {
		slog.Error("verification_email_failed", "user_id", account.ID, "error", err)
	}
}
