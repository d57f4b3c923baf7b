// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account implements the account lifecycle: registration, lookup,
// updates, credential rotation, soft deletion and email verification.
package account

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"codeberg.org/oliverandrich/account-service/internal/services/credential"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Directory is the account persistence contract.
type Directory interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error)
	CountAccounts(ctx context.Context) (int64, error)
	CountAdmins(ctx context.Context) (int64, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	UpdateAccountPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetAccountRole(ctx context.Context, id uuid.UUID, role models.Role) error
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	SoftDeleteAccount(ctx context.Context, id uuid.UUID) error
}

// Tokens issues and redeems single-use tokens.
type Tokens interface {
	Issue(ctx context.Context, accountID *uuid.UUID, typ models.TokenType, ttl time.Duration) (string, error)
	Peek(ctx context.Context, raw string, expected models.TokenType) (uuid.UUID, error)
	ValidateAndConsume(ctx context.Context, raw string, expected models.TokenType) (uuid.UUID, error)
}

// Notifier schedules notification emails.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, accountID uuid.UUID, email, username string) error
	SendPasswordResetEmail(ctx context.Context, email, username, token string) error
}

// Service is the account lifecycle service.
type Service struct {
	dir      Directory
	creds    *credential.Manager
	tokens   Tokens
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
	resetTTL time.Duration
}

// NewService creates a Service.
func NewService(dir Directory, creds *credential.Manager, tokens Tokens, notifier Notifier, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		dir:      dir,
		creds:    creds,
		tokens:   tokens,
		notifier: notifier,
		validate: newValidator(),
		now:      time.Now,
		resetTTL: resetTTL,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check runs struct validation and converts failures into one
// validation error listing every failed field.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("failed to validate input", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lookupError converts a directory error for a single account.
func lookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return apperr.Internal("failed to load user", err)
}
