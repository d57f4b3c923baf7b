// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"codeberg.org/oliverandrich/account-service/internal/repository"
	"codeberg.org/oliverandrich/account-service/internal/services/policy"
	"github.com/google/uuid"
)

const maxPageSize = 100

// CreateInput holds the fields for registering an account.
type CreateInput struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Username string      `json:"username" validate:"required,min=3,max=50"`
	Password string      `json:"password" validate:"required"`
	Role     models.Role `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// UpdateInput holds the optional fields of a profile update.
type UpdateInput struct {
	Email    *string `json:"email,omitempty" validate:"omitnil,email,max=254"`
	Username *string `json:"username,omitempty" validate:"omitnil,min=3,max=50"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Page is one page of accounts.
type Page struct {
	Accounts   []models.Account `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int64            `json:"total_pages"`
}

// Register creates a new active, unverified account and schedules its
// verification email.
func (s *Service) Register(ctx context.Context, in CreateInput) (*models.Account, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	if err := s.creds.CheckStrength(in.Password, in.Email, in.Username); err != nil {
		return nil, err
	}

	_, err := s.dir.GetAccountByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.Validation("email already in use")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to check existing user", err)
	}

	hash, err := s.creds.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.dir.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Validation("email already in use")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	slog.Info("register_success", "user_id", account.ID, "email", account.Email, "role", account.Role)

	s.sendVerification(ctx, account)
	return account, nil
}

// Create registers an account on behalf of an administrator.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*models.Account, error) {
	if err := policy.Require(actor, policy.Create, uuid.Nil); err != nil {
		return nil, err
	}
	return s.Register(ctx, in)
}

// LookupByID returns a live account.
func (s *Service) LookupByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.dir.GetAccountByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return account, nil
}

// LookupByEmail returns a live account by its email address.
func (s *Service) LookupByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.dir.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, lookupError(err)
	}
	return account, nil
}

// ListPaged returns a 1-indexed page of live accounts in creation order.
func (s *Service) ListPaged(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		return nil, apperr.Validation("page must be at least 1")
	}
	if limit < 1 || limit > maxPageSize {
		return nil, apperr.Validation("limit must be between 1 and 100")
	}

	accounts, err := s.dir.ListAccounts(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	total, err := s.dir.CountAccounts(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to count users", err)
	}

	return &Page{
		Accounts:   accounts,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}, nil
}

// List is ListPaged for administrators.
func (s *Service) List(ctx context.Context, actor policy.Actor, page, limit int) (*Page, error) {
	if err := policy.Require(actor, policy.ListAll, uuid.Nil); err != nil {
		return nil, err
	}
	return s.ListPaged(ctx, page, limit)
}

// Get returns the account id if actor may read it.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*models.Account, error) {
	action := policy.ReadAny
	if actor.ID == id {
		action = policy.ReadSelf
	}
	if err := policy.Require(actor, action, id); err != nil {
		return nil, err
	}
	return s.LookupByID(ctx, id)
}

// Update applies a profile update. Changing the active flag needs its own
// permission; without it the whole update is rejected. A new email address
// must be verified again.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, in UpdateInput) (*models.Account, error) {
	action := policy.UpdateAnyBasicFields
	if actor.ID == id {
		action = policy.UpdateOwnBasicFields
	}
	if err := policy.Require(actor, action, id); err != nil {
		return nil, err
	}
	if in.IsActive != nil {
		if err := policy.Require(actor, policy.UpdateActiveFlag, id); err != nil {
			return nil, err
		}
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	account, err := s.LookupByID(ctx, id)
	if err != nil {
		return nil, err
	}

	emailChanged := false
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != account.Email {
			account.Email = email
			account.EmailVerified = false
			emailChanged = true
		}
	}
	if in.Username != nil {
		account.Username = strings.TrimSpace(*in.Username)
	}
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}
	account.UpdatedAt = s.now().UTC()

	if err := s.dir.UpdateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Validation("email already in use")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("user not found")
		default:
			return nil, apperr.Internal("failed to update user", err)
		}
	}

	slog.Info("user_updated", "user_id", account.ID, "actor_id", actor.ID)

	if emailChanged {
		s.sendVerification(ctx, account)
	}
	return account, nil
}

// SoftDelete marks an account as deleted. The row and its tokens are kept.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.dir.SoftDeleteAccount(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to delete user", err)
	}
	slog.Info("user_deleted", "user_id", id)
	return nil
}

// Delete is SoftDelete for administrators.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Require(actor, policy.DeleteAny, id); err != nil {
		return err
	}
	return s.SoftDelete(ctx, id)
}

// EnsureAdmin makes sure at least one administrator exists. Without one, the
// account for email is created as administrator or, if it exists, promoted.
// It reports whether anything changed.
func (s *Service) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	count, err := s.dir.CountAdmins(ctx)
	if err != nil {
		return false, apperr.Internal("failed to count admins", err)
	}
	if count > 0 {
		return false, nil
	}

	existing, err := s.dir.GetAccountByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if err := s.dir.SetAccountRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return false, apperr.Internal("failed to promote admin", err)
		}
		slog.Info("admin_promoted", "user_id", existing.ID, "email", existing.Email)
		return true, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, apperr.Internal("failed to load user", err)
	}

	account, err := s.Register(ctx, CreateInput{
		Email:    email,
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	slog.Info("admin_created", "user_id", account.ID, "email", account.Email)
	return true, nil
}
