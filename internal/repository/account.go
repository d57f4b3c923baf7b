// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/account-service/internal/models"
	"github.com/google/uuid"
)

const accountColumns = `id, email, username, password_hash, role, is_active, email_verified, created_at, updated_at, deleted_at`

// CreateAccount inserts a new account.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (:id, :email, :username, :password_hash, :role, :is_active, :email_verified, :created_at, :updated_at, :deleted_at)`,
		account)
	return wrapError(err)
}

// GetAccountByID retrieves a live account by ID.
func (r *Repository) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves a live account by email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ? AND deleted_at IS NULL`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// ListAccounts returns live accounts in creation order.
func (r *Repository) ListAccounts(ctx context.Context, limit, offset int) ([]models.Account, error) {
	accounts := []models.Account{}
	err := r.db.SelectContext(ctx, &accounts,
		`SELECT `+accountColumns+` FROM accounts WHERE deleted_at IS NULL
		 ORDER BY created_at ASC, rowid ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// CountAccounts returns the number of live accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts WHERE deleted_at IS NULL`)
	return count, err
}

// CountAdmins returns the number of live administrator accounts.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM accounts WHERE role = ? AND deleted_at IS NULL`, models.RoleAdmin)
	return count, err
}

// UpdateAccount writes the mutable profile fields of a live account.
func (r *Repository) UpdateAccount(ctx context.Context, account *models.Account) error {
	res, err := r.db.NamedExecContext(ctx,
		`UPDATE accounts SET email = :email, username = :username, role = :role,
		 is_active = :is_active, email_verified = :email_verified, updated_at = :updated_at
		 WHERE id = :id AND deleted_at IS NULL`,
		account)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// UpdateAccountPassword replaces the password hash of a live account.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetAccountRole sets the role of a live account.
func (r *Repository) SetAccountRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET role = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		role, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetEmailVerified marks the email of a live account as verified. Marking an
// already verified account succeeds.
func (r *Repository) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email_verified = 1, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SoftDeleteAccount marks a live account as deleted. The row and its tokens
// are kept.
func (r *Repository) SoftDeleteAccount(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
